// posesub prints the frames a poselink instance publishes.
package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	customlog "github.com/open-teleop/poselink/pkg/log"
	"github.com/open-teleop/poselink/pkg/processing"
	"github.com/open-teleop/poselink/pkg/zeromq"
)

func main() {
	endpoint := flag.String("endpoint", "tcp://127.0.0.1:5555", "frame bus to connect to")
	topic := flag.String("topic", "poselink.frame", "topic prefix to subscribe to")
	level := flag.String("log-level", "info", "log level")
	flag.Parse()

	logger, err := customlog.NewLogrusLogger(*level, "")
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	handler := func(topic string, f processing.Frame) {
		valid := 0
		for _, v := range f.Valid {
			if v {
				valid++
			}
		}
		logger.WithFields(map[string]interface{}{
			"topic":    topic,
			"sequence": f.Sequence,
			"state":    f.State.String(),
			"rig":      f.Rig,
			"valid":    valid,
			"joints":   len(f.Rotations),
		}).Infof("frame")
	}

	sub, err := zeromq.NewFrameSubscriber(*topic, handler, logger)
	if err != nil {
		logger.Fatalf("Failed to create subscriber: %v", err)
	}
	if err := sub.Start(*endpoint); err != nil {
		logger.Fatalf("Failed to connect to %s: %v", *endpoint, err)
	}
	logger.Infof("Subscribed to %q on %s", *topic, *endpoint)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	sub.Stop()
	received, failures := sub.Counts()
	logger.Infof("Received %d frames, %d undecodable", received, failures)
}
