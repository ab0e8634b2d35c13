// Package replay feeds UDP payloads from a packet capture through the same
// path live datagrams take.
package replay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	customlog "github.com/open-teleop/poselink/pkg/log"
)

// DatagramSink receives one UDP payload with its sender.
type DatagramSink interface {
	HandleDatagram(payload []byte, from *net.UDPAddr) error
}

// Options control a replay.
type Options struct {
	// Port keeps only datagrams sent to this UDP port, 0 for all.
	Port int
	// Realtime sleeps between packets to reproduce the capture timing.
	Realtime bool
	Logger   customlog.Logger
}

// Stats summarises a replay.
type Stats struct {
	Packets  int `json:"packets"`
	Matched  int `json:"matched"`
	Rejected int `json:"rejected"`
}

// ReadPCAP reads a pcap stream and hands every matching UDP payload to sink
// in capture order. Sink errors are counted and logged, not returned.
func ReadPCAP(ctx context.Context, r io.Reader, sink DatagramSink, opts Options) (Stats, error) {
	var st Stats
	logger := opts.Logger
	if logger == nil {
		logger = customlog.Discard()
	}

	pr, err := pcapgo.NewReader(r)
	if err != nil {
		return st, fmt.Errorf("open capture: %w", err)
	}
	source := gopacket.NewPacketSource(pr, pr.LinkType())
	source.NoCopy = false

	var prev time.Time
	for {
		if err := ctx.Err(); err != nil {
			return st, err
		}
		pkt, err := source.NextPacket()
		if errors.Is(err, io.EOF) {
			return st, nil
		}
		if err != nil {
			return st, fmt.Errorf("read packet %d: %w", st.Packets+1, err)
		}
		st.Packets++

		payload, from, ok := udpPayload(pkt, opts.Port)
		if !ok {
			continue
		}
		st.Matched++

		if opts.Realtime {
			ts := pkt.Metadata().Timestamp
			if !prev.IsZero() && ts.After(prev) {
				select {
				case <-ctx.Done():
					return st, ctx.Err()
				case <-time.After(ts.Sub(prev)):
				}
			}
			prev = ts
		}

		if err := sink.HandleDatagram(payload, from); err != nil {
			st.Rejected++
			logger.Debugf("Replayed datagram %d from %s rejected: %v", st.Packets, from, err)
		}
	}
}

func udpPayload(pkt gopacket.Packet, port int) ([]byte, *net.UDPAddr, bool) {
	udpLayer := pkt.Layer(layers.LayerTypeUDP)
	if udpLayer == nil {
		return nil, nil, false
	}
	udp := udpLayer.(*layers.UDP)
	if port != 0 && int(udp.DstPort) != port {
		return nil, nil, false
	}

	var ip net.IP
	if l := pkt.Layer(layers.LayerTypeIPv4); l != nil {
		ip = l.(*layers.IPv4).SrcIP
	} else if l := pkt.Layer(layers.LayerTypeIPv6); l != nil {
		ip = l.(*layers.IPv6).SrcIP
	} else {
		return nil, nil, false
	}
	return udp.Payload, &net.UDPAddr{IP: ip, Port: int(udp.SrcPort)}, true
}
