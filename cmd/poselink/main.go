package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"golang.org/x/sync/errgroup"

	"github.com/open-teleop/poselink/domain/diagnostic"
	"github.com/open-teleop/poselink/pkg/api"
	"github.com/open-teleop/poselink/pkg/config"
	customlog "github.com/open-teleop/poselink/pkg/log"
	"github.com/open-teleop/poselink/pkg/pose"
	"github.com/open-teleop/poselink/pkg/processing"
	"github.com/open-teleop/poselink/pkg/replay"
	"github.com/open-teleop/poselink/pkg/rig"
	"github.com/open-teleop/poselink/pkg/session"
	"github.com/open-teleop/poselink/pkg/zeromq"
	"github.com/open-teleop/poselink/services"
)

const shutdownTimeout = 5 * time.Second

func main() {
	configDir := flag.String("config", "config", "directory holding poselink_config.yaml")
	replayFile := flag.String("replay", "", "feed a pcap capture through the decoder instead of listening")
	replayRealtime := flag.Bool("realtime", false, "replay with the capture's packet timing")
	flag.Parse()

	bootstrapCfg, err := config.LoadBootstrapConfig(*configDir)
	if err != nil {
		log.Fatalf("Failed to load bootstrap config: %v", err)
	}

	logger, err := customlog.NewLogrusLogger(bootstrapCfg.Logging.Level, bootstrapCfg.Logging.LogPath)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	if err := run(bootstrapCfg, *replayFile, *replayRealtime, logger); err != nil {
		logger.Fatalf("poselink exited: %v", err)
	}
	logger.Infof("Server exited properly")
}

func run(bootstrapCfg *config.BootstrapConfig, replayFile string, realtime bool, logger customlog.Logger) error {
	// Session config
	configService, err := services.NewSessionConfigService(bootstrapCfg.SessionConfigPath(), logger)
	if err != nil {
		return fmt.Errorf("session config: %w", err)
	}
	sessionCfg := configService.GetCurrentConfig()
	handshake := sessionCfg.Handshake

	desc, err := rig.Lookup(handshake.Rig)
	if err != nil {
		return err
	}
	// The decoder's slot count is fixed for the process lifetime.
	configService.AddValidator(func(cfg *config.SessionConfig) error {
		if cfg.Handshake.Rig != desc.Kind {
			return fmt.Errorf("rig cannot change from %s to %s while running", desc.Kind, cfg.Handshake.Rig)
		}
		return nil
	})

	// Decode path
	decoder, err := pose.NewDecoder(desc, pose.DecoderOptions{
		Format:  handshake.PacketFormat,
		Desktop: handshake.Mode.IsDesktop(),
		Logger:  logger,
	})
	if err != nil {
		return err
	}
	var storeOpts []pose.StoreOption
	if n := bootstrapCfg.Listener.TouchQueueSize; n > 0 {
		storeOpts = append(storeOpts, pose.WithTouchQueueSize(n))
	}
	store := pose.NewStore(bootstrapCfg.Listener.StaleTimeout(), storeOpts...)

	// Frame bus
	var (
		zmqService *zeromq.ZeroMQService
		pool       *processing.ProcessingPool
	)
	if bootstrapCfg.ZeroMQ.Enabled {
		zmqService, err = zeromq.NewZeroMQService(zeromq.Config{
			PublishAddress: bootstrapCfg.ZeroMQ.PublishBindAddress,
			ControlAddress: bootstrapCfg.ZeroMQ.ControlBindAddress,
		}, logger)
		if err != nil {
			return err
		}
		defer zmqService.Stop()

		pool = processing.NewProcessingPool("frames", bootstrapCfg.ZeroMQ.Topic,
			bootstrapCfg.Processing.Workers, bootstrapCfg.Processing.QueueSize, logger)
		pool.SetProcessor(processing.NewFrameEncoder(logger).CreateProcessorFunc())
		pool.SetResultHandler(processing.NewLoggingResultHandler(logger, zmqService).CreateHandlerFunc())
	}

	var listenerOpts []session.Option
	if pool != nil {
		listenerOpts = append(listenerOpts, session.WithSnapshotHook(func(s *pose.Snapshot) {
			pool.ProcessSnapshot(s, pose.Live)
		}))
	}
	listener, err := session.NewListener(session.Config{
		Address:       bootstrapCfg.Listener.BindAddress,
		Port:          bootstrapCfg.Listener.Port,
		ReadBuffer:    bootstrapCfg.Listener.ReadBufferBytes,
		MinAppVersion: bootstrapCfg.Listener.MinAppVersion,
		PollInterval:  bootstrapCfg.Listener.PollInterval(),
	}, decoder, store, handshake, logger, listenerOpts...)
	if err != nil {
		return err
	}

	motion, err := services.NewMotionService(store, desc, sessionCfg, logger)
	if err != nil {
		return err
	}

	diagnosticService := diagnostic.NewDiagnosticService(diagnostic.Sources{
		Listener: listener,
		Decoder:  decoder,
		Store:    store,
		Pool:     pool,
	})

	configService.AddApplier(services.ConfigApplierFunc(func(cfg *config.SessionConfig) error {
		decoder.SetDesktop(cfg.Handshake.Mode.IsDesktop())
		return listener.SetHandshake(cfg.Handshake)
	}))
	configService.AddApplier(motion)

	if zmqService != nil {
		status := func() interface{} { return diagnosticService.GetMetrics() }
		configService.SetPublisher(zeromq.RegisterControlHandlers(zmqService, configService, listener, status, logger))
		if err := zmqService.Start(); err != nil {
			return err
		}
		pool.Start()
		defer pool.Stop()
		logger.Infof("Publishing frames on %s", zmqService.PublishEndpoint())
	}

	// HTTP
	app := fiber.New(fiber.Config{
		AppName:               "poselink",
		ErrorHandler:          customErrorHandler,
		DisableStartupMessage: true,
	})
	app.Use(fiberlogger.New())
	app.Use(recover.New())

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "online",
			"service": "poselink",
			"rig":     desc.Kind.String(),
		})
	})
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy", "state": store.State().String()})
	})
	app.Get("/api/v1/diagnostics", diagnosticService.GetMetricsHandler)
	api.RegisterPoseRoutes(app, api.NewPoseHandler(store, desc, listener, motion, logger))
	api.RegisterConfigRoutes(app, configService, logger)
	api.RegisterStreamRoutes(app, store, bootstrapCfg.Server.StreamHz, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return motion.Run(ctx)
	})

	if replayFile != "" {
		g.Go(func() error {
			return replayCapture(ctx, replayFile, realtime, bootstrapCfg.Listener.Port, listener, logger)
		})
	} else {
		if err := listener.Start(ctx); err != nil {
			return err
		}
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return listener.Shutdown(shutdownCtx)
		})
	}

	g.Go(func() error {
		addr := fmt.Sprintf(":%d", bootstrapCfg.Server.HTTPPort)
		logger.Infof("Server starting on %s", addr)
		return app.Listen(addr)
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Infof("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return app.ShutdownWithContext(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// replayCapture feeds a capture through the listener and keeps the process
// up afterwards so the API can be inspected.
func replayCapture(ctx context.Context, path string, realtime bool, port int, listener *session.Listener, logger customlog.Logger) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open replay file: %w", err)
	}
	defer f.Close()

	st, err := replay.ReadPCAP(ctx, f, listener, replay.Options{Port: port, Realtime: realtime, Logger: logger})
	if err != nil {
		return err
	}
	logger.WithFields(map[string]interface{}{
		"packets":  st.Packets,
		"matched":  st.Matched,
		"rejected": st.Rejected,
	}).Infof("Replay of %s finished", path)
	return nil
}

// Custom error handler
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}
