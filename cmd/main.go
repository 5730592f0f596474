package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"go-realtime-hub/internal/infrastructure/config"
	"go-realtime-hub/internal/infrastructure/hub"
	"go-realtime-hub/internal/infrastructure/logger"
	"go-realtime-hub/internal/infrastructure/server"
)

func main() {
	configPath := flag.String("config", os.Getenv("REALTIME_CONFIG"), "path to config file (optional)")
	flag.Parse()

	ctx := context.Background()
	sctx := WithSignal(ctx)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fallback := logger.NewLogrusLogger(logger.NewDefaultConfig())
		fallback.Fatalf("failed to load config: %v", err)
	}

	log := logger.NewLogrusLogger(cfg.LoggerConfig())
	hubInstance := hub.New(log, cfg.HubOptions())

	// Start the hub before wiring any routes that accept connections
	if err := hubInstance.Start(ctx); err != nil {
		log.Errorf("failed to start hub: %v", err)
		return
	}

	router := InitRouter(hubInstance, cfg, log)
	httpSrv := server.NewHTTPServer(server.Options{
		Addr:         cfg.Addr(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}, router)

	log.Infof("listening on %s", cfg.Addr())

	app := newApplication(log, httpSrv, hubInstance)
	if err := app.Run(sctx); err != nil {
		log.Errorf("failed to run application: %v", err)
	}
}

type Application struct {
	logger  logger.Logger
	httpSrv server.Server
	hub     *hub.Hub
}

func newApplication(
	log logger.Logger,
	httpSrv *server.HTTPServer,
	hubInstance *hub.Hub,
) *Application {
	return &Application{
		logger:  log.WithField("app", "realtime-hub"),
		httpSrv: httpSrv,
		hub:     hubInstance,
	}
}

func (app *Application) Run(ctx context.Context) error {
	eg := errgroup.Group{}

	eg.Go(func() error {
		return app.httpSrv.Start(ctx)
	})

	eg.Go(func() error {
		<-ctx.Done()

		gracefulshutdownCtx, cancel := context.WithTimeout(
			context.Background(),
			5*time.Second,
		)
		defer cancel()

		// Stop the hub first so delivery workers drain before the listener dies
		if err := app.hub.Stop(gracefulshutdownCtx); err != nil {
			app.logger.Errorf("failed to stop hub: %v", err)
		}

		return app.httpSrv.Stop(gracefulshutdownCtx)
	})

	return eg.Wait()
}

func WithSignal(pctx context.Context) context.Context {
	ctx, cancel := context.WithCancel(pctx)

	go func() {
		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

		<-sigc

		cancel()
	}()

	return ctx
}
