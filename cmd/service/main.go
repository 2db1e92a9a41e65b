package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/dropDatabas3/passgrant/internal/app"
	"github.com/dropDatabas3/passgrant/internal/config"
	"github.com/dropDatabas3/passgrant/internal/observability/logger"
	"github.com/dropDatabas3/passgrant/internal/observability/tracing"
)

func main() {
	var (
		configPath = flag.String("config", os.Getenv("CONFIG_PATH"), "ruta al config.yaml (env CONFIG_PATH)")
		envFile    = flag.String("env-file", ".env", "archivo .env opcional")
	)
	flag.Parse()

	// .env es opcional: si no existe seguimos con el entorno del proceso.
	_ = godotenv.Load(*envFile)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.L().Fatal("config", logger.Err(err))
	}

	logger.Init(logger.Config{
		Env:         cfg.App.Env,
		Level:       cfg.Log.Level,
		ServiceName: cfg.App.Name,
		Version:     cfg.App.Version,
	})
	defer func() { _ = logger.Sync() }()
	log := logger.L()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(ctx, tracing.Config{
		Endpoint:    cfg.Tracing.Endpoint,
		ServiceName: cfg.App.Name,
		Version:     cfg.App.Version,
	})
	if err != nil {
		log.Fatal("tracing setup", logger.Err(err))
	}

	c, err := app.New(ctx, cfg, app.Options{})
	if err != nil {
		log.Fatal("init", logger.Err(err))
	}
	defer c.Close()

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      c.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go watchReload(ctx, c, *configPath)

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening",
			logger.String("addr", cfg.Server.Addr),
			logger.String("storage", c.Stores.Driver),
			logger.String("cache", cfg.Cache.Kind),
			logger.Bool("rate_limit", c.Limiter != nil),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-errCh:
		if err != nil {
			log.Error("server failed", logger.Err(err))
		}
	}

	sdCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sdCtx); err != nil {
		log.Warn("http shutdown", logger.Err(err))
	}
	if err := shutdownTracing(sdCtx); err != nil {
		log.Warn("tracing shutdown", logger.Err(err))
	}
}

// watchReload relee la config con SIGHUP. Una config inválida se descarta y
// sigue vigente la anterior.
func watchReload(ctx context.Context, c *app.Container, path string) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			cfg, err := config.Load(path)
			if err != nil {
				logger.L().Error("config reload rejected", logger.Err(err))
				continue
			}
			c.Reload(cfg)
			logger.L().Info("config reloaded", logger.String("fingerprint", cfg.Fingerprint()))
		}
	}
}
