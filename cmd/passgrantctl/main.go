package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/dropDatabas3/passgrant/internal/app"
	"github.com/dropDatabas3/passgrant/internal/config"
)

func main() {
	_ = godotenv.Load()

	root := newRootCmd(func(ctx context.Context, path string) (*app.Container, error) {
		cfg, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		// El CLI no sirve HTTP: sin rate limit ni métricas.
		cfg.Rate.Enabled = false
		cfg.Metrics.Enabled = false
		return app.New(ctx, cfg, app.Options{})
	})
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
