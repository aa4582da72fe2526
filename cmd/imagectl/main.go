package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/collinlucke/baphomet-server/internal/app"
	config "github.com/collinlucke/baphomet-server/internal/cfg"
	"github.com/collinlucke/baphomet-server/internal/usecase"
	"github.com/collinlucke/baphomet-server/pkg/logger"
	"github.com/collinlucke/baphomet-server/pkg/metrics"
)

func main() {
	// stdout занят результатом, логи уходят в stderr
	log := logger.NewSlogLoggerWithWriter(os.Stderr, slog.LevelWarn)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pipeline *app.Pipeline
	build := func() (usecase.ImageUC, error) {
		cfg, err := config.Load(log)
		if err != nil {
			return nil, err
		}
		pipeline, err = app.NewPipeline(cfg, log, metrics.Nop{})
		if err != nil {
			return nil, err
		}
		return pipeline.UC, nil
	}

	err := newRootCmd(build).ExecuteContext(ctx)
	if pipeline != nil {
		_ = pipeline.Closer.Close(context.Background())
	}
	if err != nil {
		os.Exit(1)
	}
}
