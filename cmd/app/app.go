package main

import (
	"os"

	"github.com/collinlucke/baphomet-server/internal/app"
	config "github.com/collinlucke/baphomet-server/internal/cfg"
	"github.com/collinlucke/baphomet-server/pkg/logger"
)

// version задаётся при сборке: -ldflags "-X main.version=..."
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	log := logger.NewSlogLogger().With("service", "baphomet-images", "version", version)
	log.Infof("baphomet image service starting")

	cfg, err := config.Load(log)
	if err != nil {
		log.Errorf(err, "failed to load config")
		return 1
	}

	application, err := app.NewApp(cfg, log)
	if err != nil {
		log.Errorf(err, "failed to initialize image service")
		return 1
	}

	if err := application.Run(); err != nil {
		return 1
	}
	return 0
}
