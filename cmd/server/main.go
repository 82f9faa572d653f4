package main

import (
	"flag"
	"log/slog"
	"net/http"
	"os"

	"github.com/xiheling1/mask/internal/config"
	"github.com/xiheling1/mask/internal/serverapp"
)

func main() {
	configPath := flag.String("config", "mask.yml", "path to the config file")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("load config", "err", err)
		os.Exit(1)
	}

	app, err := serverapp.New(serverapp.Options{
		Config: cfg,
		Logger: logger,
	})
	if err != nil {
		logger.Error("build server", "err", err)
		os.Exit(1)
	}

	logger.Info("listening", "addr", cfg.Server.Addr)
	if err := http.ListenAndServe(cfg.Server.Addr, app.Handler()); err != nil {
		logger.Error("server stopped", "err", err)
		os.Exit(1)
	}
}
