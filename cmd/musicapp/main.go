package main

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/gangstat197/ise-music-app/internal/config"
	"github.com/gangstat197/ise-music-app/internal/ingest"
	"github.com/gangstat197/ise-music-app/internal/server"
	"github.com/gangstat197/ise-music-app/internal/store"
)

func main() {
	// A missing .env file is fine; the environment still applies.
	godotenv.Load()

	configPath := os.Getenv("MUSICBOX_CONFIG")
	if configPath == "" {
		configPath = "./config.toml"
	}

	// Basic logger for startup, reconfigured from file settings below
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.WithError(err).Fatal("Error loading configuration")
	}

	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		logger.WithField("level", cfg.Logging.Level).Warn("Unknown log level, using info")
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	if strings.EqualFold(cfg.Logging.Format, "json") {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	st, err := store.NewStore(cfg.Database.Path, cfg.Database.MaxConnections, logger)
	if err != nil {
		logger.WithError(err).Fatal("Error initializing database")
	}
	defer st.Close()

	srv := server.NewServer(cfg, st, ingest.NewService(logger), logger)

	logger.WithFields(logrus.Fields{
		"address":      cfg.GetAddress(),
		"database":     cfg.Database.Path,
		"uploads_root": cfg.Uploads.Root,
	}).Info("Starting music server")

	if err := srv.Run(); err != nil {
		logger.WithError(err).Fatal("Server exited with error")
	}
}
