package main

import (
	"log"
	"os"

	"gestion-backend/internal/config"
	"gestion-backend/internal/database"
	"gestion-backend/internal/freshness"
	"gestion-backend/internal/logging"
	"gestion-backend/internal/observability"
	"gestion-backend/internal/server"
)

func main() {
	cfg := config.Load()
	logger := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)

	if err := database.Init(cfg, logger); err != nil {
		log.Fatalf("[FATAL] %v", err)
	}

	var metrics *observability.Metrics
	if cfg.MetricsEnabled {
		metrics = observability.NewMetrics()
	}

	app := server.NewApp(cfg, logger, metrics, freshness.NewGuard())

	logger.Info("serveur démarré", "port", cfg.HTTPPort)
	log.Fatal(app.Listen(":" + cfg.HTTPPort))
}
