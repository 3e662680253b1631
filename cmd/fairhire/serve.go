package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/raaihank/fairhire/internal/config"
	"github.com/raaihank/fairhire/internal/gauge"
	"github.com/raaihank/fairhire/internal/server"
	"github.com/raaihank/fairhire/internal/websocket"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const shutdownTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer log.Sync()

	log.Info("Starting fairhire",
		zap.String("version", version),
		zap.String("commit", commit),
		zap.String("build_date", date),
		zap.Int("port", cfg.Server.Port))

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc := newServices(cfg, log)
	defer svc.Close()

	pipeline, err := svc.anonymizer(ctx)
	if err != nil {
		log.Error("Failed to create anonymizer", zap.Error(err))
		return err
	}
	scorer, catalogScorer, err := svc.scorers(ctx)
	if err != nil {
		log.Error("Failed to create compatibility scorer", zap.Error(err))
		return err
	}

	var hub *websocket.Hub
	if cfg.WebSocket.Enabled {
		hub = websocket.NewHub(websocket.NewHubConfig(cfg.WebSocket), log.WithComponent("websocket").Logger)
		go hub.Run(ctx)
	}

	if viper.ConfigFileUsed() != "" {
		config.Watch(func(newCfg *config.Config) {
			if err := log.SetLevel(newCfg.Logging.Level); err != nil {
				log.Warn("Ignoring invalid log level", zap.String("level", newCfg.Logging.Level), zap.Error(err))
			}
			if hub != nil {
				hub.SetConfig(websocket.NewHubConfig(newCfg.WebSocket))
			}
			log.Info("Configuration reloaded", zap.String("file", viper.ConfigFileUsed()))
		}, func(err error) {
			log.Warn("Ignoring invalid configuration change", zap.Error(err))
		})
	}

	nerName, embeddingsName := svc.recognizer.Name(), svc.embeddings.GetStats().ServiceType
	notes := heuristicNotes(nerName, embeddingsName)
	for _, note := range notes {
		log.Warn("Heuristic backend in use", zap.String("note", note))
	}

	srv, err := server.New(cfg, server.Services{
		Anonymizer:    pipeline,
		Scorer:        scorer,
		CatalogScorer: catalogScorer,
		Catalog:       svc.catalog,
		Artifacts:     svc.artifacts,
		Gauge:         gauge.New(),
		Hub:           hub,
		Info: server.Info{
			Name:       app,
			Version:    version,
			Commit:     commit,
			NER:        nerName,
			Embeddings: embeddingsName,
			Catalog:    cfg.Catalog.Driver,
			Storage:    cfg.Storage.Type,
			Backends:   backends(nerName, embeddingsName),
			Notes:      notes,
		},
	}, log)
	if err != nil {
		log.Error("Failed to create server", zap.Error(err))
		return err
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", zap.Int("port", cfg.Server.Port))
		serverErrors <- srv.Start()
	}()

	select {
	case err := <-serverErrors:
		log.Error("Server error", zap.Error(err))
		return err
	case <-ctx.Done():
		log.Info("Shutdown signal received")

		// Give outstanding requests time to complete
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Stop(shutdownCtx); err != nil {
			log.Error("Failed to shutdown server gracefully", zap.Error(err))
			return err
		}
		log.Info("Server shutdown complete")
	}
	return nil
}
