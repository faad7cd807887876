package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"elarocks/config"
	"elarocks/internal/elasticsearch"
	"elarocks/internal/extractor"
	"elarocks/internal/kafka"
	"elarocks/internal/kvstore"
	"elarocks/internal/runstate"
	"elarocks/internal/schema"
	"elarocks/internal/service"
	"elarocks/internal/timescaledb"
)

// Runs every configured event code once and exits non-zero if any run failed.
func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	if err := run(); err != nil {
		log.Error().Err(err).Msg("Extraction failed")
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.NewConfig()
	if err != nil {
		return err
	}
	cfg.ApplyLogLevel()

	registry := schema.NewSysmonRegistry()
	if cfg.Extract.SchemaFile != "" {
		if err := registry.LoadFile(cfg.Extract.SchemaFile); err != nil {
			return err
		}
	}

	source, err := elasticsearch.NewDocumentSource(cfg)
	if err != nil {
		return err
	}

	var loader *kvstore.Loader
	if cfg.Extract.LoadAfter {
		store, err := kvstore.NewPebbleStore(cfg.KVStore.Path, nil)
		if err != nil {
			return err
		}
		defer store.Close()

		loader = kvstore.NewLoader(store, nil)
		if cfg.TimescaleDB.DSN != "" {
			idx, err := timescaledb.NewKeyIndex(ctx, cfg.TimescaleDB.DSN)
			if err != nil {
				return err
			}
			defer idx.Close()
			loader = kvstore.NewLoader(store, idx)
		}
	}

	publisher := kafka.NewRecordPublisher(cfg.Kafka)
	if publisher != nil {
		defer publisher.Close()
	}

	svc := service.NewExtractionService(
		cfg,
		registry,
		source,
		extractor.NewPipeline(),
		publisher,
		loader,
		runstate.NewManager(cfg.RunState.FilePath),
		nil,
	)
	return svc.RunAll(ctx)
}
