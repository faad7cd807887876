package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"go.uber.org/fx"
	"golang.org/x/time/rate"

	"elarocks/config"
	"elarocks/internal/controller"
	"elarocks/internal/elasticsearch"
	"elarocks/internal/extractor"
	"elarocks/internal/kafka"
	"elarocks/internal/kvstore"
	"elarocks/internal/metrics"
	"elarocks/internal/runstate"
	"elarocks/internal/scheduler"
	"elarocks/internal/schema"
	"elarocks/internal/service"
	"elarocks/internal/timescaledb"
)

func main() {
	app := fx.New(
		// Core Dependencies
		fx.Provide(
			NewConfig,
			NewRegistry,
			NewPipeline,
		),
		// Infrastructure Dependencies
		fx.Provide(
			NewGinEngine,
			elasticsearch.NewDocumentSource,
			NewKVStore,
			NewKeyIndex,
			NewLoader,
			NewRecordPublisher,
			NewRunStateManager,
			metrics.NewRunMetrics,
			NewTriggerLimiter,
			service.NewExtractionService,
			NewEventQueryService,
			controller.NewEventController,
		),
		fx.Invoke(RegisterAPIRoutes,
			RegisterScheduler,
		),
	)

	startCtx, cancelStart := context.WithTimeout(context.Background(), 60*time.Second) // Covers Elasticsearch verification
	defer cancelStart()
	if err := app.Start(startCtx); err != nil {
		log.Fatal().Err(err).Msg("Failed to start application")
	}
	<-app.Done()

	// Initiate shutdown
	stopCtx, cancelStop := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStop()
	log.Info().Msg("Shutting down application...")
	if err := app.Stop(stopCtx); err != nil {
		log.Error().Err(err).Msg("Forced shutdown due to error or timeout")
	}
	log.Info().Msg("All background processes finished. Exiting.")
}

func NewConfig() (*config.Config, error) {
	cfg, err := config.NewConfig()
	if err != nil {
		return nil, err
	}
	cfg.ApplyLogLevel()
	return cfg, nil
}

func NewGinEngine() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	// Configure CORS
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	return r
}

func RegisterAPIRoutes(
	lifecycle fx.Lifecycle,
	router *gin.Engine,
	cfg *config.Config,
	eventController *controller.EventController,
	runMetrics *metrics.RunMetrics,
) {
	controller.RegisterEventRoutes(router, eventController)
	router.GET("/metrics", gin.WrapH(runMetrics.Handler()))

	server := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}
	lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info().Msgf("Starting HTTP server on port %s", cfg.Server.Port)
			go func() {
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Error().Err(err).Msg("HTTP server ListenAndServe error")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info().Msg("Shutting down HTTP server...")
			return server.Shutdown(ctx)
		},
	})
}

// --- Factory Functions ---

func NewRegistry(cfg *config.Config) (*schema.Registry, error) {
	registry := schema.NewSysmonRegistry()
	if cfg.Extract.SchemaFile != "" {
		if err := registry.LoadFile(cfg.Extract.SchemaFile); err != nil {
			log.Error().Err(err).Str("file", cfg.Extract.SchemaFile).Msg("Failed to load schema overrides")
			return nil, err
		}
	}
	return registry, nil
}

func NewPipeline() *extractor.Pipeline {
	return extractor.NewPipeline()
}

func NewKVStore(lc fx.Lifecycle, cfg *config.Config) (kvstore.Store, error) {
	store, err := kvstore.NewPebbleStore(cfg.KVStore.Path, nil)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return store.Close()
		},
	})
	return store, nil
}

// NewKeyIndex returns nil when TIMESCALEDB_DSN is empty.
func NewKeyIndex(lc fx.Lifecycle, cfg *config.Config) (*timescaledb.KeyIndex, error) {
	if cfg.TimescaleDB.DSN == "" {
		log.Info().Msg("TimescaleDB DSN not configured, key index disabled")
		return nil, nil
	}
	idx, err := timescaledb.NewKeyIndex(context.Background(), cfg.TimescaleDB.DSN)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			idx.Close()
			return nil
		},
	})
	return idx, nil
}

func NewLoader(store kvstore.Store, idx *timescaledb.KeyIndex) *kvstore.Loader {
	if idx == nil {
		return kvstore.NewLoader(store, nil)
	}
	return kvstore.NewLoader(store, idx)
}

func NewRecordPublisher(lc fx.Lifecycle, cfg *config.Config) kafka.RecordPublisher {
	publisher := kafka.NewRecordPublisher(cfg.Kafka)
	if publisher == nil {
		return nil
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			log.Info().Msg("Closing Kafka record publisher")
			return publisher.Close()
		},
	})
	return publisher
}

// NewTriggerLimiter returns nil when SERVER_TRIGGER_INTERVAL is zero.
func NewTriggerLimiter(cfg *config.Config) *rate.Limiter {
	if cfg.Server.TriggerInterval <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Every(cfg.Server.TriggerInterval), cfg.Server.TriggerBurst)
}

func NewRunStateManager(cfg *config.Config) runstate.Manager {
	return runstate.NewManager(cfg.RunState.FilePath)
}

func NewEventQueryService(registry *schema.Registry, store kvstore.Store, idx *timescaledb.KeyIndex) service.EventQueryService {
	if idx == nil {
		return service.NewEventQueryService(registry, store, nil)
	}
	return service.NewEventQueryService(registry, store, idx)
}

// --- Invoker Functions ---

func RegisterScheduler(lc fx.Lifecycle, cfg *config.Config, extractionSvc service.ExtractionService) error {
	_, err := scheduler.NewScheduler(lc, cfg, extractionSvc)
	return err
}
