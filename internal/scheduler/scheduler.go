package scheduler

import (
	"context"
	"fmt"

	"elarocks/config"
	"elarocks/internal/service"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"go.uber.org/fx"
)

// NewCron builds a cron runner for spec, which accepts an optional seconds
// field and descriptors such as @every 1h.
func NewCron(spec string, job func()) (*cron.Cron, error) {
	parser := cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.DowOptional | cron.Descriptor)
	c := cron.New(cron.WithParser(parser))
	if _, err := c.AddFunc(spec, job); err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return c, nil
}

// NewScheduler runs RunAll on EXTRACT_SCHEDULE. With no schedule it runs
// RunAll once in the background after start.
func NewScheduler(lc fx.Lifecycle, cfg *config.Config, extractionSvc service.ExtractionService) (*cron.Cron, error) {
	runCtx, cancel := context.WithCancel(context.Background())
	job := func() {
		if err := extractionSvc.RunAll(runCtx); err != nil {
			log.Error().Err(err).Msg("Error during scheduled extraction")
		}
	}

	schedule := cfg.Extract.Schedule
	if schedule == "" {
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				log.Info().Msg("No extraction schedule configured, running once")
				go job()
				return nil
			},
			OnStop: func(ctx context.Context) error {
				cancel()
				return nil
			},
		})
		return nil, nil
	}

	c, err := NewCron(schedule, job)
	if err != nil {
		cancel()
		log.Error().Err(err).Str("schedule", schedule).Msg("Failed to add cron job")
		return nil, err
	}
	log.Info().Str("schedule", schedule).Msg("Scheduled extraction job")

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info().Msg("Starting cron scheduler")
			c.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info().Msg("Stopping cron scheduler...")
			cancel()
			stopCtx := c.Stop()
			select {
			case <-stopCtx.Done():
				log.Info().Msg("Cron scheduler stopped gracefully.")
				return nil
			case <-ctx.Done():
				log.Error().Msg("Context cancelled while waiting for cron scheduler to stop.")
				return ctx.Err()
			}
		},
	})

	return c, nil
}
