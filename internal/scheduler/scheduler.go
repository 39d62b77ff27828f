package scheduler

import (
	"context"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"go.uber.org/fx"

	"vectora-backend/config"
	"vectora-backend/internal/service"
)

// NewCron builds a cron runner whose specs carry a leading seconds field.
func NewCron() *cron.Cron {
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.DowOptional | cron.Descriptor)
	return cron.New(cron.WithParser(parser))
}

// AddSnapshotJob registers the snapshot export under schedule.
func AddSnapshotJob(c *cron.Cron, schedule string, snapshotSvc service.SnapshotService) (cron.EntryID, error) {
	return c.AddFunc(schedule, func() {
		if _, err := snapshotSvc.ExportSnapshot(context.Background()); err != nil {
			log.Error().Err(err).Msg("Error during scheduled dataset snapshot")
		}
	})
}

func NewScheduler(lc fx.Lifecycle, cfg *config.Config, snapshotSvc service.SnapshotService) *cron.Cron {
	c := NewCron()

	schedule := cfg.Snapshot.Schedule
	if _, err := AddSnapshotJob(c, schedule, snapshotSvc); err != nil {
		log.Fatal().Err(err).Str("schedule", schedule).Msg("Failed to add cron job")
		return nil
	}
	log.Info().Str("schedule", schedule).Msg("Scheduled dataset snapshot job")

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info().Msg("Starting cron scheduler")
			c.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info().Msg("Stopping cron scheduler...")
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

	return c
}
