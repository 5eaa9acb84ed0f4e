package report

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Scheduler fires the daily report build on a cron schedule (local time)
type Scheduler struct {
	cron   *cron.Cron
	logger zerolog.Logger
}

// NewScheduler schedules BuildDailyReport according to spec, e.g. "0 23 * * *"
func NewScheduler(acc *Accumulator, spec string, logger zerolog.Logger) (*Scheduler, error) {
	log := logger.With().Str("component", "report_scheduler").Logger()

	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		if _, err := acc.BuildDailyReport(ctx, time.Now()); err != nil {
			log.Error().Err(err).Msg("scheduled report generation failed")
		}
	})
	if err != nil {
		return nil, err
	}

	return &Scheduler{cron: c, logger: log}, nil
}

// Start begins the schedule
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info().Msg("report scheduler started")
}

// Stop halts the schedule and waits for a running job to finish
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info().Msg("report scheduler stopped")
}
