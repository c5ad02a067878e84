// Package scheduler runs a job once per calendar day at a fixed local time.
// The runner carries no state of its own: the job must be idempotent, and a
// missed trigger is healed by invoking the job manually (the CLI exposes it).
package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Job is the unit of work executed by the daily runner.
type Job func(ctx context.Context) error

// Daily triggers a job every day at a fixed hour and minute.
type Daily struct {
	name   string
	hour   int
	minute int
	job    Job
	logger zerolog.Logger
	now    func() time.Time // injectable clock for tests
}

func NewDaily(name string, hour, minute int, job Job, logger zerolog.Logger) *Daily {
	return &Daily{
		name:   name,
		hour:   hour,
		minute: minute,
		job:    job,
		logger: logger,
		now:    time.Now,
	}
}

// NextRun returns the next trigger time strictly after the given instant.
func (d *Daily) NextRun(after time.Time) time.Time {
	next := time.Date(after.Year(), after.Month(), after.Day(), d.hour, d.minute, 0, 0, after.Location())
	if !next.After(after) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// Start launches the scheduling loop in a goroutine. Each day the job runs at
// the configured time; a failed run is logged and retried on the next tick
// rather than aborting the loop. The loop stops when ctx is cancelled.
func (d *Daily) Start(ctx context.Context) {
	go func() {
		for {
			next := d.NextRun(d.now())
			d.logger.Info().
				Str("job", d.name).
				Time("next_run", next).
				Msg("scheduled next run")

			timer := time.NewTimer(next.Sub(d.now()))
			select {
			case <-ctx.Done():
				timer.Stop()
				d.logger.Info().Str("job", d.name).Msg("scheduler stopped")
				return
			case <-timer.C:
				d.Run(ctx)
			}
		}
	}()
}

// Run executes the job once, immediately. Safe to call concurrently with the
// scheduled loop because the job's safety comes from its own transaction.
func (d *Daily) Run(ctx context.Context) {
	start := d.now()
	if err := d.job(ctx); err != nil {
		d.logger.Error().
			Err(err).
			Str("job", d.name).
			Dur("duration", d.now().Sub(start)).
			Msg("job run failed")
		return
	}
	d.logger.Info().
		Str("job", d.name).
		Dur("duration", d.now().Sub(start)).
		Msg("job run completed")
}
