// Package scheduler runs the periodic session sweep.
package scheduler

import (
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/i474232898/weather-dashboard/internal/profile"
)

// Janitor periodically evicts idle session stores from the profile manager.
type Janitor struct {
	scheduler *gocron.Scheduler
	manager   *profile.Manager
	interval  time.Duration
	idleTTL   time.Duration
	log       *zap.Logger
}

// New creates a Janitor sweeping every interval and evicting sessions idle
// longer than idleTTL.
func New(manager *profile.Manager, interval, idleTTL time.Duration, log *zap.Logger) *Janitor {
	s := gocron.NewScheduler(time.UTC)
	return &Janitor{
		scheduler: s,
		manager:   manager,
		interval:  interval,
		idleTTL:   idleTTL,
		log:       log,
	}
}

// Start schedules the periodic sweep and starts the underlying scheduler.
func (j *Janitor) Start() error {
	interval := j.interval
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	_, err := j.scheduler.Every(interval).Do(func() {
		evicted := j.manager.EvictIdle(j.idleTTL)
		j.log.Debug("session sweep completed",
			zap.Int("evicted", evicted),
			zap.Int("active", j.manager.ActiveSessions()),
		)
	})
	if err != nil {
		return err
	}

	j.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future sweeps.
func (j *Janitor) Stop() {
	if j.scheduler != nil {
		j.scheduler.Stop()
	}
}
