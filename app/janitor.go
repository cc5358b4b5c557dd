package app

import (
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Sweeper is any cache that can evict its stale entries in one pass and
// report how many it dropped.
type Sweeper interface {
	Sweep() int
}

// DefaultSweepSchedule runs the sweep every five minutes. Sweeping is pure
// memory hygiene: correctness never depends on it because reads expire
// entries lazily.
const DefaultSweepSchedule = "@every 5m"

// Janitor periodically sweeps registered caches on a cron schedule.
type Janitor struct {
	cron   *cron.Cron
	logger zerolog.Logger

	names    []string
	sweepers []Sweeper
}

// NewJanitor creates an idle janitor; register caches with Add, then Start.
func NewJanitor(logger zerolog.Logger) *Janitor {
	return &Janitor{
		cron:   cron.New(),
		logger: logger,
	}
}

// Add registers a cache under a name used in sweep logs.
func (j *Janitor) Add(name string, s Sweeper) {
	j.names = append(j.names, name)
	j.sweepers = append(j.sweepers, s)
}

// Start schedules the sweep and starts the cron runner. schedule uses cron
// syntax ("@every 5m", "*/5 * * * *"); empty means DefaultSweepSchedule.
func (j *Janitor) Start(schedule string) error {
	if schedule == "" {
		schedule = DefaultSweepSchedule
	}

	if _, err := j.cron.AddFunc(schedule, j.sweepAll); err != nil {
		return fmt.Errorf("schedule sweep: %w", err)
	}

	j.cron.Start()
	j.logger.Info().Str("schedule", schedule).Int("caches", len(j.sweepers)).
		Msg("cache janitor started")
	return nil
}

// Stop stops the cron runner; a sweep already in flight finishes.
func (j *Janitor) Stop() {
	ctx := j.cron.Stop()
	<-ctx.Done()
	j.logger.Info().Msg("cache janitor stopped")
}

func (j *Janitor) sweepAll() {
	for i, s := range j.sweepers {
		if n := s.Sweep(); n > 0 {
			j.logger.Debug().Str("cache", j.names[i]).Int("evicted", n).
				Msg("swept stale cache entries")
		}
	}
}
