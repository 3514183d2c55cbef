package scheduler

import (
	"log"
	"time"

	"github.com/go-co-op/gocron"
)

// Pruner removes expired weather-cache rows.
type Pruner interface {
	PruneExpired(now time.Time) (int, error)
}

// Scheduler periodically prunes the local weather cache so the store file
// does not grow with every place the user ever searched.
type Scheduler struct {
	scheduler *gocron.Scheduler
	store     Pruner
	interval  time.Duration
}

// New creates a Scheduler.
func New(store Pruner, interval time.Duration) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	return &Scheduler{
		scheduler: s,
		store:     store,
		interval:  interval,
	}
}

// Start schedules the prune job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	minutes := int(s.interval.Minutes())
	if minutes <= 0 {
		minutes = 15
	}

	_, err := s.scheduler.Every(minutes).Minutes().Do(func() {
		n, err := s.store.PruneExpired(time.Now().UTC())
		if err != nil {
			log.Printf("scheduler: cache prune failed: %v", err)
			return
		}
		if n > 0 {
			log.Printf("scheduler: pruned %d expired cache entries", n)
		}
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
