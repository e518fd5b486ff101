package rate

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/sirupsen/logrus"
)

// Scheduler keeps current rates warm: a periodic lookup of the base
// currency trips the normal miss-and-refresh path whenever the TTL window
// has emptied, so read-silent periods don't leave the cache stale.
type Scheduler struct {
	cache    *Cache
	base     *BaseCurrency
	interval time.Duration
	// -----
	sched gocron.Scheduler
}

func NewScheduler(cache *Cache, base *BaseCurrency, interval time.Duration) *Scheduler {
	return &Scheduler{cache: cache, base: base, interval: interval}
}

func (s *Scheduler) Start(ctx context.Context) error {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return err
	}
	s.sched = scheduler

	job := func(jobCtx context.Context) {
		if _, refreshErr := s.cache.GetCurrent(jobCtx, s.base.Current()); refreshErr != nil {
			logrus.WithError(refreshErr).Warn("Warm refresh job failed")
		}
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(job),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return err
	}

	scheduler.Start()

	// Stop scheduler when the provided context is canceled.
	go func() {
		<-ctx.Done()
		if sdErr := s.Shutdown(); sdErr != nil {
			logrus.Errorf("Scheduler shutdown error: %v", sdErr)
		}
	}()
	return nil
}

func (s *Scheduler) Shutdown() error {
	if s.sched == nil {
		return nil
	}
	err := s.sched.Shutdown()
	s.sched = nil
	return err
}
