// Package scheduler runs a named task on a fixed interval until the context
// is cancelled.
package scheduler

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

type Task func(ctx context.Context) error

type Scheduler struct {
	name     string
	interval time.Duration
	task     Task
}

func NewScheduler(name string, interval time.Duration, task Task) *Scheduler {
	return &Scheduler{
		name:     name,
		interval: interval,
		task:     task,
	}
}

func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.task(ctx); err != nil {
				logrus.Debugf("%s task: %v", s.name, err)
			}
		case <-ctx.Done():
			return
		}
	}
}
