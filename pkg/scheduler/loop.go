package scheduler

import (
	"time"

	"github.com/framewell/renderfarm/pkg/log"
)

// Cycler runs one scheduling cycle. Implemented by the farm manager.
type Cycler interface {
	RunSchedulingCycle() error
}

// Loop drives scheduling cycles on a fixed interval.
type Loop struct {
	cycler   Cycler
	interval time.Duration
	stopCh   chan struct{}
}

// NewLoop creates a loop invoking the cycler every interval.
func NewLoop(cycler Cycler, interval time.Duration) *Loop {
	return &Loop{
		cycler:   cycler,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the scheduling loop in a background goroutine.
func (l *Loop) Start() {
	go l.run()
}

// Stop stops the loop. Safe to call once.
func (l *Loop) Stop() {
	close(l.stopCh)
}

func (l *Loop) run() {
	logger := log.WithComponent("scheduler")

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := l.cycler.RunSchedulingCycle(); err != nil {
				logger.Error().Err(err).Msg("scheduling cycle failed")
			}
		case <-l.stopCh:
			return
		}
	}
}
