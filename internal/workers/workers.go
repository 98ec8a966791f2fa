package workers

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"poiAPI/internal/logger"
)

// Sweeper drops caches idle for longer than idle and reports how many it removed.
type Sweeper interface {
	Sweep(idle time.Duration) int
}

// StartCleanupWorker sweeps s every interval until ctx ends. The returned
// channel closes when the worker has stopped.
func StartCleanupWorker(ctx context.Context, name string, s Sweeper, interval, idle time.Duration, log *logger.Logger) <-chan struct{} {
	done := make(chan struct{})
	ticker := time.NewTicker(interval)

	go func() {
		defer close(done)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if removed := s.Sweep(idle); removed > 0 {
					log.Entry().WithFields(logrus.Fields{
						"cache":   name,
						"removed": removed,
					}).Info("Swept idle caches")
				}
			}
		}
	}()

	return done
}
