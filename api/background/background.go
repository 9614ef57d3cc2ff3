// Package background runs fire-and-forget tasks, such as best-effort mirrors
// of local writes to the remote directory service, without blocking request
// handlers.
package background

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

type Background struct {
	log logrus.FieldLogger
	wg  sync.WaitGroup
}

func New(log logrus.FieldLogger) *Background {
	return &Background{log: log}
}

// Run executes task on its own goroutine. Errors and panics are logged, never
// propagated: background work must not fail the request that spawned it.
func (b *Background) Run(task func() error) {
	b.wg.Add(1)

	go func() {
		defer b.wg.Done()

		defer func() {
			if rec := recover(); rec != nil {
				b.log.WithField("message", fmt.Sprintf("PANIC: %v", rec)).Error("background task panicked")
			}
		}()

		if err := task(); err != nil {
			b.log.WithField("message", err).Warn("background task failed")
		}
	}()
}

// Shutdown waits for in-flight tasks, giving up when ctx expires.
func (b *Background) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
