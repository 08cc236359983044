package queue

import (
	"context"
	"log/slog"
	"time"
)

// Poller periodically reloads the queue until every task is terminal, it is
// stopped, or its context ends.
type Poller struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func newPoller(ctx context.Context, interval time.Duration, tick func(context.Context) bool, logger *slog.Logger) *Poller {
	ctx, cancel := context.WithCancel(ctx)
	p := &Poller{
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go func() {
		defer close(p.done)
		defer cancel()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if tick(ctx) {
					logger.Debug("queue settled, polling stopped")
					return
				}
			}
		}
	}()

	return p
}

// Stop cancels the poller and waits for it to exit.
func (p *Poller) Stop() {
	p.cancel()
	<-p.done
}

// Done is closed when the poller has exited.
func (p *Poller) Done() <-chan struct{} {
	return p.done
}
