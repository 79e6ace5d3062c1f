package mail

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ezenity/ezenity-api/internal/observability"
)

// Background hands messages to the wrapped dispatcher on a separate
// goroutine. Send never blocks on delivery and never reports delivery
// failures; they are logged and counted.
type Background struct {
	next    Dispatcher
	timeout time.Duration
	logger  *slog.Logger
	wg      sync.WaitGroup
}

func NewBackground(next Dispatcher, timeout time.Duration, logger *slog.Logger) *Background {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Background{next: next, timeout: timeout, logger: logger}
}

func (b *Background) Send(ctx context.Context, msg Message) error {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), b.timeout)
		defer cancel()
		if err := b.next.Send(sendCtx, msg); err != nil {
			observability.RecordMailDispatch(sendCtx, string(msg.Template), "error")
			b.logger.ErrorContext(sendCtx, "mail dispatch failed", "template", string(msg.Template), "error", err)
			return
		}
		observability.RecordMailDispatch(sendCtx, string(msg.Template), "sent")
	}()
	return nil
}

// Wait blocks until in-flight messages finish or ctx ends.
func (b *Background) Wait(ctx context.Context) error {
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
