package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Notifier delivers one push notification to one device token.
type Notifier interface {
	Send(ctx context.Context, token, title, body string, data map[string]string) error
}

// Dispatcher sends notifications fire-and-forget: each Dispatch runs on its
// own goroutine with its own timeout, failures are logged and never reach
// the caller. Wait drains in-flight sends during shutdown.
type Dispatcher struct {
	notifier Notifier
	log      *slog.Logger
	timeout  time.Duration

	wg sync.WaitGroup
}

func NewDispatcher(notifier Notifier, log *slog.Logger, timeout time.Duration) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Dispatcher{
		notifier: notifier,
		log:      log.With(slog.String("component", "notify.dispatcher")),
		timeout:  timeout,
	}
}

func (d *Dispatcher) Dispatch(token, title, body string, data map[string]string) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		if err := d.notifier.Send(ctx, token, title, body, data); err != nil {
			d.log.Error("push notification failed",
				slog.String("title", title),
				slog.String("event", data["event"]),
				slog.Any("err", err),
			)
			return
		}
		d.log.Debug("push notification sent",
			slog.String("title", title),
			slog.String("event", data["event"]),
		)
	}()
}

func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
