// Package notify delivers the one-shot success and error toasts raised by
// API calls and the QR poller. Delivery is best effort: failures are logged
// and never surface to the caller.
package notify

import (
	"context"
	"log"
)

// Notifier receives toasts.
type Notifier interface {
	Success(ctx context.Context, msg string)
	Error(ctx context.Context, msg string)
}

type locationKey struct{}

// WithLocation tags ctx with the location a toast belongs to.
func WithLocation(ctx context.Context, locationID string) context.Context {
	return context.WithValue(ctx, locationKey{}, locationID)
}

// LocationFrom returns the location tagged by WithLocation, or "".
func LocationFrom(ctx context.Context) string {
	loc, _ := ctx.Value(locationKey{}).(string)
	return loc
}

// Log writes toasts to the standard logger.
type Log struct{}

func (Log) Success(_ context.Context, msg string) { log.Printf("notify: ok: %s", msg) }
func (Log) Error(_ context.Context, msg string)   { log.Printf("notify: error: %s", msg) }

// Multi fans a toast out to every notifier in order.
type Multi []Notifier

func (m Multi) Success(ctx context.Context, msg string) {
	for _, n := range m {
		if n != nil {
			n.Success(ctx, msg)
		}
	}
}

func (m Multi) Error(ctx context.Context, msg string) {
	for _, n := range m {
		if n != nil {
			n.Error(ctx, msg)
		}
	}
}
