package notify

import (
	"context"
	"log"

	"github.com/zulandar/wapanel/internal/models"
)

// ActivityStore persists toast history.
type ActivityStore interface {
	AddActivity(ctx context.Context, level, text, locationID string) error
}

// Recorder stores toasts so the dashboard can flash them on the next page.
type Recorder struct {
	Store ActivityStore
}

func (r Recorder) Success(ctx context.Context, msg string) {
	r.record(ctx, models.LevelSuccess, msg)
}

func (r Recorder) Error(ctx context.Context, msg string) {
	r.record(ctx, models.LevelError, msg)
}

func (r Recorder) record(ctx context.Context, level, msg string) {
	// The request may already be gone; the toast should still be kept.
	ctx = context.WithoutCancel(ctx)
	if err := r.Store.AddActivity(ctx, level, msg, LocationFrom(ctx)); err != nil {
		log.Printf("notify: record %s toast: %v", level, err)
	}
}
