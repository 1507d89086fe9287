package publish

import (
	"context"
	"log/slog"

	"eve-counter/internal/display"
)

// Publisher delivers a rendered payload to the display.
type Publisher interface {
	Publish(ctx context.Context, p display.Payload) error
}

// Func adapts a plain function to Publisher.
type Func func(ctx context.Context, p display.Payload) error

func (f Func) Publish(ctx context.Context, p display.Payload) error { return f(ctx, p) }

// Tee publishes to Primary and, once that succeeded, hands the same payload to
// Mirror. Only the primary's outcome is reported; mirror failures are logged.
type Tee struct {
	Primary Publisher
	Mirror  Publisher
	Log     *slog.Logger
}

func (t Tee) Publish(ctx context.Context, p display.Payload) error {
	if err := t.Primary.Publish(ctx, p); err != nil {
		return err
	}
	if t.Mirror == nil {
		return nil
	}
	if err := t.Mirror.Publish(ctx, p); err != nil && t.Log != nil {
		t.Log.Warn("mirror publish", slog.String("err", err.Error()))
	}
	return nil
}
