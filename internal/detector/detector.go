package detector

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"eve-counter/internal/display"
	"eve-counter/internal/publish"
	"eve-counter/internal/window"
)

// Expired entries are only noticed on this cadence.
const pollInterval = 10 * time.Second

type Snapshotter interface {
	Snapshot(ctx context.Context) (window.Snapshot, error)
}

// Detector re-renders the display whenever the windowed total differs from
// the last total it successfully published.
type Detector struct {
	agg      Snapshotter
	pub      publish.Publisher
	log      *slog.Logger
	interval time.Duration

	mu        sync.Mutex
	lastTotal int64
}

func New(agg Snapshotter, pub publish.Publisher, logger *slog.Logger) *Detector {
	return &Detector{
		agg:      agg,
		pub:      pub,
		log:      logger,
		interval: pollInterval,
	}
}

// Reset forgets the last published total.
func (d *Detector) Reset() {
	d.mu.Lock()
	d.lastTotal = 0
	d.mu.Unlock()
}

// PublishInitial pushes the zero state so the matrix shows something before
// the first killmail arrives. It does not change the last published total.
func (d *Detector) PublishInitial(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.pub.Publish(ctx, display.Render([]int64{0}, 0, 0)); err != nil {
		return fmt.Errorf("publish initial display: %w", err)
	}
	return nil
}

// Check compares the current window total with the last published one and
// publishes a new render when they differ. A failed publish leaves the last
// total untouched so the next check retries.
func (d *Detector) Check(ctx context.Context) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	snap, err := d.agg.Snapshot(ctx)
	if err != nil {
		return false, err
	}
	if snap.Total == d.lastTotal {
		return false, nil
	}
	p := display.Render(snap.Values, snap.Total, d.lastTotal)
	if err := d.pub.Publish(ctx, p); err != nil {
		return false, fmt.Errorf("publish display: %w", err)
	}
	d.log.Info("display updated",
		slog.Int64("total", snap.Total),
		slog.Int64("previous", d.lastTotal),
		slog.Int("events", len(snap.Values)),
	)
	d.lastTotal = snap.Total
	return true, nil
}

// Trigger runs a check and logs any failure.
func (d *Detector) Trigger(ctx context.Context) {
	if _, err := d.Check(ctx); err != nil {
		d.log.Error("display check failed", slog.String("err", err.Error()))
	}
}

// Run checks immediately and then on every tick until ctx is done.
func (d *Detector) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	for {
		d.Trigger(ctx)
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (d *Detector) LastTotal() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastTotal
}
