package supervisor

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"eve-counter/internal/config"
	"eve-counter/internal/detector"
	"eve-counter/internal/zkill"
)

type Resetter interface {
	Reset(ctx context.Context) error
}

// Supervisor seeds the display and runs the feed and the change detector side
// by side until the context ends.
type Supervisor struct {
	cfg    config.Config
	window Resetter
	det    *detector.Detector
	feed   zkill.Feed
	log    *slog.Logger
}

func New(cfg config.Config, window Resetter, det *detector.Detector, feed zkill.Feed, logger *slog.Logger) *Supervisor {
	return &Supervisor{
		cfg:    cfg,
		window: window,
		det:    det,
		feed:   feed,
		log:    logger,
	}
}

// Run blocks until ctx is cancelled. Startup failures other than bad
// configuration are logged and do not stop the process.
func (s *Supervisor) Run(ctx context.Context) error {
	if err := s.cfg.Validate(); err != nil {
		return err
	}
	s.seed(ctx)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.feed.Run(gctx) })
	g.Go(func() error { return s.det.Run(gctx) })
	return g.Wait()
}

func (s *Supervisor) seed(ctx context.Context) {
	if s.cfg.Fresh {
		s.log.Info("flushing stored killmails")
		if err := s.window.Reset(ctx); err != nil {
			s.log.Error("flush failed", slog.String("err", err.Error()))
		}
	}
	s.det.Reset()
	if err := s.det.PublishInitial(ctx); err != nil {
		s.log.Error("initial display update failed", slog.String("err", err.Error()))
	}
}
