package zkill

import (
	"context"
	"log/slog"
)

// ---------- Test/mock feed (handy for integration tests & demos) ----------

// MockFeed pushes killmails sent with Send through a real Consumer, without a
// websocket.
type MockFeed struct {
	consumer *Consumer
	log      *slog.Logger
	msgs     chan Killmail
}

var _ Feed = (*MockFeed)(nil)

func NewMockFeed(consumer *Consumer, logger *slog.Logger) *MockFeed {
	return &MockFeed{
		consumer: consumer,
		log:      logger,
		msgs:     make(chan Killmail, 16),
	}
}

func (m *MockFeed) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case km := <-m.msgs:
			if err := m.consumer.Consume(ctx, km); err != nil {
				m.log.Error("dropping killmail", slog.Int64("killmail_id", km.ID()), slog.String("err", err.Error()))
			}
		}
	}
}

// Send queues a killmail for the running feed.
func (m *MockFeed) Send(km Killmail) { m.msgs <- km }
