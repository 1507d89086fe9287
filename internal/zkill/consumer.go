package zkill

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"eve-counter/internal/config"
	"eve-counter/internal/state"
)

type ValueResolver interface {
	KillValue(ctx context.Context, killID int64) (int64, error)
}

type Sink interface {
	Ingest(ctx context.Context, id, value int64) error
}

// Consumer turns feed messages into signed values in the window. Each message
// is handled at most once; failures drop the message.
type Consumer struct {
	scope    config.Scope
	values   ValueResolver
	sink     Sink
	st       *state.State
	log      *slog.Logger
	onIngest func(ctx context.Context)
}

func NewConsumer(scope config.Scope, values ValueResolver, sink Sink, st *state.State, logger *slog.Logger) *Consumer {
	return &Consumer{
		scope:  scope,
		values: values,
		sink:   sink,
		st:     st,
		log:    logger,
	}
}

// OnIngest registers fn to run after every stored killmail.
func (c *Consumer) OnIngest(fn func(ctx context.Context)) {
	c.onIngest = fn
}

// HandleMessage decodes one raw feed message and consumes it, logging failures.
func (c *Consumer) HandleMessage(ctx context.Context, data []byte) {
	var km Killmail
	if err := json.Unmarshal(data, &km); err != nil {
		c.log.Warn("undecodable feed message", slog.String("err", err.Error()))
		return
	}
	if km.ID() == 0 {
		c.log.Debug("ignoring non-killmail message", slog.String("msg", string(data)))
		return
	}
	if err := c.Consume(ctx, km); err != nil {
		c.st.RecordDrop()
		c.log.Error("dropping killmail",
			slog.Int64("killmail_id", km.ID()),
			slog.String("err", err.Error()),
		)
	}
}

// Consume resolves the killmail's value, negates it for our own losses and
// stores it.
func (c *Consumer) Consume(ctx context.Context, km Killmail) error {
	id := km.ID()
	value, err := c.values.KillValue(ctx, id)
	if err != nil {
		return err
	}
	if km.LossFor(c.scope) {
		value = -value
	}
	c.log.Info("consuming killmail", slog.Int64("killmail_id", id), slog.Int64("value", value))

	if err := c.sink.Ingest(ctx, id, value); err != nil {
		return fmt.Errorf("store killmail: %w", err)
	}
	c.st.RecordIngest(time.Now())
	if c.onIngest != nil {
		c.onIngest(ctx)
	}
	return nil
}
