package zkill

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"eve-counter/internal/state"
)

// ErrTransport marks feed connection failures. They end a session, never the process.
var ErrTransport = errors.New("feed transport")

const (
	reconnectDelay = 60 * time.Second
	pingInterval   = 30 * time.Second
	writeWait      = 10 * time.Second
)

type Feed interface {
	Run(ctx context.Context) error
}

// Listener keeps a websocket subscription to the killmail feed alive and hands
// every message to its Consumer. A dropped session is retried after a fixed
// delay, forever.
type Listener struct {
	url      string
	channel  string
	consumer *Consumer
	st       *state.State
	log      *slog.Logger
	dialer   *websocket.Dialer

	reconnectDelay time.Duration
	pingInterval   time.Duration
}

var _ Feed = (*Listener)(nil)

func NewListener(url, channel string, consumer *Consumer, st *state.State, logger *slog.Logger) *Listener {
	return &Listener{
		url:            url,
		channel:        channel,
		consumer:       consumer,
		st:             st,
		log:            logger,
		dialer:         &websocket.Dialer{HandshakeTimeout: 30 * time.Second, Proxy: websocket.DefaultDialer.Proxy},
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
	}
}

// Run blocks until ctx is done.
func (l *Listener) Run(ctx context.Context) error {
	for {
		if err := l.listen(ctx); err != nil {
			l.log.Error("feed session ended", slog.String("err", err.Error()))
		}
		l.st.SetConnected(false)
		if ctx.Err() != nil {
			return nil
		}
		l.log.Info("connection with feed dropped, reconnecting", slog.Duration("in", l.reconnectDelay))
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(l.reconnectDelay):
		}
	}
}

// listen runs one connect, subscribe, read session. The keepalive goroutine is
// scoped to the session and always stopped before listen returns.
func (l *Listener) listen(ctx context.Context) error {
	ws, _, err := l.dialer.DialContext(ctx, l.url, nil)
	if err != nil {
		return fmt.Errorf("%w: dial %s: %w", ErrTransport, l.url, err)
	}
	defer ws.Close()

	var wmu sync.Mutex
	write := func(v any) error {
		wmu.Lock()
		defer wmu.Unlock()
		_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
		return ws.WriteJSON(v)
	}

	sessCtx, cancel := context.WithCancel(ctx)
	var g errgroup.Group
	defer func() {
		cancel()
		_ = g.Wait()
	}()

	// unblock ReadMessage when the session is cancelled from outside
	g.Go(func() error {
		<-sessCtx.Done()
		_ = ws.Close()
		return nil
	})

	l.log.Info("sending feed subscription", slog.String("channel", l.channel))
	if err := write(subscribeMsg{Action: "sub", Channel: l.channel}); err != nil {
		return fmt.Errorf("%w: subscribe: %w", ErrTransport, err)
	}
	g.Go(func() error {
		l.keepalive(sessCtx, write)
		return nil
	})
	l.st.SetConnected(true)
	l.log.Info("connected to feed, waiting for killmails")

	ws.SetReadLimit(1 << 20)
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if sessCtx.Err() != nil {
				return nil
			}
			return fmt.Errorf("%w: read: %w", ErrTransport, err)
		}
		l.consumer.HandleMessage(sessCtx, data)
	}
}

// keepalive sends {"ping": n} with an increasing n. A failed send ends the
// keepalive only; the read loop notices a dead connection on its own.
func (l *Listener) keepalive(ctx context.Context, write func(any) error) {
	ticker := time.NewTicker(l.pingInterval)
	defer ticker.Stop()
	for n := 0; ; n++ {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if err := write(pingMsg{Ping: n}); err != nil {
			l.log.Warn("feed ping failed, stopping keepalive", slog.String("err", err.Error()))
			return
		}
	}
}
