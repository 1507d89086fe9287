package publish

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eve-counter/internal/display"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestTeeMirrorsAfterPrimary(t *testing.T) {
	var primary, mirror []display.Payload
	tee := Tee{
		Primary: Func(func(_ context.Context, p display.Payload) error { primary = append(primary, p); return nil }),
		Mirror:  Func(func(_ context.Context, p display.Payload) error { mirror = append(mirror, p); return nil }),
	}
	p := display.Render(nil, 0, 0)

	require.NoError(t, tee.Publish(context.Background(), p))
	assert.Len(t, primary, 1)
	assert.Len(t, mirror, 1)
}

func TestTeePrimaryFailureSkipsMirror(t *testing.T) {
	boom := errors.New("broker down")
	mirrored := false
	tee := Tee{
		Primary: Func(func(context.Context, display.Payload) error { return boom }),
		Mirror:  Func(func(context.Context, display.Payload) error { mirrored = true; return nil }),
	}

	assert.ErrorIs(t, tee.Publish(context.Background(), display.Payload{}), boom)
	assert.False(t, mirrored)
}

func TestTeeMirrorFailureIsNotReported(t *testing.T) {
	tee := Tee{
		Primary: Func(func(context.Context, display.Payload) error { return nil }),
		Mirror:  Func(func(context.Context, display.Payload) error { return errors.New("no clients") }),
		Log:     discardLogger(),
	}
	assert.NoError(t, tee.Publish(context.Background(), display.Payload{}))
}

func TestBrokerURL(t *testing.T) {
	assert.Equal(t, "tcp://localhost:1883", BrokerURL("localhost", 1883))
}

func TestMQTTPublishUnreachableBroker(t *testing.T) {
	m := NewMQTT("127.0.0.1", 1, DefaultTopic, discardLogger())
	defer m.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	assert.Error(t, m.Publish(ctx, display.Render(nil, 0, 0)))
}

// fakeBroker accepts a single MQTT session, acknowledges its CONNECT and
// discards everything after it. hangUp drops the session and stops listening.
type fakeBroker struct {
	ln net.Listener

	mu   sync.Mutex
	conn net.Conn
}

func newFakeBroker(t *testing.T) *fakeBroker {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	b := &fakeBroker{ln: ln}
	t.Cleanup(b.hangUp)

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		b.mu.Lock()
		b.conn = conn
		b.mu.Unlock()

		r := bufio.NewReader(conn)
		if err := skipPacket(r); err != nil {
			return
		}
		if _, err := conn.Write([]byte{0x20, 0x02, 0x00, 0x00}); err != nil { // CONNACK, accepted
			return
		}
		_, _ = io.Copy(io.Discard, r)
	}()
	return b
}

func (b *fakeBroker) port() int { return b.ln.Addr().(*net.TCPAddr).Port }

func (b *fakeBroker) hangUp() {
	_ = b.ln.Close()
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn != nil {
		_ = b.conn.Close()
	}
}

// skipPacket reads one MQTT control packet: a type byte, a variable length
// remaining-length field, then the body.
func skipPacket(r *bufio.Reader) error {
	if _, err := r.ReadByte(); err != nil {
		return err
	}
	length, mult := 0, 1
	for {
		c, err := r.ReadByte()
		if err != nil {
			return err
		}
		length += int(c&0x7f) * mult
		if c&0x80 == 0 {
			break
		}
		mult *= 128
	}
	_, err := io.CopyN(io.Discard, r, int64(length))
	return err
}

func TestMQTTPublishFailsAfterBrokerHangsUp(t *testing.T) {
	b := newFakeBroker(t)
	m := NewMQTT("127.0.0.1", b.port(), DefaultTopic, discardLogger())
	defer m.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, m.Publish(ctx, display.Render(nil, 0, 0)))

	b.hangUp()
	require.Eventually(t, func() bool { return !m.client.IsConnectionOpen() }, 2*time.Second, 10*time.Millisecond)

	// Every publish while the broker is gone must fail so the caller retries.
	assert.Error(t, m.Publish(ctx, display.Render([]int64{-500}, -500, 0)))
	assert.Error(t, m.Publish(ctx, display.Render([]int64{-500}, -500, 0)))
}
