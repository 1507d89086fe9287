package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"eve-counter/internal/display"
)

var errPreviewBusy = errors.New("preview hub busy, frame dropped")

// drawFrame is the only message preview clients receive: the payload that was
// just sent to the matrix.
type drawFrame struct {
	Type string          `json:"type"`
	Data display.Payload `json:"data"`
}

// previewHub fans draw frames out to browser previews. New clients get the
// most recent frame first, so they never show a blank matrix.
type previewHub struct {
	viewers    map[*viewer]struct{}
	register   chan *viewer
	unregister chan *viewer
	frames     chan []byte
	current    []byte
	logger     *slog.Logger
}

type viewer struct {
	hub  *previewHub
	conn *websocket.Conn
	send chan []byte
}

func newPreviewHub(logger *slog.Logger) *previewHub {
	return &previewHub{
		viewers:    map[*viewer]struct{}{},
		register:   make(chan *viewer),
		unregister: make(chan *viewer),
		frames:     make(chan []byte, 64),
		logger:     logger,
	}
}

// publish queues p without blocking the caller.
func (h *previewHub) publish(p display.Payload) error {
	b, err := json.Marshal(drawFrame{Type: "draw", Data: p})
	if err != nil {
		return fmt.Errorf("encode draw frame: %w", err)
	}
	select {
	case h.frames <- b:
		return nil
	default:
		return errPreviewBusy
	}
}

func (h *previewHub) run() {
	for {
		select {
		case v := <-h.register:
			h.viewers[v] = struct{}{}
			if h.current != nil {
				v.send <- h.current
			}
		case v := <-h.unregister:
			if _, ok := h.viewers[v]; ok {
				delete(h.viewers, v)
				close(v.send)
			}
		case b := <-h.frames:
			h.current = b
			for v := range h.viewers {
				select {
				case v.send <- b:
				default:
					// too slow to keep up with the matrix
					close(v.send)
					delete(h.viewers, v)
				}
			}
		}
	}
}

var upgrader = websocket.Upgrader{
	HandshakeTimeout: 10 * time.Second,
	ReadBufferSize:   512,
	WriteBufferSize:  4096,
	CheckOrigin:      func(r *http.Request) bool { return true }, // local preview page
}

func (h *previewHub) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("preview upgrade", slog.String("err", err.Error()))
		return
	}
	v := &viewer{hub: h, conn: conn, send: make(chan []byte, 16)}
	h.register <- v
	h.logger.Debug("preview viewer connected", slog.String("remote", r.RemoteAddr))
	go v.writeLoop()
	go v.readLoop()
}

// readLoop only exists to notice the viewer going away.
func (v *viewer) readLoop() {
	defer func() {
		v.hub.unregister <- v
		_ = v.conn.Close()
	}()
	v.conn.SetReadLimit(512)
	_ = v.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	v.conn.SetPongHandler(func(string) error {
		return v.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	})
	for {
		if _, _, err := v.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writeLoop sends frames and keeps the connection alive. When frames queue up
// only the newest is written; older ones are already off the matrix.
func (v *viewer) writeLoop() {
	ticker := time.NewTicker(25 * time.Second)
	defer func() {
		ticker.Stop()
		_ = v.conn.Close()
	}()
	for {
		select {
		case b, ok := <-v.send:
			for ok && len(v.send) > 0 {
				b, ok = <-v.send
			}
			_ = v.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				_ = v.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := v.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				return
			}
		case <-ticker.C:
			_ = v.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := v.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
