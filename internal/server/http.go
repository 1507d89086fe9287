package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"eve-counter/internal/config"
	"eve-counter/internal/display"
	"eve-counter/internal/publish"
	"eve-counter/internal/state"
)

// HTTPServer exposes feed status and mirrors published frames to websocket
// clients at /ws, so the matrix can be previewed in a browser.
type HTTPServer struct {
	cfg config.Config
	st  *state.State
	hub *previewHub
	log *slog.Logger
	mux *http.ServeMux
}

var _ publish.Publisher = (*HTTPServer)(nil)

func NewHTTPServer(cfg config.Config, st *state.State, logger *slog.Logger) *HTTPServer {
	s := &HTTPServer{
		cfg: cfg,
		st:  st,
		hub: newPreviewHub(logger),
		log: logger,
		mux: http.NewServeMux(),
	}
	s.routes()
	go s.hub.run()
	return s
}

func (s *HTTPServer) Router() http.Handler { return s.mux }

// Publish queues p for every connected preview client. It never blocks on
// slow clients.
func (s *HTTPServer) Publish(_ context.Context, p display.Payload) error {
	return s.hub.publish(p)
}

// --------- Routes ----------

func (s *HTTPServer) routes() {
	s.mux.HandleFunc("/ws", s.hub.serveWS)
	s.mux.HandleFunc("/api/health", s.apiHealth)
	s.mux.HandleFunc("/api/config", s.apiConfig)
}

func (s *HTTPServer) apiHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"ok":        true,
		"connected": s.st.Connected(),
		"ingested":  s.st.Ingested(),
		"dropped":   s.st.Dropped(),
	}
	if last := s.st.LastEvent(); !last.IsZero() {
		resp["lastEventISO"] = last.UTC().Format(time.RFC3339)
	}
	writeJSON(w, resp)
}

func (s *HTTPServer) apiConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"channel":         s.cfg.Scope().Channel(),
		"lifetimeSeconds": s.cfg.LifetimeSeconds,
		"mqttTopic":       s.cfg.MQTTTopic,
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
