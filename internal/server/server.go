// Package server provides the optional live status endpoint: a small HTTP
// API plus a WebSocket stream of session events, so a browser or script can
// follow a capture run and request a stop.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/snapdeck/snapdeck/internal/session"
)

// StatusResponse is the /api/status payload.
type StatusResponse struct {
	SessionID  string  `json:"session_id"`
	State      string  `json:"state"`
	Slides     int     `json:"slides"`
	Method     string  `json:"method"`
	Threshold  float64 `json:"threshold"`
	IntervalMS int64   `json:"interval_ms"`
}

// Server exposes one session over HTTP and WebSocket.
type Server struct {
	sess *session.Session

	mu    sync.RWMutex
	conns map[*websocket.Conn]struct{}
}

// New creates a server for the session and starts the event broadcaster.
func New(sess *session.Session) *Server {
	s := &Server{
		sess:  sess,
		conns: make(map[*websocket.Conn]struct{}),
	}
	go s.broadcastEvents()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/preview", s.handlePreview)
	mux.HandleFunc("POST /api/cancel", s.handleCancel)

	return corsMiddleware(mux)
}

// Serve listens on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	slog.Info("status server listening", "addr", addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("websocket accept error", "error", err)
		return
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()

	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
	}()

	slog.Info("status client connected", "remote", r.RemoteAddr)

	// Clients only listen; the read loop exists to notice disconnects.
	ctx := r.Context()
	for {
		var msg json.RawMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			slog.Debug("websocket read error", "error", err)
			return
		}
	}
}

func (s *Server) broadcastEvents() {
	for evt := range s.sess.Events() {
		s.mu.RLock()
		for conn := range s.conns {
			go func(c *websocket.Conn, ev session.Event) {
				_ = wsjson.Write(context.Background(), c, ev)
			}(conn, evt)
		}
		s.mu.RUnlock()
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	cfg := s.sess.Config()
	resp := StatusResponse{
		SessionID:  s.sess.ID().String(),
		State:      s.sess.State().String(),
		Slides:     s.sess.Preview().Index + 1,
		Method:     string(cfg.Method),
		Threshold:  cfg.Threshold,
		IntervalMS: cfg.Interval.Milliseconds(),
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	pv := s.sess.Preview()
	if pv.Index < 0 || len(pv.PNG) == 0 {
		http.Error(w, "no slide captured yet", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(pv.PNG)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	s.sess.Cancel()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "cancelling"})
}
