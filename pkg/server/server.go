// Package server streams live landmark frames over a websocket and answers each
// one with the rig rotations for that frame.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/miu200521358/sign-pose-trace/pkg/config"
	"github.com/miu200521358/sign-pose-trace/pkg/mlog"
	"github.com/miu200521358/sign-pose-trace/pkg/usecase"
)

const (
	RetargetPath = "/ws/retarget"
	HealthPath   = "/healthz"
)

type Server struct {
	cfg        *config.Config
	retargeter *usecase.Retargeter
	upgrader   websocket.Upgrader
	log        zerolog.Logger

	mu       sync.RWMutex
	sessions map[string]*session
}

func New(cfg *config.Config) (*Server, error) {
	retargeter, err := usecase.NewRetargeterFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	return &Server{
		cfg:        cfg,
		retargeter: retargeter,
		upgrader: websocket.Upgrader{
			// ブラウザのローカル開発用
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		log:      mlog.Component("server"),
		sessions: make(map[string]*session),
	}, nil
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(RetargetPath, s.handleRetarget)
	mux.HandleFunc(HealthPath, s.handleHealth)
	return mux
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", srv.Addr).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.log.Info().Msg("shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

// SessionCount is the number of open websocket sessions.
func (s *Server) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	err := json.NewEncoder(w).Encode(map[string]interface{}{
		"status":   "ok",
		"layout":   s.retargeter.Extractor.Layout.String(),
		"sessions": s.SessionCount(),
	})
	if err != nil {
		s.log.Warn().Err(err).Msg("failed to write health response")
	}
}

func (s *Server) handleRetarget(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	if s.cfg.Server.ReadLimit > 0 {
		conn.SetReadLimit(s.cfg.Server.ReadLimit)
	}

	sess := newSession(conn, s)

	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.sessions, sess.id)
		s.mu.Unlock()
		conn.Close()
	}()

	sess.run()
}
