// Package server exposes the read-only HTTP surface over the projection:
// the latest normalized snapshot, a server-sent-events stream of snapshot
// updates, and a health probe.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/louisbranch/payrollwatch/internal/payroll/normalize"
	"github.com/louisbranch/payrollwatch/internal/payroll/service"
	"github.com/louisbranch/payrollwatch/internal/payroll/state"
	apperrors "github.com/louisbranch/payrollwatch/internal/platform/errors"
)

// shutdownTimeout caps how long graceful shutdown waits for in-flight
// requests.
const shutdownTimeout = 5 * time.Second

// Config defines the inputs for the HTTP server.
type Config struct {
	Addr string
}

// Server hosts the projection's HTTP read surface.
type Server struct {
	projection *service.Service
	httpServer *http.Server
	logger     *log.Logger
}

// New builds a configured server.
func New(projection *service.Service, config Config, logger *log.Logger) (*Server, error) {
	addr := strings.TrimSpace(config.Addr)
	if addr == "" {
		return nil, errors.New("http address is required")
	}
	if logger == nil {
		logger = log.Default()
	}

	s := &Server{projection: projection, logger: logger}
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/state", s.HandleState)
	mux.HandleFunc("/v1/state/stream", s.HandleStateStream)
	mux.HandleFunc("/v1/employees/", s.HandleEmployee)
	mux.HandleFunc("/healthz", s.HandleHealthz)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s, nil
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return <-errCh
}

// HandleState returns the latest normalized snapshot.
func (s *Server) HandleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, s.projection.Latest())
}

// HandleEmployee returns one employee from the latest snapshot, looked up by
// numeric id or account address.
func (s *Server) HandleEmployee(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	key := strings.TrimPrefix(r.URL.Path, "/v1/employees/")
	if strings.TrimSpace(key) == "" {
		s.writeError(w, apperrors.New(apperrors.CodeNotFound, "employee id or address is required"))
		return
	}

	snapshot := s.projection.Latest()
	if !snapshot.Ready {
		s.writeError(w, apperrors.New(apperrors.CodeNotInitialized, "projection is not ready"))
		return
	}
	for _, employee := range snapshot.Employees {
		if employee.ID == key || state.AddressesEqual(employee.AccountAddress, key) {
			s.writeJSON(w, employee)
			return
		}
	}
	s.writeError(w, apperrors.WithMetadata(apperrors.CodeNotFound, "employee not found",
		map[string]string{"key": key}))
}

// HandleStateStream streams one snapshot per committed fold as server-sent
// events, starting with the current snapshot so clients render immediately.
func (s *Server) HandleStateStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	id, updates := s.projection.Subscribe()
	defer s.projection.Unsubscribe(id)

	if err := writeSSE(w, s.projection.Latest()); err != nil {
		return
	}
	flusher.Flush()

	for {
		select {
		case snapshot, ok := <-updates:
			if !ok {
				return
			}
			if err := writeSSE(w, snapshot); err != nil {
				return
			}
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

// HandleHealthz reports liveness, and readiness of the projection snapshot.
func (s *Server) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, map[string]bool{"ok": true, "ready": s.projection.Latest().Ready})
}

func (s *Server) writeJSON(w http.ResponseWriter, value any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(value); err != nil {
		s.logger.Printf("server: encode response: %v", err)
	}
}

// writeError renders a domain error as JSON with the status its code maps to.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := apperrors.GetCode(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code.HTTPStatus())
	body := map[string]string{"code": string(code), "error": err.Error()}
	if encErr := json.NewEncoder(w).Encode(body); encErr != nil {
		s.logger.Printf("server: encode error response: %v", encErr)
	}
}

func writeSSE(w http.ResponseWriter, snapshot normalize.DisplayState) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: state\ndata: %s\n\n", payload)
	return err
}
