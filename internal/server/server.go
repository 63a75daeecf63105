// Package server exposes the host commands over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/truckmatch/routecompare/internal/commands"
	"github.com/truckmatch/routecompare/internal/dispatcher"
	"github.com/truckmatch/routecompare/internal/playback"
	"github.com/truckmatch/routecompare/internal/session"
	"github.com/truckmatch/routecompare/pkg/core"
)

const (
	maxBodyBytes    = 1 << 16
	shutdownTimeout = 5 * time.Second
)

// Dispatcher runs host commands.
type Dispatcher interface {
	Dispatch(ctx context.Context, e dispatcher.Event) (any, error)
}

// Server routes HTTP requests to host commands.
type Server struct {
	router   *mux.Router
	commands Dispatcher
	logger   *slog.Logger
}

// New builds the router. stream may be nil when live viewing is off.
func New(cmds Dispatcher, stream http.Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		router:   mux.NewRouter(),
		commands: cmds,
		logger:   logger,
	}

	s.router.HandleFunc("/healthz", s.health).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/frame", s.command(commands.Frame, nil)).Methods(http.MethodGet)
	api.HandleFunc("/geojson", s.command(commands.GeoJSON, nil)).Methods(http.MethodGet)
	api.HandleFunc("/scenario", s.command(commands.LoadScenario, scenarioArgs)).Methods(http.MethodPost)
	api.HandleFunc("/playback/toggle", s.command(commands.TogglePlay, nil)).Methods(http.MethodPost)
	api.HandleFunc("/playback/reset", s.command(commands.Reset, nil)).Methods(http.MethodPost)
	api.HandleFunc("/playback/speed", s.command(commands.SetSpeed, speedArgs)).Methods(http.MethodPost)
	if stream != nil {
		api.Handle("/ws", stream).Methods(http.MethodGet)
	}

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// argsFunc turns a request body into command arguments.
type argsFunc func(r *http.Request) ([]string, error)

func (s *Server) command(name string, parse argsFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var args []string
		if parse != nil {
			r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
			var err error
			if args, err = parse(r); err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
		}

		result, err := s.commands.Dispatch(r.Context(), dispatcher.Event{
			Command:   name,
			Args:      args,
			Timestamp: time.Now(),
		})
		if err != nil {
			status := statusFor(err)
			if status >= http.StatusInternalServerError {
				s.logger.Error("Command failed", "command", name, "error", err)
			}
			writeError(w, status, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func scenarioArgs(r *http.Request) ([]string, error) {
	var sc core.Scenario
	if err := json.NewDecoder(r.Body).Decode(&sc); err != nil {
		return nil, err
	}
	for _, c := range []*core.Coordinate{sc.Dest, sc.Orig, sc.Port} {
		if c != nil && !c.Valid() {
			return nil, core.ErrInvalidCoordinate
		}
	}
	return commands.ScenarioArgs(sc), nil
}

func speedArgs(r *http.Request) ([]string, error) {
	var body struct {
		Speed *float64 `json:"speed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return nil, err
	}
	if body.Speed == nil {
		return nil, errors.New("speed is required")
	}
	return []string{strconv.FormatFloat(*body.Speed, 'f', -1, 64)}, nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, dispatcher.ErrUnknownCommand):
		return http.StatusNotFound
	case errors.Is(err, commands.ErrUsage),
		errors.Is(err, core.ErrInvalidCoordinate),
		errors.Is(err, playback.ErrInvalidSpeed):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrClosed),
		errors.Is(err, dispatcher.ErrQueueFull),
		errors.Is(err, dispatcher.ErrClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
