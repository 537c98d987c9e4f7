package app

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"

	"github.com/roman-kulish/glide-recovery/internal/director"
	"github.com/roman-kulish/glide-recovery/internal/metrics"
)

// authority arms and disarms the director.
type authority interface {
	Enable()
	Disable()
}

// statusServer exposes the latest director status and Prometheus metrics.
type statusServer struct {
	status  *atomic.Pointer[director.Status]
	control authority
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func (s *statusServer) router() *mux.Router {
	router := mux.NewRouter()
	router.Handle("/metrics", s.metrics.Handler()).Methods("GET")
	router.HandleFunc("/status", s.statusHandler).Methods("GET")
	router.HandleFunc("/enable", s.authorityHandler(true)).Methods("POST")
	router.HandleFunc("/disable", s.authorityHandler(false)).Methods("POST")
	return router
}

func (s *statusServer) statusHandler(w http.ResponseWriter, _ *http.Request) {
	st := s.status.Load()
	if st == nil {
		http.Error(w, "no status yet", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(st); err != nil {
		s.logger.Warn("encoding status", slog.Any("error", err))
	}
}

func (s *statusServer) authorityHandler(enable bool) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		if enable {
			s.control.Enable()
		} else {
			s.control.Disable()
		}
		s.logger.Info("rudder authority changed", slog.Bool("enabled", enable))
		w.WriteHeader(http.StatusNoContent)
	}
}

// serve runs the HTTP server until ctx is cancelled.
func (s *statusServer) serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
