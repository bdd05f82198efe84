// Package http exposes the watch-mode status server.
package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/m-mizutani/goerr/v2"

	"github.com/secmon-lab/idsync/pkg/domain/model"
	"github.com/secmon-lab/idsync/pkg/service/worker"
	"github.com/secmon-lab/idsync/pkg/utils/errutil"
	"github.com/secmon-lab/idsync/pkg/utils/logging"
	"github.com/secmon-lab/idsync/pkg/utils/safe"
)

type Server struct {
	router *chi.Mux
	worker *worker.SyncWorker
}

func New(w *worker.SyncWorker) *Server {
	r := chi.NewRouter()

	s := &Server{
		router: r,
		worker: w,
	}

	r.Use(middleware.RequestID)
	r.Use(accessLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", healthHandler)
	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.statusHandler)
		r.Post("/sync", s.triggerHandler)
	})

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// accessLogger is a middleware that logs HTTP requests
func accessLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			logging.Default().Info("access",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"remote", r.RemoteAddr,
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	safe.Write(r.Context(), w, []byte("OK"))
}

// statusHandler serves the outcome of the most recent run
func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	type response struct {
		State      string           `json:"state"`
		LastReport *model.RunReport `json:"lastReport,omitempty"`
		LastError  string           `json:"lastError,omitempty"`
	}

	report, runErr := s.worker.LastReport()
	resp := response{State: "idle"}
	switch {
	case runErr != nil:
		resp.State = "error"
		resp.LastError = runErr.Error()
		resp.LastReport = report
	case report != nil:
		resp.State = "synced"
		resp.LastReport = report
	}

	data, err := json.Marshal(resp)
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, goerr.Wrap(err, "failed to marshal status response"), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	safe.Write(r.Context(), w, data)
}

// triggerHandler starts a run on demand. A run already in flight is
// reported as a conflict.
func (s *Server) triggerHandler(w http.ResponseWriter, r *http.Request) {
	if !s.worker.Trigger(r.Context()) {
		errutil.HandleHTTP(r.Context(), w, goerr.New("sync already running"), http.StatusConflict)
		return
	}
	w.WriteHeader(http.StatusAccepted)
	safe.Write(r.Context(), w, []byte(`{"status":"accepted"}`))
}
