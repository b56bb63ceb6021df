package app

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"oncall-sync/internal/usecase"
)

// HTTPServer returns a configured http.Server that exposes endpoints to trigger syncs.
// Call ListenAndServe on the returned server in a goroutine and Shutdown it on exit.
func (a *App) HTTPServer(addr string) *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.Handle("/metrics", a.metrics.Handler())

	// /sync?since=...&until=...
	// since/until accept RFC3339 or YYYY-MM-DD. If omitted, defaults to the
	// start of the month through the end of today.
	mux.HandleFunc("/sync", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		q := r.URL.Query()
		window, err := a.Window(q.Get("since"), q.Get("until"))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"status": "error",
				"error":  err.Error(),
			})
			return
		}

		rep, err := a.RunOnce(r.Context(), window)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, usecase.ErrAlreadyRunning) {
				status = http.StatusConflict
			}
			writeJSON(w, status, map[string]any{
				"status": "error",
				"error":  err.Error(),
				"since":  window.Since.Format(time.RFC3339),
				"until":  window.Until.Format(time.RFC3339),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"status":    "ok",
			"since":     window.Since.Format(time.RFC3339),
			"until":     window.Until.Format(time.RFC3339),
			"periods":   rep.Periods,
			"deleted":   rep.Deleted,
			"not_found": rep.NotFound,
			"created":   len(rep.Created),
		})
	})

	srv := &http.Server{
		Addr:              addr,
		Handler:           loggingMiddleware(a.log, mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	a.log.Info("http trigger server configured", slog.String("addr", addr))
	return srv
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// loggingMiddleware provides basic request logging.
func loggingMiddleware(log *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Info("http request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("remote", r.RemoteAddr),
			slog.Duration("dur", time.Since(start)),
		)
	})
}
