package app

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type pinger interface {
	Ping(ctx context.Context) error
}

type tickReporter interface {
	LastTick() time.Time
	Healthy(now time.Time) bool
}

type healthBody struct {
	Status   string `json:"status"`
	DB       string `json:"db"`
	LastTick string `json:"last_tick,omitempty"`
}

// healthRouter serves GET /healthz: 200 while the store answers and the
// tick loop is alive, 503 otherwise.
func healthRouter(db pinger, ticks tickReporter, now func() time.Time) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
		defer cancel()

		body := healthBody{Status: "ok", DB: "ok"}
		code := http.StatusOK
		if err := db.Ping(ctx); err != nil {
			body.DB = err.Error()
			body.Status = "degraded"
			code = http.StatusServiceUnavailable
		}
		if last := ticks.LastTick(); !last.IsZero() {
			body.LastTick = last.Format(time.RFC3339)
		}
		if !ticks.Healthy(now()) {
			body.Status = "degraded"
			code = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(body)
	})
	return r
}
