// Package httptransport assembles the HTTP surface: shared middleware,
// health and metrics endpoints, and the module handlers.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	alliancehandler "collabcore/internal/alliance/handler"
	billinghandler "collabcore/internal/billing/handler"
	"collabcore/internal/platform/metrics"
	"collabcore/internal/platform/middleware"
	reputationhandler "collabcore/internal/reputation/handler"
	verificationhandler "collabcore/internal/verification/handler"
	"collabcore/pkg/platform/httputil"
)

// Checker reports the health of one backing dependency.
type Checker interface {
	Health(ctx context.Context) error
}

// Deps carries everything the router mounts.
type Deps struct {
	Logger       *slog.Logger
	Metrics      *metrics.Metrics
	Validator    middleware.JWTValidator
	Alliances    *alliancehandler.Handler
	Verification *verificationhandler.Handler
	Reputation   *reputationhandler.Handler
	Billing      *billinghandler.Handler
	Checkers     map[string]Checker
}

// NewRouter builds the full route tree. The billing webhook is the only
// mutating endpoint outside bearer auth; its HMAC signature is the gate.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(d.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(d.Logger))
	r.Use(middleware.Timeout(30 * time.Second))
	if d.Metrics != nil {
		r.Use(middleware.Latency(d.Metrics))
	}

	r.Get("/healthz", handleHealth(d.Checkers))
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(auth chi.Router) {
		auth.Use(middleware.ContentTypeJSON)
		auth.Use(middleware.RequireAuth(d.Validator, d.Logger))

		if d.Alliances != nil {
			d.Alliances.Register(auth)
		}
		if d.Verification != nil {
			d.Verification.Register(auth)
		}
		if d.Reputation != nil {
			d.Reputation.Register(auth)
		}
		if d.Billing != nil {
			// The webhook mounts on the root router: the processor cannot
			// present a bearer token, only its signature.
			d.Billing.Register(r, auth)
		}
	})

	return r
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func handleHealth(checkers map[string]Checker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp := healthResponse{Status: "ok", Checks: map[string]string{}}
		status := http.StatusOK
		for name, c := range checkers {
			if err := c.Health(ctx); err != nil {
				resp.Status = "degraded"
				resp.Checks[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
		httputil.WriteJSON(w, status, resp)
	}
}
