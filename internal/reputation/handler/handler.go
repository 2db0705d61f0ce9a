package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"collabcore/internal/account"
	"collabcore/internal/platform/middleware"
	"collabcore/internal/reputation"
	id "collabcore/pkg/domain"
	dErrors "collabcore/pkg/domain-errors"
	"collabcore/pkg/platform/httputil"
)

// Service defines the reputation operations the handler exposes.
type Service interface {
	History(ctx context.Context, accountID id.AccountID) ([]reputation.Entry, error)
	Recompute(ctx context.Context, accountID id.AccountID) (int, error)
}

// Directory resolves the current aggregate for score reads.
type Directory interface {
	Get(ctx context.Context, accountID id.AccountID) (account.Account, error)
}

// Handler wires reputation endpoints to the reputation service.
type Handler struct {
	service   Service
	directory Directory
	logger    *slog.Logger
}

func New(service Service, directory Directory, logger *slog.Logger) *Handler {
	return &Handler{service: service, directory: directory, logger: logger}
}

// Register mounts reputation endpoints on the router. Scores and history are
// readable by any authenticated account; recompute is a staff operation.
func (h *Handler) Register(r chi.Router) {
	r.Get("/reputation/{accountID}", h.HandleScore)
	r.Get("/reputation/{accountID}/history", h.HandleHistory)
	r.Post("/reputation/{accountID}/recompute", h.HandleRecompute)
}

// HandleScore handles GET /reputation/{accountID}.
func (h *Handler) HandleScore(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	accountID, err := id.ParseAccountID(chi.URLParam(r, "accountID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	acct, err := h.directory.Get(ctx, accountID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, ScoreResponse{
		AccountID:         accountID.String(),
		Score:             acct.ReputationScore,
		VerificationLevel: acct.VerificationLevel,
	})
}

// HandleHistory handles GET /reputation/{accountID}/history.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	accountID, err := id.ParseAccountID(chi.URLParam(r, "accountID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	entries, err := h.service.History(ctx, accountID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	out := make([]EntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, FromEntry(e))
	}
	httputil.WriteJSON(w, http.StatusOK, HistoryResponse{Entries: out})
}

// HandleRecompute handles POST /reputation/{accountID}/recompute.
func (h *Handler) HandleRecompute(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	if middleware.GetRole(ctx) != "admin" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "recompute requires the admin role"))
		return
	}

	accountID, err := id.ParseAccountID(chi.URLParam(r, "accountID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	start := time.Now()
	score, err := h.service.Recompute(ctx, accountID)
	if err != nil {
		h.logger.WarnContext(ctx, "reputation recompute failed",
			"request_id", requestID,
			"account_id", accountID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "reputation recomputed",
		"request_id", requestID,
		"account_id", accountID.String(),
		"score", score,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, RecomputeResponse{
		AccountID: accountID.String(),
		Score:     score,
	})
}
