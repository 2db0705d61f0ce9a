package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"collabcore/internal/platform/middleware"
	"collabcore/internal/verification"
	id "collabcore/pkg/domain"
	dErrors "collabcore/pkg/domain-errors"
	"collabcore/pkg/platform/httputil"
)

// Service defines the verification operations the handler exposes.
type Service interface {
	Submit(ctx context.Context, accountID id.AccountID, vtype string, evidence []string) (verification.Entry, error)
	Review(ctx context.Context, entryID id.VerificationID, decision verification.Decision, reviewerID id.AccountID) (verification.ReviewResult, error)
	Progress(ctx context.Context, accountID id.AccountID) ([]verification.Entry, error)
}

// Handler wires verification endpoints to the verification service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts verification endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/verification", h.HandleProgress)
	r.Post("/verification", h.HandleSubmit)
	r.Post("/verification/{entryID}/review", h.HandleReview)
}

// HandleSubmit handles POST /verification.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	caller, ok := h.caller(w, ctx)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[SubmitRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	entry, err := h.service.Submit(ctx, caller, req.Type, req.Evidence)
	if err != nil {
		h.logger.WarnContext(ctx, "verification submit failed",
			"request_id", requestID,
			"account_id", caller.String(),
			"type", req.Type,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, FromEntry(entry))
}

// HandleReview handles POST /verification/{entryID}/review. Reviewing is a
// staff operation; the caller's token must carry the admin role.
func (h *Handler) HandleReview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	caller, ok := h.caller(w, ctx)
	if !ok {
		return
	}
	if middleware.GetRole(ctx) != "admin" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "review requires the admin role"))
		return
	}

	entryID, err := id.ParseVerificationID(chi.URLParam(r, "entryID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[ReviewRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.Review(ctx, entryID, verification.Decision(req.Decision), caller)
	if err != nil {
		h.logger.WarnContext(ctx, "verification review failed",
			"request_id", requestID,
			"entry_id", entryID.String(),
			"reviewer_id", caller.String(),
			"decision", req.Decision,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "verification reviewed",
		"request_id", requestID,
		"entry_id", entryID.String(),
		"decision", req.Decision,
		"level_advanced", result.LevelAdvanced,
		"new_level", result.NewLevel,
	)
	httputil.WriteJSON(w, http.StatusOK, FromReviewResult(result))
}

// HandleProgress handles GET /verification, returning the caller's ladder
// entries.
func (h *Handler) HandleProgress(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	caller, ok := h.caller(w, ctx)
	if !ok {
		return
	}

	entries, err := h.service.Progress(ctx, caller)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	out := make([]EntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, FromEntry(e))
	}
	httputil.WriteJSON(w, http.StatusOK, ProgressResponse{Entries: out})
}

func (h *Handler) caller(w http.ResponseWriter, ctx context.Context) (id.AccountID, bool) {
	caller, err := id.ParseAccountID(middleware.GetAccountID(ctx))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return id.AccountID{}, false
	}
	return caller, true
}
