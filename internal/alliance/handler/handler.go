package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"collabcore/internal/alliance"
	"collabcore/internal/platform/middleware"
	id "collabcore/pkg/domain"
	dErrors "collabcore/pkg/domain-errors"
	"collabcore/pkg/platform/httputil"
)

// Service defines the alliance operations the handler exposes.
type Service interface {
	Request(ctx context.Context, requester, receiver id.AccountID) (alliance.Alliance, error)
	Accept(ctx context.Context, allianceID id.AllianceID, caller id.AccountID) (alliance.Alliance, error)
	Reject(ctx context.Context, allianceID id.AllianceID, caller id.AccountID) (alliance.Alliance, error)
	Remove(ctx context.Context, allianceID id.AllianceID, caller id.AccountID) error
	ListForAccount(ctx context.Context, accountID id.AccountID) ([]alliance.Alliance, error)
}

// Handler wires alliance endpoints to the alliance service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts alliance endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/alliances", h.HandleList)
	r.Post("/alliances", h.HandleRequest)
	r.Post("/alliances/{allianceID}/accept", h.HandleAccept)
	r.Post("/alliances/{allianceID}/reject", h.HandleReject)
	r.Delete("/alliances/{allianceID}", h.HandleRemove)
}

// HandleRequest handles POST /alliances.
func (h *Handler) HandleRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	caller, ok := h.caller(w, ctx)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[RequestAllianceRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	receiver, err := id.ParseAccountID(req.ReceiverID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	created, err := h.service.Request(ctx, caller, receiver)
	if err != nil {
		h.logger.WarnContext(ctx, "alliance request failed",
			"request_id", requestID,
			"requester_id", caller.String(),
			"receiver_id", req.ReceiverID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, FromAlliance(created))
}

// HandleAccept handles POST /alliances/{allianceID}/accept.
func (h *Handler) HandleAccept(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "accept", h.service.Accept)
}

// HandleReject handles POST /alliances/{allianceID}/reject.
func (h *Handler) HandleReject(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "reject", h.service.Reject)
}

// transition covers accept and reject, which differ only in the service call.
func (h *Handler) transition(
	w http.ResponseWriter,
	r *http.Request,
	verb string,
	call func(ctx context.Context, allianceID id.AllianceID, caller id.AccountID) (alliance.Alliance, error),
) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	caller, ok := h.caller(w, ctx)
	if !ok {
		return
	}
	allianceID, err := id.ParseAllianceID(chi.URLParam(r, "allianceID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	updated, err := call(ctx, allianceID, caller)
	if err != nil {
		h.logger.WarnContext(ctx, "alliance transition failed",
			"request_id", requestID,
			"alliance_id", allianceID.String(),
			"caller_id", caller.String(),
			"verb", verb,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromAlliance(updated))
}

// HandleRemove handles DELETE /alliances/{allianceID}.
func (h *Handler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	caller, ok := h.caller(w, ctx)
	if !ok {
		return
	}
	allianceID, err := id.ParseAllianceID(chi.URLParam(r, "allianceID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.service.Remove(ctx, allianceID, caller); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleList handles GET /alliances, returning the caller's alliances.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	caller, ok := h.caller(w, ctx)
	if !ok {
		return
	}

	alliances, err := h.service.ListForAccount(ctx, caller)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	out := make([]AllianceResponse, 0, len(alliances))
	for _, a := range alliances {
		out = append(out, FromAlliance(a))
	}
	httputil.WriteJSON(w, http.StatusOK, ListResponse{Alliances: out})
}

func (h *Handler) caller(w http.ResponseWriter, ctx context.Context) (id.AccountID, bool) {
	caller, err := id.ParseAccountID(middleware.GetAccountID(ctx))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return id.AccountID{}, false
	}
	return caller, true
}
