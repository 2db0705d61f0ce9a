// Package httputil holds the JSON response and request-decoding helpers
// shared by every HTTP handler.
package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	dErrors "collabcore/pkg/domain-errors"
)

// MaxBodyBytes bounds request bodies before decoding.
const MaxBodyBytes = 1 << 20

// errorBody is the wire shape of every error response. CurrentState is set
// only on conflicts, telling the caller which state won.
type errorBody struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
	CurrentState     string `json:"current_state,omitempty"`
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// WriteError maps a service error to its HTTP status and body. Internal
// errors keep their message out of the response.
func WriteError(w http.ResponseWriter, err error) {
	de := dErrors.FromError(err)
	body := errorBody{Error: string(de.Code)}
	if de.Code != dErrors.CodeInternal {
		body.ErrorDescription = de.Message
		body.CurrentState = de.CurrentState
	}
	WriteJSON(w, dErrors.ToHTTPStatus(de.Code), body)
}

// Validatable requests check themselves after decoding.
type Validatable interface {
	Validate() error
}

// DecodeAndPrepare decodes the request body into T, runs its validation, and
// writes the error response itself on failure. The second return value tells
// the handler whether to continue.
func DecodeAndPrepare[T Validatable](w http.ResponseWriter, r *http.Request, logger *slog.Logger, ctx context.Context, requestID string) (T, bool) {
	var req T
	body := http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			WriteError(w, dErrors.New(dErrors.CodeBadRequest, "request body too large"))
		case errors.Is(err, io.EOF):
			WriteError(w, dErrors.New(dErrors.CodeBadRequest, "request body is required"))
		default:
			logger.WarnContext(ctx, "malformed request body",
				"request_id", requestID,
				"error", err.Error(),
			)
			WriteError(w, dErrors.New(dErrors.CodeBadRequest, "malformed JSON body"))
		}
		return req, false
	}
	if err := req.Validate(); err != nil {
		WriteError(w, err)
		return req, false
	}
	return req, true
}
