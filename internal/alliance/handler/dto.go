package handler

import (
	"time"

	"collabcore/internal/alliance"
	dErrors "collabcore/pkg/domain-errors"
)

// RequestAllianceRequest is the body of POST /alliances.
type RequestAllianceRequest struct {
	ReceiverID string `json:"receiver_id"`
}

func (r RequestAllianceRequest) Validate() error {
	if r.ReceiverID == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "receiver_id is required")
	}
	return nil
}

// AllianceResponse is the wire shape of one alliance.
type AllianceResponse struct {
	ID          string    `json:"id"`
	RequesterID string    `json:"requester_id"`
	ReceiverID  string    `json:"receiver_id"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type ListResponse struct {
	Alliances []AllianceResponse `json:"alliances"`
}

func FromAlliance(a alliance.Alliance) AllianceResponse {
	return AllianceResponse{
		ID:          a.ID.String(),
		RequesterID: a.RequesterID.String(),
		ReceiverID:  a.ReceiverID.String(),
		Status:      string(a.Status),
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}
