package handler

import (
	"time"

	"collabcore/internal/reputation"
)

// ScoreResponse is the wire shape of GET /reputation/{accountID}.
type ScoreResponse struct {
	AccountID         string `json:"account_id"`
	Score             int    `json:"score"`
	VerificationLevel int    `json:"verification_level"`
}

// EntryResponse is one immutable reputation entry.
type EntryResponse struct {
	ID         string    `json:"id"`
	ScoreDelta int       `json:"score_delta"`
	ReasonCode string    `json:"reason_code"`
	Category   string    `json:"category"`
	CreatedAt  time.Time `json:"created_at"`
}

type HistoryResponse struct {
	Entries []EntryResponse `json:"entries"`
}

type RecomputeResponse struct {
	AccountID string `json:"account_id"`
	Score     int    `json:"score"`
}

func FromEntry(e reputation.Entry) EntryResponse {
	return EntryResponse{
		ID:         e.ID.String(),
		ScoreDelta: e.ScoreDelta,
		ReasonCode: e.ReasonCode,
		Category:   string(e.Category),
		CreatedAt:  e.CreatedAt,
	}
}
