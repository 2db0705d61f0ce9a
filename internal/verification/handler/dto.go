package handler

import (
	"time"

	"collabcore/internal/verification"
	dErrors "collabcore/pkg/domain-errors"
)

// SubmitRequest is the body of POST /verification.
type SubmitRequest struct {
	Type     string   `json:"type"`
	Evidence []string `json:"evidence"`
}

func (r SubmitRequest) Validate() error {
	if r.Type == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "type is required")
	}
	return nil
}

// ReviewRequest is the body of POST /verification/{entryID}/review.
type ReviewRequest struct {
	Decision string `json:"decision"`
}

func (r ReviewRequest) Validate() error {
	switch verification.Decision(r.Decision) {
	case verification.DecisionApprove, verification.DecisionReject:
		return nil
	default:
		return dErrors.New(dErrors.CodeInvalidInput, "decision must be approve or reject")
	}
}

// EntryResponse is the wire shape of one ladder entry.
type EntryResponse struct {
	ID          string     `json:"id"`
	AccountID   string     `json:"account_id"`
	Type        string     `json:"type"`
	Level       int        `json:"level"`
	Status      string     `json:"status"`
	Evidence    []string   `json:"evidence,omitempty"`
	ScoreImpact int        `json:"score_impact"`
	SubmittedAt time.Time  `json:"submitted_at"`
	ReviewedAt  *time.Time `json:"reviewed_at,omitempty"`
}

type ProgressResponse struct {
	Entries []EntryResponse `json:"entries"`
}

// ReviewResponse reports the entry plus any level movement the review caused.
type ReviewResponse struct {
	Entry         EntryResponse `json:"entry"`
	LevelAdvanced bool          `json:"level_advanced"`
	NewLevel      int           `json:"new_level"`
}

func FromEntry(e verification.Entry) EntryResponse {
	return EntryResponse{
		ID:          e.ID.String(),
		AccountID:   e.AccountID.String(),
		Type:        e.Type,
		Level:       e.Level,
		Status:      string(e.Status),
		Evidence:    e.Evidence,
		ScoreImpact: e.ScoreImpact,
		SubmittedAt: e.SubmittedAt,
		ReviewedAt:  e.ReviewedAt,
	}
}

func FromReviewResult(r verification.ReviewResult) ReviewResponse {
	return ReviewResponse{
		Entry:         FromEntry(r.Entry),
		LevelAdvanced: r.LevelAdvanced,
		NewLevel:      r.NewLevel,
	}
}
