package models

import "time"

type MatchStatus string

const (
	MatchStatusPending       MatchStatus = "pending"
	MatchStatusViewed        MatchStatus = "viewed"
	MatchStatusInterested    MatchStatus = "interested"
	MatchStatusNotInterested MatchStatus = "not_interested"
	MatchStatusContacted     MatchStatus = "contacted"
)

func (s MatchStatus) Valid() bool {
	switch s {
	case MatchStatusPending, MatchStatusViewed, MatchStatusInterested, MatchStatusNotInterested, MatchStatusContacted:
		return true
	}
	return false
}

// Terminal statuses never change again.
func (s MatchStatus) Terminal() bool {
	return s == MatchStatusNotInterested || s == MatchStatusContacted
}

// ScoreBreakdown explains an overall score. Sub-scores are in [0,1]; Weights are the effective
// weights after any scaling.
type ScoreBreakdown struct {
	Industry        float64  `json:"industry"`
	Stage           float64  `json:"stage"`
	Funding         float64  `json:"funding"`
	Location        float64  `json:"location"`
	Traction        float64  `json:"traction"`
	Team            float64  `json:"team"`
	Weights         Weights  `json:"weights"`
	WeightedSum     float64  `json:"weightedSum"`
	KeywordBoost    float64  `json:"keywordBoost"`
	MatchedKeywords []string `json:"matchedKeywords,omitempty"`
	Excluded        bool     `json:"excluded"`
	ExcludedBy      []string `json:"excludedBy,omitempty"`
}

type StartupMatch struct {
	ID           string         `json:"id"`
	InvestorID   string         `json:"investorId"`
	StartupID    string         `json:"startupId"`
	OverallScore float64        `json:"overallScore"`
	Breakdown    ScoreBreakdown `json:"breakdown"`
	Status       MatchStatus    `json:"status"`
	ViewedAt     *time.Time     `json:"viewedAt,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}

// MatchFilter selects matches by investor or by startup.
type MatchFilter struct {
	InvestorID string
	StartupID  string
	Page       int
	Limit      int
}

type InteractionType string

const (
	InteractionView    InteractionType = "view"
	InteractionLike    InteractionType = "like"
	InteractionPass    InteractionType = "pass"
	InteractionSave    InteractionType = "save"
	InteractionContact InteractionType = "contact"
	InteractionNote    InteractionType = "note"
)

func (t InteractionType) Valid() bool {
	switch t {
	case InteractionView, InteractionLike, InteractionPass, InteractionSave, InteractionContact, InteractionNote:
		return true
	}
	return false
}

// MatchInteraction is append-only.
type MatchInteraction struct {
	ID         string          `json:"id"`
	MatchID    string          `json:"matchId"`
	InvestorID string          `json:"investorId"`
	StartupID  string          `json:"startupId"`
	Type       InteractionType `json:"type"`
	Notes      *string         `json:"notes,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
}

type InteractionFilter struct {
	MatchID    string
	StartupID  string
	InvestorID string
	Page       int
	Limit      int
}

// Page is one page of a listing.
type Page[T any] struct {
	Items   []T  `json:"items"`
	Page    int  `json:"page"`
	Limit   int  `json:"limit"`
	HasMore bool `json:"hasMore"`
}
