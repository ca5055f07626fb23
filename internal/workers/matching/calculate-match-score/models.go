package calculatematchscore

import "investor-matching/internal/models"

type Input struct {
	InvestorID string `json:"investorId"`
	StartupID  string `json:"startupId"`
}

type Output struct {
	MatchID      string                `json:"matchId"`
	StartupID    string                `json:"startupId"`
	OverallScore float64               `json:"overallScore"`
	Status       models.MatchStatus    `json:"matchStatus"`
	Excluded     bool                  `json:"excluded"`
	Breakdown    models.ScoreBreakdown `json:"scoreBreakdown"`
}

const inputSchema = `{
	"type": "object",
	"required": ["investorId", "startupId"],
	"properties": {
		"investorId": {"type": "string", "minLength": 1},
		"startupId":  {"type": "string", "minLength": 1}
	}
}`
