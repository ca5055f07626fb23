package recomputematches

type Input struct {
	InvestorID string `json:"investorId"`
}

type Output struct {
	Processed   int      `json:"processed"`
	Upserted    int      `json:"upserted"`
	Excluded    int      `json:"excluded"`
	Failed      []string `json:"failedStartupIds"`
	HasFailures bool     `json:"hasFailures"`
	DurationMs  int64    `json:"durationMs"`
}
