package models

// Startup is owned by the startup-profile subsystem and read-only here.
type Startup struct {
	ID             string   `json:"id"`
	FounderID      string   `json:"founderId"`
	FounderEmail   string   `json:"founderEmail,omitempty"`
	Name           string   `json:"name"`
	Tagline        string   `json:"tagline,omitempty"`
	Description    string   `json:"description,omitempty"`
	Industry       string   `json:"industry"`
	Stage          string   `json:"stage"`
	FundingAsk     int64    `json:"fundingAsk"`
	Country        string   `json:"country"`
	RemoteFriendly bool     `json:"remoteFriendly"`
	Tags           []string `json:"tags,omitempty"`
	Traction       Traction `json:"traction"`
	Team           Team     `json:"team"`
}

type Traction struct {
	MonthlyRevenue int64   `json:"monthlyRevenue"`
	ActiveUsers    int64   `json:"activeUsers"`
	GrowthRatePct  float64 `json:"growthRatePct"`
}

type Team struct {
	Size                   int `json:"size"`
	FounderExperienceYears int `json:"founderExperienceYears"`
}

// CandidateFilter selects one page of the startup corpus for a batch recompute.
type CandidateFilter struct {
	Offset int
	Limit  int
}
