package models

import "time"

// Weights are the per-criterion multipliers of an investor thesis, each in [0,1].
type Weights struct {
	Industry float64 `json:"industry"`
	Stage    float64 `json:"stage"`
	Funding  float64 `json:"funding"`
	Location float64 `json:"location"`
	Traction float64 `json:"traction"`
	Team     float64 `json:"team"`
}

// DefaultWeights sum to 1.
func DefaultWeights() Weights {
	return Weights{Industry: 0.25, Stage: 0.20, Funding: 0.15, Location: 0.10, Traction: 0.20, Team: 0.10}
}

func (w Weights) Sum() float64 {
	return w.Industry + w.Stage + w.Funding + w.Location + w.Traction + w.Team
}

// Scale multiplies every weight by f.
func (w Weights) Scale(f float64) Weights {
	return Weights{
		Industry: w.Industry * f,
		Stage:    w.Stage * f,
		Funding:  w.Funding * f,
		Location: w.Location * f,
		Traction: w.Traction * f,
		Team:     w.Team * f,
	}
}

type InvestorThesis struct {
	ID                  string    `json:"id"`
	InvestorID          string    `json:"investorId"`
	MinFundingAsk       int64     `json:"minFundingAsk"`
	MaxFundingAsk       int64     `json:"maxFundingAsk"`
	PreferredIndustries []string  `json:"preferredIndustries"`
	PreferredStages     []string  `json:"preferredStages"`
	Countries           []string  `json:"countries"`
	NoLocationPref      bool      `json:"noLocationPref"`
	RemoteOK            bool      `json:"remoteOk"`
	Weights             Weights   `json:"weights"`
	Keywords            []string  `json:"keywords"`
	ExcludeKeywords     []string  `json:"excludeKeywords"`
	IsActive            bool      `json:"isActive"`
	CreatedAt           time.Time `json:"createdAt"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

// ThesisInput is the full replacement payload for an investor's active thesis. Nil Weights select
// DefaultWeights.
type ThesisInput struct {
	MinFundingAsk       int64    `json:"minFundingAsk"`
	MaxFundingAsk       int64    `json:"maxFundingAsk"`
	PreferredIndustries []string `json:"preferredIndustries"`
	PreferredStages     []string `json:"preferredStages"`
	Countries           []string `json:"countries"`
	NoLocationPref      bool     `json:"noLocationPref"`
	RemoteOK            bool     `json:"remoteOk"`
	Weights             *Weights `json:"weights,omitempty"`
	Keywords            []string `json:"keywords"`
	ExcludeKeywords     []string `json:"excludeKeywords"`
}

// ThesisPatch changes only the non-nil fields of the active thesis.
type ThesisPatch struct {
	MinFundingAsk       *int64    `json:"minFundingAsk,omitempty"`
	MaxFundingAsk       *int64    `json:"maxFundingAsk,omitempty"`
	PreferredIndustries *[]string `json:"preferredIndustries,omitempty"`
	PreferredStages     *[]string `json:"preferredStages,omitempty"`
	Countries           *[]string `json:"countries,omitempty"`
	NoLocationPref      *bool     `json:"noLocationPref,omitempty"`
	RemoteOK            *bool     `json:"remoteOk,omitempty"`
	Weights             *Weights  `json:"weights,omitempty"`
	Keywords            *[]string `json:"keywords,omitempty"`
	ExcludeKeywords     *[]string `json:"excludeKeywords,omitempty"`
}

// ToInput returns the thesis content as a replacement payload.
func (t *InvestorThesis) ToInput() ThesisInput {
	w := t.Weights
	return ThesisInput{
		MinFundingAsk:       t.MinFundingAsk,
		MaxFundingAsk:       t.MaxFundingAsk,
		PreferredIndustries: t.PreferredIndustries,
		PreferredStages:     t.PreferredStages,
		Countries:           t.Countries,
		NoLocationPref:      t.NoLocationPref,
		RemoteOK:            t.RemoteOK,
		Weights:             &w,
		Keywords:            t.Keywords,
		ExcludeKeywords:     t.ExcludeKeywords,
	}
}

// Apply overlays the patch on in.
func (p ThesisPatch) Apply(in ThesisInput) ThesisInput {
	if p.MinFundingAsk != nil {
		in.MinFundingAsk = *p.MinFundingAsk
	}
	if p.MaxFundingAsk != nil {
		in.MaxFundingAsk = *p.MaxFundingAsk
	}
	if p.PreferredIndustries != nil {
		in.PreferredIndustries = *p.PreferredIndustries
	}
	if p.PreferredStages != nil {
		in.PreferredStages = *p.PreferredStages
	}
	if p.Countries != nil {
		in.Countries = *p.Countries
	}
	if p.NoLocationPref != nil {
		in.NoLocationPref = *p.NoLocationPref
	}
	if p.RemoteOK != nil {
		in.RemoteOK = *p.RemoteOK
	}
	if p.Weights != nil {
		w := *p.Weights
		in.Weights = &w
	}
	if p.Keywords != nil {
		in.Keywords = *p.Keywords
	}
	if p.ExcludeKeywords != nil {
		in.ExcludeKeywords = *p.ExcludeKeywords
	}
	return in
}
