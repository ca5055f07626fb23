// Package scoring computes how well a startup fits an investor thesis. Everything here is pure:
// no I/O, no clocks, no randomness, so the same pair always produces the same result.
package scoring

import (
	"math"
	"sort"

	"investor-matching/internal/models"
)

// Config holds the tunable constants of the model.
type Config struct {
	// FundingDecayBand is the fraction of the violated bound over which an out-of-range ask decays
	// linearly from 1 to 0.
	FundingDecayBand     float64
	KeywordBoostPerMatch float64
	KeywordBoostCap      float64
}

func DefaultConfig() Config {
	return Config{FundingDecayBand: 0.5, KeywordBoostPerMatch: 0.05, KeywordBoostCap: 0.10}
}

// Result is the score of one startup against one thesis.
type Result struct {
	StartupID string                `json:"startupId"`
	Overall   float64               `json:"overall"`
	Breakdown models.ScoreBreakdown `json:"breakdown"`
}

type Scorer struct {
	cfg Config
}

func NewScorer(cfg Config) *Scorer {
	return &Scorer{cfg: cfg}
}

// Score rates startup s against thesis t. Overall is in [0,1] and rounded to 4 decimals.
func (sc *Scorer) Score(t *models.InvestorThesis, s *models.Startup) Result {
	w := EffectiveWeights(t.Weights)

	b := models.ScoreBreakdown{
		Industry: setMatch(t.PreferredIndustries, s.Industry),
		Stage:    setMatch(t.PreferredStages, s.Stage),
		Funding:  fundingScore(t.MinFundingAsk, t.MaxFundingAsk, s.FundingAsk, sc.cfg.FundingDecayBand),
		Location: locationScore(t, s),
		Traction: tractionScore(s.Traction),
		Team:     teamScore(s.Team),
		Weights:  w,
	}

	sum := w.Industry*b.Industry +
		w.Stage*b.Stage +
		w.Funding*b.Funding +
		w.Location*b.Location +
		w.Traction*b.Traction +
		w.Team*b.Team
	b.WeightedSum = round4(sum)

	text := startupText(s)
	if hits := matchKeywords(text, t.ExcludeKeywords); len(hits) > 0 {
		b.Excluded = true
		b.ExcludedBy = hits
		return Result{StartupID: s.ID, Overall: 0, Breakdown: b}
	}

	overall := sum
	if hits := matchKeywords(text, t.Keywords); len(hits) > 0 {
		b.MatchedKeywords = hits
		boost := math.Min(float64(len(hits))*sc.cfg.KeywordBoostPerMatch, sc.cfg.KeywordBoostCap)
		overall = math.Min(sum+boost, w.Sum())
		b.KeywordBoost = round4(overall - sum)
	}

	return Result{StartupID: s.ID, Overall: clamp01(round4(overall)), Breakdown: b}
}

// EffectiveWeights leaves weights summing to at most 1 untouched and scales larger sets down to
// sum to exactly 1.
func EffectiveWeights(w models.Weights) models.Weights {
	if sum := w.Sum(); sum > 1 {
		return w.Scale(1 / sum)
	}
	return w
}

// Rank orders results by overall score descending, then startup ID ascending.
func Rank(results []Result) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Overall != results[j].Overall {
			return results[i].Overall > results[j].Overall
		}
		return results[i].StartupID < results[j].StartupID
	})
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
