package scoring

import (
	"strings"

	"investor-matching/internal/models"
)

// setMatch is 1 when value is one of prefs. An empty preference set applies no criterion.
func setMatch(prefs []string, value string) float64 {
	v := strings.TrimSpace(value)
	if v == "" {
		return 0
	}
	for _, p := range prefs {
		if strings.EqualFold(strings.TrimSpace(p), v) {
			return 1
		}
	}
	return 0
}

func fundingScore(lo, hi, ask int64, band float64) float64 {
	if ask <= 0 || hi <= 0 {
		return 0
	}
	if ask >= lo && ask <= hi {
		return 1
	}

	var bound, miss float64
	if ask < lo {
		bound, miss = float64(lo), float64(lo-ask)
	} else {
		bound, miss = float64(hi), float64(ask-hi)
	}
	width := band * bound
	if width <= 0 {
		return 0
	}
	if s := 1 - miss/width; s > 0 {
		return s
	}
	return 0
}

func locationScore(t *models.InvestorThesis, s *models.Startup) float64 {
	if t.NoLocationPref {
		return 0
	}
	if s.Country != "" {
		for _, c := range t.Countries {
			if strings.EqualFold(c, strings.TrimSpace(s.Country)) {
				return 1
			}
		}
	}
	if t.RemoteOK && s.RemoteFriendly {
		return 0.5
	}
	return 0
}

func tractionScore(tr models.Traction) float64 {
	score := tier(float64(tr.MonthlyRevenue), 100_000, 10_000)
	if u := tier(float64(tr.ActiveUsers), 10_000, 1_000); u > score {
		score = u
	}
	if score == 0 {
		return 0
	}
	if tr.GrowthRatePct >= 20 {
		score += 0.1
	}
	return clamp01(score)
}

// tier is 1 at or above high, 0.7 at or above mid, 0.4 for any positive value.
func tier(v, high, mid float64) float64 {
	switch {
	case v >= high:
		return 1
	case v >= mid:
		return 0.7
	case v > 0:
		return 0.4
	}
	return 0
}

func teamScore(tm models.Team) float64 {
	if tm.Size <= 0 && tm.FounderExperienceYears <= 0 {
		return 0
	}
	var score float64
	switch y := tm.FounderExperienceYears; {
	case y >= 5:
		score = 1
	case y >= 3:
		score = 0.8
	case y >= 1:
		score = 0.6
	default:
		score = 0.3
	}
	if tm.Size >= 3 {
		score += 0.1
	}
	return clamp01(score)
}
