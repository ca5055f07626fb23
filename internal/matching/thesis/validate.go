package thesis

import (
	"fmt"
	"sort"
	"strings"

	"investor-matching/internal/common/errors"
	"investor-matching/internal/models"
)

const (
	maxKeywords      = 50
	maxKeywordLength = 64
	maxPreferences   = 50
)

// Normalize validates a thesis payload and returns it in canonical form: lists trimmed,
// de-duplicated case-insensitively and sorted, countries upper-cased, default weights applied.
// Every violation is reported, not only the first.
func Normalize(in models.ThesisInput) (models.ThesisInput, error) {
	var fields []errors.FieldError
	add := func(field, msg, code string) {
		fields = append(fields, errors.FieldError{Field: field, Message: msg, Code: code})
	}

	if in.MinFundingAsk < 0 {
		add("minFundingAsk", "must be >= 0", "out_of_range")
	}
	if in.MaxFundingAsk < 0 {
		add("maxFundingAsk", "must be >= 0", "out_of_range")
	}
	if in.MinFundingAsk > in.MaxFundingAsk {
		add("minFundingAsk", "must not exceed maxFundingAsk", "inverted_range")
	}

	if in.Weights == nil {
		w := models.DefaultWeights()
		in.Weights = &w
	}
	for name, v := range map[string]float64{
		"industry": in.Weights.Industry,
		"stage":    in.Weights.Stage,
		"funding":  in.Weights.Funding,
		"location": in.Weights.Location,
		"traction": in.Weights.Traction,
		"team":     in.Weights.Team,
	} {
		if v < 0 || v > 1 {
			add("weights."+name, "must be within [0,1]", "out_of_range")
		}
	}

	var blank bool
	in.PreferredIndustries, blank = normalizeSet(in.PreferredIndustries, false)
	if blank {
		add("preferredIndustries", "entries must not be blank", "blank_entry")
	}
	if len(in.PreferredIndustries) > maxPreferences {
		add("preferredIndustries", fmt.Sprintf("at most %d entries", maxPreferences), "too_many")
	}
	in.PreferredStages, blank = normalizeSet(in.PreferredStages, false)
	if blank {
		add("preferredStages", "entries must not be blank", "blank_entry")
	}
	if len(in.PreferredStages) > maxPreferences {
		add("preferredStages", fmt.Sprintf("at most %d entries", maxPreferences), "too_many")
	}

	in.Countries, blank = normalizeSet(in.Countries, true)
	if blank {
		add("countries", "entries must not be blank", "blank_entry")
	}
	for _, c := range in.Countries {
		if !isCountryCode(c) {
			add("countries", fmt.Sprintf("%q is not a 2-letter country code", c), "invalid_country")
		}
	}
	if !in.NoLocationPref && len(in.Countries) == 0 {
		add("countries", "required unless noLocationPref is true", "location_required")
	}

	for field, list := range map[string]*[]string{"keywords": &in.Keywords, "excludeKeywords": &in.ExcludeKeywords} {
		*list, blank = normalizeSet(*list, false)
		if blank {
			add(field, "entries must not be blank", "blank_entry")
		}
		if len(*list) > maxKeywords {
			add(field, fmt.Sprintf("at most %d entries", maxKeywords), "too_many")
		}
		for _, kw := range *list {
			if len(kw) > maxKeywordLength {
				add(field, fmt.Sprintf("entries must be at most %d characters", maxKeywordLength), "too_long")
				break
			}
		}
	}

	if len(fields) > 0 {
		sort.SliceStable(fields, func(i, j int) bool { return fields[i].Field < fields[j].Field })
		return in, errors.NewValidationError(fields...)
	}
	return in, nil
}

// normalizeSet trims, de-duplicates (case-insensitively, first spelling wins) and sorts values.
// blank reports whether any entry was empty after trimming; blank entries are dropped.
func normalizeSet(values []string, upper bool) (out []string, blank bool) {
	seen := make(map[string]bool, len(values))
	out = make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			blank = true
			continue
		}
		if upper {
			v = strings.ToUpper(v)
		}
		key := strings.ToLower(v)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return strings.ToLower(out[i]) < strings.ToLower(out[j]) })
	return out, blank
}

func isCountryCode(c string) bool {
	if len(c) != 2 {
		return false
	}
	for _, r := range c {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
