package scoring

import (
	"strings"
	"unicode"

	"investor-matching/internal/models"
)

// startupText is the searchable text of a startup as a space-delimited token stream, padded so a
// whole-word lookup is a substring test on " kw ".
func startupText(s *models.Startup) string {
	parts := []string{s.Name, s.Tagline, s.Description, s.Industry}
	parts = append(parts, s.Tags...)
	return " " + strings.Join(tokens(strings.Join(parts, " ")), " ") + " "
}

func tokens(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// matchKeywords returns the keywords that occur as whole words (or whole phrases) in text, in the
// order given, each at most once.
func matchKeywords(text string, keywords []string) []string {
	var hits []string
	seen := make(map[string]bool, len(keywords))
	for _, kw := range keywords {
		toks := tokens(kw)
		if len(toks) == 0 {
			continue
		}
		norm := strings.Join(toks, " ")
		if seen[norm] {
			continue
		}
		seen[norm] = true
		if strings.Contains(text, " "+norm+" ") {
			hits = append(hits, kw)
		}
	}
	return hits
}
