// Package textfilter keeps the Goblin King's narration within a content rating.
package textfilter

import (
	"regexp"
	"slices"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// defaultReplacements maps words the model should not use at family
// ratings to softer alternatives.
var defaultReplacements = map[string]string{
	"fuck":         "fudge",
	"fucking":      "flipping",
	"motherfucker": "mother-trucker",
	"shit":         "shoot",
	"bullshit":     "baloney",
	"horseshit":    "nonsense",
	"damn":         "dang",
	"goddamn":      "gosh-dang",
	"hell":         "heck",
	"ass":          "butt",
	"asshole":      "jerk",
	"dumbass":      "dummy",
	"jackass":      "jerk",
	"bitch":        "jerk",
	"bastard":      "rascal",
	"crap":         "crud",
	"piss":         "ticked",
	"dick":         "jerk",
	"dickhead":     "jerk",
	"prick":        "jerk",
	"douche":       "jerk",
	"whore":        "[censored]",
	"slut":         "[censored]",
	"retard":       "[censored]",
}

// Filter replaces listed words, keeping the case of what it replaces.
type Filter struct {
	pattern      *regexp.Regexp
	replacements map[string]string
}

// New builds a filter from a word -> replacement map. Keys are matched
// case-insensitively on word boundaries.
func New(replacements map[string]string) *Filter {
	words := make([]string, 0, len(replacements))
	lowered := make(map[string]string, len(replacements))
	for word, repl := range replacements {
		w := strings.ToLower(word)
		words = append(words, regexp.QuoteMeta(w))
		lowered[w] = repl
	}
	// longest first so "asshole" wins over "ass"
	slices.SortFunc(words, func(a, b string) int { return len(b) - len(a) })

	return &Filter{
		pattern:      regexp.MustCompile(`(?i)\b(?:` + strings.Join(words, "|") + `)\b`),
		replacements: lowered,
	}
}

// Default returns the filter used for family ratings.
func Default() *Filter {
	return New(defaultReplacements)
}

// ForRating returns the default filter for ratings up to PG-13 and nil for
// anything else.
func ForRating(rating string) *Filter {
	if !ShouldFilterContent(rating) {
		return nil
	}
	return Default()
}

// Clean returns text with every listed word replaced.
func (f *Filter) Clean(text string) string {
	return f.pattern.ReplaceAllStringFunc(text, func(match string) string {
		return matchCase(match, f.replacements[strings.ToLower(match)])
	})
}

// Contains reports whether text has any listed word.
func (f *Filter) Contains(text string) bool {
	return f.pattern.MatchString(text)
}

// ShouldFilterContent reports whether a rating needs filtering.
func ShouldFilterContent(rating string) bool {
	switch strings.ToUpper(strings.TrimSpace(rating)) {
	case "G", "PG", "PG13", "PG-13":
		return true
	default:
		return false
	}
}

// matchCase gives replacement the case pattern of original.
func matchCase(original, replacement string) string {
	switch {
	case original == "":
		return replacement
	case strings.ToUpper(original) == original:
		return strings.ToUpper(replacement)
	case strings.ToLower(original) == original:
		return strings.ToLower(replacement)
	}

	title := cases.Title(language.English)
	if title.String(strings.ToLower(original)) == original {
		return title.String(replacement)
	}

	orig := []rune(original)
	out := []rune(replacement)
	for i, r := range out {
		if i < len(orig) && unicode.IsUpper(orig[i]) {
			out[i] = unicode.ToUpper(r)
		} else {
			out[i] = unicode.ToLower(r)
		}
	}
	return string(out)
}
