package planner

import "strings"

// substitution is one symmetric spelling equivalence observed across
// genealogical record transcriptions (anglicization, clerk spelling drift).
type substitution struct {
	a, b string
}

// substitutions is the fixed variant table. Each pair is applied in both
// directions, once, to the original surname only; variants are never
// expanded recursively.
var substitutions = []substitution{
	{"son", "sen"},
	{"ck", "k"},
	{"ph", "f"},
	{"ie", "y"},
	{"mann", "man"},
	{"berg", "burg"},
	{"w", "v"},
}

// SurnameVariants expands a surname into its spelling variants. The original
// (title-cased) always comes first; each single substitution that changes the
// name contributes one variant; duplicates are dropped.
func SurnameVariants(surname string) []string {
	surname = strings.TrimSpace(surname)
	if surname == "" {
		return nil
	}
	lower := strings.ToLower(surname)

	variants := []string{titleCase(lower)}
	seen := map[string]bool{variants[0]: true}

	add := func(v string) {
		tc := titleCase(v)
		if !seen[tc] {
			seen[tc] = true
			variants = append(variants, tc)
		}
	}

	for _, sub := range substitutions {
		if strings.Contains(lower, sub.a) {
			add(strings.ReplaceAll(lower, sub.a, sub.b))
		}
		if strings.Contains(lower, sub.b) {
			add(strings.ReplaceAll(lower, sub.b, sub.a))
		}
	}
	return variants
}

// titleCase uppercases the first rune of each hyphen- or space-separated part.
// Surnames only; strings.Title is deprecated and locale-aware casing is not
// needed for ASCII-dominant record indexes.
func titleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	upperNext := true
	for _, r := range s {
		if upperNext && r >= 'a' && r <= 'z' {
			b.WriteRune(r - ('a' - 'A'))
		} else {
			b.WriteRune(r)
		}
		upperNext = r == ' ' || r == '-' || r == '\''
	}
	return b.String()
}
