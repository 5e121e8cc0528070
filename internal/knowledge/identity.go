package knowledge

import (
	"regexp"
	"strings"
)

// synonyms folds raw model labels onto canonical condition identities. Labels
// not listed here fall back to a generic slug of the lowercased label. All
// identity folding happens in this one table.
var synonyms = map[string]string{
	"eczema_flare":      "eczema",
	"atopic_dermatitis": "eczema",
	"psoriasis_plaque":  "psoriasis",
	"plaque_psoriasis":  "psoriasis",
	"rosacea_flare":     "rosacea",
	"acne_rosacea":      "rosacea",
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// CanonicalID maps a raw model label to the identity key used by the
// knowledge store. Matching is case-insensitive.
func CanonicalID(label string) string {
	normalized := strings.ToLower(strings.TrimSpace(label))
	if id, ok := synonyms[normalized]; ok {
		return id
	}
	return strings.Trim(nonSlug.ReplaceAllString(normalized, "-"), "-")
}
