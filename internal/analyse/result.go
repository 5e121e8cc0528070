// Package analyse orchestrates the inference-and-enrichment pipeline: image
// preprocessing, model execution, ranking, and knowledge/gallery enrichment.
package analyse

import (
	"fmt"
	"math"

	"github.com/example/derm-api/internal/gallery"
)

// SkinConditionResult is one ranked prediction enriched with human-readable
// knowledge, the externally visible unit of output.
type SkinConditionResult struct {
	ID                string          `json:"id"`
	Title             string          `json:"title"`
	RankLabel         string          `json:"rankLabel"`
	ConfidencePercent int             `json:"confidencePercent"`
	Description       string          `json:"description"`
	Symptoms          []string        `json:"symptoms"`
	GalleryImages     []gallery.Image `json:"galleryImages"`
	IsTopMatch        bool            `json:"isTopMatch"`
}

// RankLabel names a prediction's position in the ranked output.
func RankLabel(index int) string {
	if index == 0 {
		return "Top Match"
	}
	return fmt.Sprintf("Prediction #%d", index+1)
}

// confidencePercent converts a probability to a whole percentage, rounding
// half up. Percentages are rounded per result and need not sum to 100.
func confidencePercent(probability float64) int {
	return int(math.Floor(probability*100 + 0.5))
}
