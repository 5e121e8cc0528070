package analyse

import (
	"context"
	"sort"

	"github.com/example/derm-api/internal/inference"
)

// StoredEntry is a previously persisted (condition, confidence) pair.
type StoredEntry struct {
	ConditionID       string `json:"conditionId"`
	ConfidencePercent int    `json:"confidencePercent"`
}

// Rebuild re-derives enriched results for stored entries without re-running
// inference. Entries are ranked by their stored confidence (stored insertion
// order is not rank order), and the originally stored percentage is kept
// verbatim so no re-rounding drift creeps in.
func (s *Service) Rebuild(ctx context.Context, entries []StoredEntry) []SkinConditionResult {
	sorted := make([]StoredEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ConfidencePercent > sorted[j].ConfidencePercent
	})

	scores := make([]inference.Score, len(sorted))
	for i, entry := range sorted {
		scores[i] = inference.Score{
			Label:       entry.ConditionID,
			Probability: float64(entry.ConfidencePercent) / 100,
		}
	}

	results := s.Enrich(ctx, scores)
	for i := range results {
		results[i].ConfidencePercent = sorted[i].ConfidencePercent
	}
	return results
}
