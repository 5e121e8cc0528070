package analyse

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/example/derm-api/internal/inference"
	"github.com/example/derm-api/internal/knowledge"
)

const fallbackDescription = "Further information about this condition is not yet available. " +
	"Consult a healthcare professional for a detailed assessment."

var fallbackSymptoms = []string{
	"Consult a dermatologist for personalized evaluation",
	"Monitor for progression or changes over time",
}

// conditionKnowledge is the resolved-or-fallback variant for one prediction,
// selected once so downstream assembly never mixes fields from both.
type conditionKnowledge struct {
	record   knowledge.ConditionRecord
	fallback bool
}

// Enrich resolves every ranked score into a SkinConditionResult, preserving
// input order. Knowledge records are fetched in one batched call; gallery
// resolution fans out per prediction. A failure in one branch never cancels
// or fails the others.
func (s *Service) Enrich(ctx context.Context, scores []inference.Score) []SkinConditionResult {
	if len(scores) == 0 {
		return []SkinConditionResult{}
	}

	resolved := s.resolveKnowledge(ctx, scores)

	fallbacks := 0
	for _, entry := range resolved {
		if entry.fallback {
			fallbacks++
		}
	}
	if fallbacks > 0 {
		s.logger.Info("knowledge degraded",
			zap.Int("resolved", len(resolved)-fallbacks),
			zap.Int("fallback", fallbacks),
		)
	}

	results := make([]SkinConditionResult, len(scores))
	var wg sync.WaitGroup
	for i := range scores {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			entry := resolved[i]
			results[i] = SkinConditionResult{
				ID:                entry.record.ID,
				Title:             entry.record.Title,
				RankLabel:         RankLabel(i),
				ConfidencePercent: confidencePercent(scores[i].Probability),
				Description:       entry.record.Description,
				Symptoms:          entry.record.Symptoms,
				GalleryImages:     s.gallery.Resolve(ctx, entry.record.ID),
				IsTopMatch:        i == 0,
			}
		}(i)
	}
	wg.Wait()

	return results
}

// resolveKnowledge maps each score's label to a condition identity, batches
// one store lookup for all of them, and synthesizes fallback records for
// misses. A store failure degrades every entry to its fallback instead of
// failing the request.
func (s *Service) resolveKnowledge(ctx context.Context, scores []inference.Score) []conditionKnowledge {
	ids := make([]string, 0, len(scores))
	seen := make(map[string]bool, len(scores))
	for _, score := range scores {
		id := knowledge.CanonicalID(score.Label)
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	indexed := make(map[string]knowledge.ConditionRecord, len(ids))
	records, err := s.knowledge.FindByIDs(ctx, ids)
	if err != nil {
		s.logger.Warn("knowledge lookup failed, using fallback records", zap.Error(err))
	} else {
		for _, record := range records {
			indexed[record.ID] = record
		}
	}

	resolved := make([]conditionKnowledge, len(scores))
	for i, score := range scores {
		id := knowledge.CanonicalID(score.Label)
		if record, ok := indexed[id]; ok {
			resolved[i] = conditionKnowledge{record: record}
			continue
		}
		resolved[i] = conditionKnowledge{
			record:   fallbackRecord(id, score.Label),
			fallback: true,
		}
	}
	return resolved
}

// fallbackRecord synthesizes a generic record for a label the knowledge
// store does not know about.
func fallbackRecord(id, label string) knowledge.ConditionRecord {
	return knowledge.ConditionRecord{
		ID:          id,
		Title:       strings.ReplaceAll(label, "_", " "),
		Description: fallbackDescription,
		Symptoms:    append(knowledge.StringList{}, fallbackSymptoms...),
	}
}
