package inference

import (
	"math"
	"sort"
)

// TopK is the number of ranked predictions carried into enrichment.
const TopK = 3

// Score pairs a class label with its softmax probability.
type Score struct {
	Label       string
	Probability float64
}

// Softmax converts logits into a probability distribution. The maximum logit
// is subtracted before exponentiating so large logits cannot overflow.
func Softmax(logits []float32) []float64 {
	if len(logits) == 0 {
		return nil
	}

	maxLogit := float64(logits[0])
	for _, v := range logits[1:] {
		if float64(v) > maxLogit {
			maxLogit = float64(v)
		}
	}

	exps := make([]float64, len(logits))
	var sum float64
	for i, v := range logits {
		exps[i] = math.Exp(float64(v) - maxLogit)
		sum += exps[i]
	}
	for i := range exps {
		exps[i] /= sum
	}
	return exps
}

// Rank pairs probabilities with labels by index and orders them by descending
// probability. The sort is stable, so equal probabilities keep their label
// order. When logits and labels differ in length, indices past the shorter
// sequence are dropped.
func Rank(logits []float32, labels []string) []Score {
	probs := Softmax(logits)

	n := len(probs)
	if len(labels) < n {
		n = len(labels)
	}

	scores := make([]Score, n)
	for i := 0; i < n; i++ {
		scores[i] = Score{Label: labels[i], Probability: probs[i]}
	}

	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Probability > scores[j].Probability
	})
	return scores
}

// TopScores truncates ranked scores to the pipeline's fixed top-K.
func TopScores(scores []Score) []Score {
	if len(scores) > TopK {
		return scores[:TopK]
	}
	return scores
}
