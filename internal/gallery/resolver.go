package gallery

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// SignTTL is how long issued gallery URLs stay valid.
const SignTTL = 5 * time.Minute

// Image is a single time-limited reference image. Never persisted.
type Image struct {
	URL     string `json:"url"`
	AltText string `json:"altText"`
}

// Resolver lists and signs reference images for a condition. Galleries are
// best-effort decoration: a listing failure yields an empty gallery, and a
// failure to sign one key drops only that key.
type Resolver struct {
	store     ObjectStore
	namespace string
	logger    *zap.Logger
}

// NewResolver creates a resolver over store. Keys live under
// "<namespace>/<conditionID>/".
func NewResolver(store ObjectStore, namespace string, logger *zap.Logger) *Resolver {
	return &Resolver{
		store:     store,
		namespace: namespace,
		logger:    logger.Named("gallery"),
	}
}

// signOutcome is the per-key result of URL issuance, reduced below so the
// drop-on-failure policy stays in one place.
type signOutcome struct {
	image Image
	err   error
}

// Resolve returns signed URLs for every reference image of conditionID, in
// store listing order.
func (r *Resolver) Resolve(ctx context.Context, conditionID string) []Image {
	prefix := fmt.Sprintf("%s/%s/", r.namespace, conditionID)

	keys, err := r.listAll(ctx, prefix)
	if err != nil {
		r.logger.Warn("gallery listing failed",
			zap.String("condition_id", conditionID),
			zap.Error(err),
		)
		return []Image{}
	}

	outcomes := make([]signOutcome, 0, len(keys))
	position := 0
	for _, key := range keys {
		if strings.HasSuffix(key, "/") {
			// directory marker
			continue
		}
		position++
		url, err := r.store.SignGetURL(ctx, key, SignTTL)
		if err != nil {
			outcomes = append(outcomes, signOutcome{err: fmt.Errorf("key %s: %w", key, err)})
			continue
		}
		outcomes = append(outcomes, signOutcome{image: Image{
			URL:     url,
			AltText: altText(conditionID, position),
		}})
	}

	images := make([]Image, 0, len(outcomes))
	dropped := 0
	for _, outcome := range outcomes {
		if outcome.err != nil {
			dropped++
			r.logger.Warn("failed to sign gallery image", zap.String("condition_id", conditionID), zap.Error(outcome.err))
			continue
		}
		images = append(images, outcome.image)
	}
	if dropped > 0 {
		r.logger.Info("gallery degraded",
			zap.String("condition_id", conditionID),
			zap.Int("resolved", len(images)),
			zap.Int("dropped", dropped),
		)
	}
	return images
}

// listAll walks every page of keys under prefix, concatenating them in
// store-returned order.
func (r *Resolver) listAll(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	token := ""
	for {
		page, next, err := r.store.ListPage(ctx, prefix, token)
		if err != nil {
			return nil, err
		}
		keys = append(keys, page...)
		if next == "" {
			return keys, nil
		}
		token = next
	}
}

func altText(conditionID string, position int) string {
	name := strings.ReplaceAll(conditionID, "-", " ")
	return fmt.Sprintf("%s reference image %d", name, position)
}
