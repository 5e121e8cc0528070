package analyse

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/derm-api/internal/gallery"
	"github.com/example/derm-api/internal/inference"
	"github.com/example/derm-api/internal/knowledge"
	"github.com/example/derm-api/internal/logging"
	"github.com/example/derm-api/internal/preprocess"
)

// ModelProvider hands out the cached model session and its ordered class
// label set. Satisfied by inference.SessionCache.
type ModelProvider interface {
	Get(ctx context.Context) (inference.Session, []string, error)
}

// GalleryResolver resolves best-effort reference images for a condition.
type GalleryResolver interface {
	Resolve(ctx context.Context, conditionID string) []gallery.Image
}

// Service runs the analysis pipeline. Safe for concurrent use; the only
// state shared between requests lives in the model provider.
type Service struct {
	models    ModelProvider
	knowledge knowledge.Store
	gallery   GalleryResolver
	logger    *zap.Logger
}

// NewService wires the pipeline's collaborators together.
func NewService(models ModelProvider, store knowledge.Store, resolver GalleryResolver, logger *zap.Logger) *Service {
	return &Service{
		models:    models,
		knowledge: store,
		gallery:   resolver,
		logger:    logger.Named("analyse"),
	}
}

// Analyse classifies an uploaded image and returns the enriched top
// predictions. Error cases: preprocess.ErrDecode for unusable input,
// inference.ErrUnavailable when the model cannot be loaded, and
// inference.ErrNoOutput when the engine breaks its contract.
func (s *Service) Analyse(ctx context.Context, imageBytes []byte) ([]SkinConditionResult, error) {
	requestID := uuid.NewString()
	opLogger := logging.WithOperation(s.logger, "analyse.run", requestID)

	session, labels, err := s.models.Get(ctx)
	if err != nil {
		return nil, logging.NewOperationError("analyse.load_model", requestID, err)
	}

	tensor, err := preprocess.Preprocess(imageBytes, session.InputWidth(), session.InputHeight())
	if err != nil {
		return nil, logging.NewOperationError("analyse.preprocess", requestID, err)
	}

	start := time.Now()
	logits, err := session.Run(ctx, tensor)
	if err != nil {
		return nil, logging.NewOperationError("analyse.inference", requestID, err)
	}

	scores := inference.TopScores(inference.Rank(logits, labels))
	if len(scores) > 0 {
		opLogger.Debug("inference completed",
			zap.Duration("duration", time.Since(start)),
			zap.String("top_prediction", scores[0].Label),
		)
	}

	return s.Enrich(ctx, scores), nil
}
