package inference

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// SessionCache memoizes a single model session and its class label set for
// the lifetime of the process. The first caller triggers the load; concurrent
// callers share the same in-flight load through singleflight. A failed load
// leaves the cache empty so the next request retries.
type SessionCache struct {
	engine     Engine
	modelPath  string
	labelsPath string
	logger     *zap.Logger

	group singleflight.Group

	mu      sync.RWMutex
	session Session
	labels  []string
}

// NewSessionCache wires a cache around the given engine and asset paths.
func NewSessionCache(engine Engine, modelPath, labelsPath string, logger *zap.Logger) *SessionCache {
	return &SessionCache{
		engine:     engine,
		modelPath:  modelPath,
		labelsPath: labelsPath,
		logger:     logger.Named("session_cache"),
	}
}

type loadedModel struct {
	session Session
	labels  []string
}

// Get returns the cached session and label set, loading them on first use.
func (c *SessionCache) Get(ctx context.Context) (Session, []string, error) {
	c.mu.RLock()
	session, labels := c.session, c.labels
	c.mu.RUnlock()
	if session != nil {
		return session, labels, nil
	}

	v, err, _ := c.group.Do("model", func() (interface{}, error) {
		labels, err := loadLabels(c.labelsPath)
		if err != nil {
			return nil, err
		}

		c.logger.Info("loading model", zap.String("path", c.modelPath))
		session, err := c.engine.Load(c.modelPath)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.session = session
		c.labels = labels
		c.mu.Unlock()

		c.logger.Info("model ready",
			zap.Int("classes", len(labels)),
			zap.Int("input_height", session.InputHeight()),
			zap.Int("input_width", session.InputWidth()),
		)
		return &loadedModel{session: session, labels: labels}, nil
	})
	if err != nil {
		c.logger.Error("model load failed", zap.Error(err))
		return nil, nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	loaded := v.(*loadedModel)
	return loaded.session, loaded.labels, nil
}

// loadLabels reads the ordered class label list, a JSON array of strings
// index-aligned with the model's output logits.
func loadLabels(path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read class labels: %w", err)
	}
	var labels []string
	if err := json.Unmarshal(raw, &labels); err != nil {
		return nil, fmt.Errorf("failed to parse class labels: %w", err)
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("class label list %s is empty", path)
	}
	return labels, nil
}
