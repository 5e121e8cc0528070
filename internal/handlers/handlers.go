// Package handlers wires the HTTP surface to the analysis pipeline.
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/derm-api/internal/analyse"
	"github.com/example/derm-api/internal/auth"
	"github.com/example/derm-api/internal/gallery"
	"github.com/example/derm-api/internal/history"
	"github.com/example/derm-api/internal/inference"
	"github.com/example/derm-api/internal/preprocess"
)

// MaxUploadSize caps uploaded image size at 5 MB.
const MaxUploadSize = 5 << 20

// Analyser is the pipeline surface consumed by the handlers.
type Analyser interface {
	Analyse(ctx context.Context, imageBytes []byte) ([]analyse.SkinConditionResult, error)
	Rebuild(ctx context.Context, entries []analyse.StoredEntry) []analyse.SkinConditionResult
}

// HistoryRepository persists and lists analysis history records.
type HistoryRepository interface {
	Save(ctx context.Context, record *history.Record) error
	ListByUser(ctx context.Context, userID string, page, limit int) ([]history.Record, int64, error)
}

// Handler carries the collaborators shared by all routes.
type Handler struct {
	analyser  Analyser
	histories HistoryRepository
	store     gallery.ObjectStore
	logger    *zap.Logger
}

// NewHandler constructs the route handler set.
func NewHandler(analyser Analyser, histories HistoryRepository, store gallery.ObjectStore, logger *zap.Logger) *Handler {
	return &Handler{
		analyser:  analyser,
		histories: histories,
		store:     store,
		logger:    logger.Named("handlers"),
	}
}

// RegisterRoutes wires the HTTP handlers to the Gin router. History routes
// require authentication; analysis does not.
func RegisterRoutes(router *gin.Engine, h *Handler, authMiddleware gin.HandlerFunc) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.POST("/analyse", h.Analyse)

	protected := router.Group("/disease-history", authMiddleware)
	protected.POST("", h.CreateHistory)
	protected.GET("", h.ListHistory)
}

// Analyse accepts a multipart image upload and returns the ranked, enriched
// predictions.
func (h *Handler) Analyse(c *gin.Context) {
	data, _, ok := h.readImage(c)
	if !ok {
		return
	}

	results, err := h.analyser.Analyse(c.Request.Context(), data)
	if err != nil {
		h.writeAnalysisError(c, err)
		return
	}

	c.JSON(http.StatusOK, results)
}

// createHistoryRequest mirrors the multipart form of POST /disease-history.
type createHistoryRequest struct {
	Diseases   []history.DiseaseEntry
	OccurredAt time.Time
}

// CreateHistory stores the uploaded image in the blob store and persists the
// submitted condition entries for later listing.
func (h *Handler) CreateHistory(c *gin.Context) {
	userID, ok := auth.GetUserID(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	data, header, ok := h.readImage(c)
	if !ok {
		return
	}

	req, err := parseCreateHistoryForm(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if ext == "" {
		ext = ".jpeg"
	}
	objectKey := "history/" + uuid.NewString() + ext

	contentType := header.Header.Get("Content-Type")
	if err := h.store.Upload(c.Request.Context(), objectKey, bytes.NewReader(data), contentType); err != nil {
		h.logger.Error("failed to upload history image", zap.String("key", objectKey), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store image"})
		return
	}

	record := &history.Record{
		UserID:     userID,
		ImageKey:   objectKey,
		Entries:    req.Diseases,
		OccurredAt: req.OccurredAt,
	}
	if err := h.histories.Save(c.Request.Context(), record); err != nil {
		h.logger.Error("failed to persist history record", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save history"})
		return
	}

	c.Status(http.StatusCreated)
}

// ListHistory returns one page of the user's history with enriched results
// re-derived from the stored confidence values.
func (h *Handler) ListHistory(c *gin.Context) {
	userID, ok := auth.GetUserID(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	page := intQuery(c, "page", 1)
	limit := intQuery(c, "limit", 10)

	records, total, err := h.histories.ListByUser(c.Request.Context(), userID, page, limit)
	if err != nil {
		h.logger.Error("failed to list history", zap.String("user_id", userID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list history"})
		return
	}

	items := make([]gin.H, 0, len(records))
	for _, record := range records {
		entries := make([]analyse.StoredEntry, 0, len(record.Entries))
		for _, entry := range record.Entries {
			entries = append(entries, analyse.StoredEntry{
				ConditionID:       entry.ConditionID,
				ConfidencePercent: entry.ConfidencePercent,
			})
		}

		items = append(items, gin.H{
			"historyId":  record.ID,
			"occurredAt": record.OccurredAt,
			"createdAt":  record.CreatedAt,
			"imageUrl":   h.signHistoryImage(c.Request.Context(), record.ImageKey),
			"results":    h.analyser.Rebuild(c.Request.Context(), entries),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"page":  page,
		"limit": limit,
		"total": total,
		"data":  items,
	})
}

// signHistoryImage issues a short-lived URL for a stored upload. Signing
// failures degrade to an empty URL, same policy as the gallery.
func (h *Handler) signHistoryImage(ctx context.Context, key string) string {
	if key == "" {
		return ""
	}
	url, err := h.store.SignGetURL(ctx, key, gallery.SignTTL)
	if err != nil {
		h.logger.Warn("failed to sign history image", zap.String("key", key), zap.Error(err))
		return ""
	}
	return url
}

// readImage extracts the multipart "image" field, enforcing the upload cap.
// On failure it writes the response and returns ok=false.
func (h *Handler) readImage(c *gin.Context) ([]byte, *multipart.FileHeader, bool) {
	header, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image file is required"})
		return nil, nil, false
	}
	if header.Size > MaxUploadSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "image exceeds the 5 MB limit"})
		return nil, nil, false
	}

	file, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unable to open uploaded image"})
		return nil, nil, false
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, MaxUploadSize+1))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read image"})
		return nil, nil, false
	}
	if len(data) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "uploaded image is empty"})
		return nil, nil, false
	}
	if len(data) > MaxUploadSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "image exceeds the 5 MB limit"})
		return nil, nil, false
	}
	return data, header, true
}

// writeAnalysisError maps pipeline errors onto the response taxonomy: bad
// input is the client's fault, a missing model is retryable server-side, and
// anything else is an internal failure.
func (h *Handler) writeAnalysisError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, preprocess.ErrDecode):
		c.JSON(http.StatusBadRequest, gin.H{"error": "unable to process uploaded image"})
	case errors.Is(err, inference.ErrUnavailable):
		h.logger.Error("model unavailable", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "unable to load prediction model"})
	default:
		h.logger.Error("analysis failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "analysis failed"})
	}
}

func parseCreateHistoryForm(c *gin.Context) (*createHistoryRequest, error) {
	raw := c.PostForm("diseases")
	if raw == "" {
		return nil, errors.New("diseases field is required")
	}

	var diseases []history.DiseaseEntry
	if err := json.Unmarshal([]byte(raw), &diseases); err != nil {
		return nil, errors.New("diseases must be a JSON array of {conditionId, confidencePercent}")
	}
	if len(diseases) == 0 {
		return nil, errors.New("at least one disease entry is required")
	}

	occurredAt := time.Now().UTC()
	if value := c.PostForm("occurredAt"); value != "" {
		parsed, err := time.Parse(time.RFC3339, value)
		if err != nil {
			return nil, errors.New("occurredAt must be RFC 3339")
		}
		occurredAt = parsed
	}

	return &createHistoryRequest{Diseases: diseases, OccurredAt: occurredAt}, nil
}

func intQuery(c *gin.Context, name string, fallback int) int {
	value := c.Query(name)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed < 1 {
		return fallback
	}
	return parsed
}
