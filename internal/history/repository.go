// Package history persists past analysis results for list views.
package history

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// DiseaseEntry is one stored (condition, confidence) pair.
type DiseaseEntry struct {
	ConditionID       string `json:"conditionId"`
	ConfidencePercent int    `json:"confidencePercent"`
}

// EntryList stores disease entries as a JSON column.
type EntryList []DiseaseEntry

// Value implements driver.Valuer.
func (l EntryList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	raw, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

// Scan implements sql.Scanner.
func (l *EntryList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return fmt.Errorf("cannot scan %T into EntryList", value)
	}
}

// Record is one persisted analysis history entry.
type Record struct {
	ID         uint      `gorm:"primaryKey"`
	UserID     string    `gorm:"column:user_id;index;size:64"`
	ImageKey   string    `gorm:"column:image_key;size:255"`
	Entries    EntryList `gorm:"column:entries;type:jsonb"`
	OccurredAt time.Time `gorm:"column:occurred_at;index"`
	CreatedAt  time.Time `gorm:"column:created_at"`
}

// TableName overrides the default table name.
func (Record) TableName() string {
	return "disease_histories"
}

// Repository provides persistence APIs for history records.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new repository instance.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// AutoMigrate ensures the schema is available.
func (r *Repository) AutoMigrate(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&Record{})
}

// Save persists a history record.
func (r *Repository) Save(ctx context.Context, record *Record) error {
	return r.db.WithContext(ctx).Create(record).Error
}

// ListByUser returns one page of a user's history, newest occurrence first,
// along with the total record count for that user.
func (r *Repository) ListByUser(ctx context.Context, userID string, page, limit int) ([]Record, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}

	query := r.db.WithContext(ctx).Model(&Record{}).Where("user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var records []Record
	if err := query.
		Order("occurred_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&records).Error; err != nil {
		return nil, 0, err
	}
	return records, total, nil
}
