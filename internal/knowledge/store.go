package knowledge

import (
	"context"

	"gorm.io/gorm"
)

// Store is the knowledge store collaborator. Results carry no ordering
// guarantee; callers index them by id.
type Store interface {
	FindByIDs(ctx context.Context, ids []string) ([]ConditionRecord, error)
}

// GormStore is the Postgres-backed knowledge store.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a store over the given database handle.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// AutoMigrate ensures the schema is available.
func (s *GormStore) AutoMigrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&ConditionRecord{})
}

// FindByIDs fetches all condition records matching the given identity keys in
// one batched query. Unknown ids are simply absent from the result.
func (s *GormStore) FindByIDs(ctx context.Context, ids []string) ([]ConditionRecord, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var records []ConditionRecord
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
