package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"todo-service/internal/model"
)

// CollectionRepository keeps each collection as one row of the collections table.
type CollectionRepository struct {
	db *gorm.DB
}

func NewCollectionRepository(db *gorm.DB) *CollectionRepository {
	return &CollectionRepository{db: db}
}

func (r *CollectionRepository) Load(ctx context.Context, name string) ([]byte, bool, error) {
	var rec model.Collection
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&rec).Error
	switch {
	case err == nil:
		return rec.Payload, true, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, false, nil
	default:
		return nil, false, fmt.Errorf("find collection %s: %w", name, err)
	}
}

// Replace upserts the whole payload in a single statement, so readers see
// either the old or the new collection.
func (r *CollectionRepository) Replace(ctx context.Context, name string, payload []byte) error {
	rec := model.Collection{Name: name, Payload: payload}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&rec).Error
	if err != nil {
		return fmt.Errorf("replace collection %s: %w", name, err)
	}
	return nil
}

func (r *CollectionRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
