package catalog

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// GormRepository reads the priced_actions table.
type GormRepository struct {
	db *gorm.DB
}

func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func (r *GormRepository) Get(ctx context.Context, id string) (PricedAction, error) {
	var a PricedAction
	err := r.db.WithContext(ctx).First(&a, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return PricedAction{}, ErrUnknownAction
	}
	if err != nil {
		return PricedAction{}, fmt.Errorf("load action %s: %w", id, err)
	}
	return a, nil
}

func (r *GormRepository) ListActive(ctx context.Context, kind Kind) ([]PricedAction, error) {
	q := r.db.WithContext(ctx).Where("is_active = ?", true)
	if kind != "" {
		q = q.Where("kind = ?", kind)
	}
	out := []PricedAction{}
	if err := q.Order("cost ASC").Order("id ASC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list actions: %w", err)
	}
	return out, nil
}
