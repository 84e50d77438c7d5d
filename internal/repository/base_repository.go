package repository

import (
	"context"

	"campus_relay/internal/storage"
)

// baseRepository 提供各個 repository 共用的新增與依 ID 查詢
type baseRepository[T any] struct {
	db *storage.DB
}

func newBaseRepository[T any](db *storage.DB) baseRepository[T] {
	return baseRepository[T]{db: db}
}

func (r baseRepository[T]) Create(ctx context.Context, model *T) error {
	return r.db.WithContext(ctx).Create(model).Error
}

// FindByID 找不到時回傳 ErrNotFound
func (r baseRepository[T]) FindByID(ctx context.Context, id uint) (*T, error) {
	var model T
	if err := r.db.WithContext(ctx).First(&model, id).Error; err != nil {
		return nil, translate(err)
	}
	return &model, nil
}
