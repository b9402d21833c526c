package utils

import (
	"context"
	"errors"

	"bitbucket.org/mmdatafocus/anggaran_backend/config"
	"gorm.io/gorm"
)

/* DB fetching */

// fetch model from db
// (may return a NotFound BusinessError)
func FetchModel[T any](ctx context.Context, id int, associations ...string) (*T, error) {
	return FetchModelWith[T](config.GetDB().WithContext(ctx), id, associations...)
}

// same as FetchModel, on a caller supplied handle (usually a transaction)
func FetchModelWith[T any](db *gorm.DB, id int, associations ...string) (*T, error) {
	if id <= 0 {
		return nil, NewNotFoundError(GetTypeName[T](), id)
	}
	dbCtx := db
	for _, field := range associations {
		dbCtx = dbCtx.Preload(field)
	}
	var result T
	err := dbCtx.First(&result, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewNotFoundError(GetTypeName[T](), id)
		}
		return nil, err
	}
	return &result, nil
}

// fetch all rows matching condition, ordered
func FetchModelsWhere[T any](db *gorm.DB, order string, condition string, values ...interface{}) ([]*T, error) {
	var results []*T
	q := db.Where(condition, values...)
	if order != "" {
		q = q.Order(order)
	}
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
