package utils

import (
	"context"
	"reflect"
	"time"

	"bitbucket.org/mmdatafocus/anggaran_backend/config"
	"gorm.io/gorm"
)

// check if id exists, return a NotFound BusinessError naming the model.
// Positive lookups are cached in redis for CATALOG_CACHE_TTL.
func ValidateResourceId[T any](ctx context.Context, id int) error {
	if id <= 0 {
		return NewNotFoundError(GetTypeName[T](), id)
	}
	if cached, err := existsInRedis[T](id); err == nil && cached {
		return nil
	}

	count, err := ResourceCountWhere[T](ctx, "id = ?", id)
	if err != nil {
		return err
	}
	if count <= 0 {
		return NewNotFoundError(GetTypeName[T](), id)
	}
	rememberInRedis[T](id, config.MustSettings().CatalogCacheTTL)
	return nil
}

// ValidateUnique fails with DuplicateKey when another row (not exceptId) already holds value.
// extra narrows the scope, e.g. "kontrak_id = ?" for per-contract keys.
func ValidateUnique[T any](db *gorm.DB, column string, value interface{}, exceptId interface{}, extra ...interface{}) error {
	var model T
	q := db.Model(&model).Where(column+" = ?", value)
	if !reflect.ValueOf(exceptId).IsZero() {
		q = q.Where("id <> ?", exceptId)
	}
	if len(extra) > 0 {
		if cond, ok := extra[0].(string); ok {
			q = q.Where(cond, extra[1:]...)
		}
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return NewDuplicateKeyError(column, value)
	}
	return nil
}

// count records, using WHERE $condition
func ResourceCountWhere[T any](ctx context.Context, condition string, value ...interface{}) (int64, error) {
	return ResourceCountWhereWith[T](config.GetDB().WithContext(ctx), condition, value...)
}

func ResourceCountWhereWith[T any](db *gorm.DB, condition string, value ...interface{}) (int64, error) {
	var model T
	var count int64
	if err := db.Model(&model).Where(condition, value...).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func existsInRedis[T any](id int) (bool, error) {
	var marker bool
	return config.GetRedisObject(existenceKey[T](id), &marker)
}

func rememberInRedis[T any](id int, ttl time.Duration) {
	if err := config.SetRedisObject(existenceKey[T](id), true, ttl); err != nil {
		config.GetLogger().WithField("key", existenceKey[T](id)).Warn("catalog cache write failed: " + err.Error())
	}
}
