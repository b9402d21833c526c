package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/anggaran_backend/config"
	"bitbucket.org/mmdatafocus/anggaran_backend/utils"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var tracer = otel.Tracer("bitbucket.org/mmdatafocus/anggaran_backend/models")

// aggregateRoot is a row whose version column serializes writes to its children.
type aggregateRoot interface {
	GetID() int
	GetVersion() int
}

// guardAggregate runs mutate in a transaction that owns the parent aggregate.
// Children are validated against running totals inside mutate, then the parent's
// version is advanced with compare-and-set; a lost race rolls back and retries.
func guardAggregate[T any, PT interface {
	*T
	aggregateRoot
}](ctx context.Context, id int, mutate func(tx *gorm.DB, parent PT) error) error {
	aggregate := utils.GetTypeName[T]()
	settings := config.MustSettings()

	ctx, span := tracer.Start(ctx, "guard."+aggregate)
	span.SetAttributes(attribute.Int("aggregate.id", id))
	defer span.End()

	maxRetries := settings.ConflictMaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}
	for attempt := 1; attempt <= maxRetries; attempt++ {
		err := guardAttempt[T, PT](ctx, aggregate, id, settings.AggregateLockTTL, mutate)
		if err == nil {
			return nil
		}
		if !errors.Is(err, utils.ErrorVersionConflict) && !errors.Is(err, utils.ErrLockNotObtained) {
			if _, ok := utils.AsBusinessError(err); !ok {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			}
			return err
		}
		config.GetLogger().WithFields(logrus.Fields{
			"field":     "guardAggregate",
			"aggregate": aggregate,
			"id":        id,
			"attempt":   attempt,
		}).Info("concurrent write detected: " + err.Error())

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(settings.ConflictBackoff * time.Duration(attempt)):
		}
	}
	span.SetStatus(codes.Error, "conflict retries exhausted")
	return utils.NewConflictError(aggregate, id)
}

func guardAttempt[T any, PT interface {
	*T
	aggregateRoot
}](ctx context.Context, aggregate string, id int, ttl time.Duration, mutate func(tx *gorm.DB, parent PT) error) error {
	release, err := utils.ObtainAggregateLock(ctx, aggregate, id, ttl)
	if err != nil {
		return err
	}
	defer release()

	db := config.GetDB().WithContext(ctx)
	return db.Transaction(func(tx *gorm.DB) error {
		parent, err := lockForUpdate[T](tx, id)
		if err != nil {
			return err
		}
		root := PT(parent)
		version := root.GetVersion()
		if err := mutate(tx, root); err != nil {
			return err
		}
		return bumpVersion[T](tx, id, version)
	})
}

// lockForUpdate reads the row with SELECT ... FOR UPDATE where the dialect has row locks.
// sqlite serializes writers on its own.
func lockForUpdate[T any](tx *gorm.DB, id int, associations ...string) (*T, error) {
	q := tx
	if tx.Dialector.Name() != "sqlite" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return utils.FetchModelWith[T](q, id, associations...)
}

func bumpVersion[T any](tx *gorm.DB, id int, version int) error {
	var model T
	res := tx.Model(&model).
		Where("id = ? AND version = ?", id, version).
		UpdateColumn("version", gorm.Expr("version + 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return utils.ErrorVersionConflict
	}
	return nil
}

// guardAggregateDelete is guardAggregate for operations that remove the parent itself.
// The row lock is taken the same way; writers racing with the delete lose their
// version check and then see NotFound on retry.
func guardAggregateDelete[T any](ctx context.Context, id int, remove func(tx *gorm.DB, parent *T) error) error {
	aggregate := utils.GetTypeName[T]()
	settings := config.MustSettings()

	ctx, span := tracer.Start(ctx, "guard.delete."+aggregate)
	span.SetAttributes(attribute.Int("aggregate.id", id))
	defer span.End()

	release, err := utils.ObtainAggregateLock(ctx, aggregate, id, settings.AggregateLockTTL)
	if err != nil {
		if errors.Is(err, utils.ErrLockNotObtained) {
			return utils.NewConflictError(aggregate, id)
		}
		return err
	}
	defer release()

	return config.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		parent, err := lockForUpdate[T](tx, id)
		if err != nil {
			return err
		}
		return remove(tx, parent)
	})
}
