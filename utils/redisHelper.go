package utils

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"

	"bitbucket.org/mmdatafocus/anggaran_backend/config"
	"github.com/bsm/redislock"
	"github.com/sirupsen/logrus"
)

/* generic functions */

func GetTypeName[T any]() string {
	var v T
	typeOfT := reflect.TypeOf(v)
	return typeOfT.Name()
}

/* Redis */

func existenceKey[T any](id int) string {
	return GetTypeName[T]() + ":exists:" + fmt.Sprint(id)
}

// ErrLockNotObtained means another request holds the aggregate lock.
var ErrLockNotObtained = errors.New("could not obtain aggregate lock")

// lockRetryInterval is how often a busy aggregate lock is polled.
const lockRetryInterval = 50 * time.Millisecond

// lockRetryStrategy waits for a busy lock at most one TTL, after which the holder's lock has expired anyway.
func lockRetryStrategy(ttl time.Duration) redislock.RetryStrategy {
	retries := int(ttl / lockRetryInterval)
	if retries < 1 {
		retries = 1
	}
	return redislock.LimitRetry(redislock.LinearBackoff(lockRetryInterval), retries)
}

// ObtainAggregateLock takes the distributed lock for one aggregate (e.g. "anggaran", 12).
// Without redis it returns a no-op release func: correctness never depends on redis,
// the DB version check still serializes writers.
func ObtainAggregateLock(ctx context.Context, aggregate string, id int, ttl time.Duration) (func(), error) {
	logger := config.GetLogger()
	locker := config.GetRedisLock()
	if locker == nil {
		return func() {}, nil
	}
	lockKey := fmt.Sprintf("lock:%s:%d", aggregate, id)
	lock, err := locker.Obtain(ctx, lockKey, ttl, &redislock.Options{RetryStrategy: lockRetryStrategy(ttl)})
	if err == redislock.ErrNotObtained {
		return nil, ErrLockNotObtained
	} else if err != nil {
		// redis trouble: proceed without the lock
		logger.WithFields(logrus.Fields{
			"field":     "ObtainAggregateLock",
			"aggregate": aggregate,
			"id":        id,
		}).Warn("error obtaining redis lock; proceeding without redis lock: " + err.Error())
		return func() {}, nil
	}
	return func() {
		if releaseErr := lock.Release(context.Background()); releaseErr != nil && releaseErr != redislock.ErrLockNotHeld {
			logger.WithFields(logrus.Fields{
				"field":     "ObtainAggregateLock",
				"aggregate": aggregate,
				"id":        id,
			}).Warn("failed to release redis lock: " + releaseErr.Error())
		}
	}, nil
}
