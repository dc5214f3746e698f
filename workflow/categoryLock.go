package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/mmdatafocus/books_ledger/config"
	"github.com/mmdatafocus/books_ledger/utils"
	"github.com/sirupsen/logrus"
)

const (
	categoryLockTTL     = 30 * time.Second
	categoryLockWait    = 10 * time.Second
	categoryLockBackoff = 50 * time.Millisecond
)

var ErrCategoryLockNotObtained = errors.New("could not obtain account category lock")

// CategoryLocker serializes writers of the same account categories.
// Within a process a mutex per (business, category) is held; when a
// redislock client is set the same key is also locked in Redis so that
// other instances wait too.
type CategoryLocker struct {
	mu    sync.Mutex
	locks map[string]*categoryMutex
	redis *redislock.Client
}

type categoryMutex struct {
	mu   sync.Mutex
	refs int
}

func NewCategoryLocker(redisLock *redislock.Client) *CategoryLocker {
	return &CategoryLocker{
		locks: make(map[string]*categoryMutex),
		redis: redisLock,
	}
}

var (
	defaultLocker     *CategoryLocker
	defaultLockerOnce sync.Once
)

// DefaultCategoryLocker is shared by every workflow in the process. Redis
// is used only when LEDGER_DISTRIBUTED_LOCK is enabled and Redis was
// connected before the first posting.
func DefaultCategoryLocker() *CategoryLocker {
	defaultLockerOnce.Do(func() {
		var rl *redislock.Client
		if config.DistributedCategoryLock() {
			rl = config.GetRedisLock()
		}
		defaultLocker = NewCategoryLocker(rl)
	})
	return defaultLocker
}

func categoryLockKey(businessId string, categoryId int) string {
	return fmt.Sprintf("lock:ledger:%s:%d", businessId, categoryId)
}

// Lock takes every category in ascending id order and returns a function
// releasing them in reverse. On error nothing is left locked.
func (l *CategoryLocker) Lock(ctx context.Context, logger *logrus.Logger, businessId string, categoryIds []int) (func(), error) {
	ids := utils.SortedUnique(categoryIds)
	releases := make([]func(), 0, len(ids))
	unlock := func() {
		for i := len(releases) - 1; i >= 0; i-- {
			releases[i]()
		}
	}
	for _, id := range ids {
		release, err := l.lockOne(ctx, logger, categoryLockKey(businessId, id))
		if err != nil {
			unlock()
			return nil, err
		}
		releases = append(releases, release)
	}
	return unlock, nil
}

func (l *CategoryLocker) lockOne(ctx context.Context, logger *logrus.Logger, key string) (func(), error) {
	m := l.acquire(key)
	m.mu.Lock()
	localRelease := func() {
		m.mu.Unlock()
		l.release(key)
	}
	if l.redis == nil {
		return localRelease, nil
	}

	obtainCtx, cancel := context.WithTimeout(ctx, categoryLockWait)
	defer cancel()
	lock, err := l.redis.Obtain(obtainCtx, key, categoryLockTTL, &redislock.Options{
		RetryStrategy: redislock.LinearBackoff(categoryLockBackoff),
	})
	if err != nil {
		localRelease()
		if errors.Is(err, redislock.ErrNotObtained) || errors.Is(err, context.DeadlineExceeded) {
			config.LogError(logger, "CategoryLock", "lockOne", "Could not obtain lock", key, err)
			return nil, fmt.Errorf("%w: %s", ErrCategoryLockNotObtained, key)
		}
		config.LogError(logger, "CategoryLock", "lockOne", "Error obtaining lock", key, err)
		return nil, err
	}
	return func() {
		if releaseErr := lock.Release(context.Background()); releaseErr != nil && !errors.Is(releaseErr, redislock.ErrLockNotHeld) {
			config.LogError(logger, "CategoryLock", "lockOne", "Failed to release lock", key, releaseErr)
		}
		localRelease()
	}, nil
}

func (l *CategoryLocker) acquire(key string) *categoryMutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m := l.locks[key]
	if m == nil {
		m = &categoryMutex{}
		l.locks[key] = m
	}
	m.refs++
	return m
}

func (l *CategoryLocker) release(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	m := l.locks[key]
	if m == nil {
		return
	}
	m.refs--
	if m.refs == 0 {
		delete(l.locks, key)
	}
}

// held reports how many keys currently have holders or waiters.
func (l *CategoryLocker) held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
