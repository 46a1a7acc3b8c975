package handler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"stockroom-system/internal/database/models"
)

const (
	STOCKS_CACHE_KEY   = "allocation:stocks"
	REQUESTS_CACHE_KEY = "allocation:requests"
	CACHE_TTL_SHORT    = 5 * time.Minute
	CACHE_TTL_MEDIUM   = 30 * time.Minute
)

// AllocationHandler is the allocation/fulfillment engine: quota checks,
// stock ledger mutations, request lifecycle and semester rollover.
// All callers pass the authenticated actor explicitly; admin-only
// operations fail with ErrForbidden when the flag is not set.
type AllocationHandler struct {
	db    *gorm.DB
	redis *redis.Client
}

func NewAllocationHandler(db *gorm.DB, redisClient *redis.Client) *AllocationHandler {
	return &AllocationHandler{
		db:    db,
		redis: redisClient,
	}
}

func (s *AllocationHandler) InvalidateAllocationCaches(ctx context.Context) {
	if s.redis == nil {
		return
	}
	_ = s.redis.Del(ctx, STOCKS_CACHE_KEY, REQUESTS_CACHE_KEY)
}

func (s *AllocationHandler) requireAdmin(actor models.User) error {
	if !actor.IsAdmin {
		return fmt.Errorf("accessing admin operation: %w", ErrForbidden)
	}
	return nil
}

// lockForUpdate takes a row-level exclusive lock so concurrent decisions on
// the same stock or request serialize. SQLite (used by the test suite) has a
// single writer and rejects FOR UPDATE, so the clause is postgres-only.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
