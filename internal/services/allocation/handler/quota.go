package handler

import (
	"context"

	"gorm.io/gorm"

	"stockroom-system/internal/database/models"
)

// RemainingQuota returns how many units of the stock the user may still
// request. Pending and Accepted requests count against the quota, Rejected
// ones do not. The value is computed fresh on every call and is never
// cached: it must reflect every prior request for the pair at evaluation
// time.
func (s *AllocationHandler) RemainingQuota(ctx context.Context, userID int64, stockID int64) (int32, error) {
	var stock models.Stock
	if err := s.db.WithContext(ctx).First(&stock, stockID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return remainingQuotaTx(s.db.WithContext(ctx), userID, stock)
}

// remainingQuotaTx computes the remaining quota inside the caller's
// transaction. Submit runs it under the stock row lock so the check and the
// eventual insert cannot be separated by a concurrent submission.
func remainingQuotaTx(tx *gorm.DB, userID int64, stock models.Stock) (int32, error) {
	var requests []models.Request
	if err := tx.Where("user_id = ? AND stock_id = ?", userID, stock.ID).
		Find(&requests).Error; err != nil {
		return 0, err
	}

	var consumed int32
	for _, r := range requests {
		if r.Status == models.RequestPending || r.Status == models.RequestAccepted {
			consumed += r.Qty
		}
	}

	remaining := stock.Quota - consumed
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}
