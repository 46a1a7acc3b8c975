package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"stockroom-system/internal/database/models"
)

// SubmitRequest creates a Pending request for the actor. The quota check and
// the row insert run in one transaction with the stock row locked, so two
// concurrent submissions for the same pair cannot jointly exceed the quota.
// No stock is touched at submission time.
func (s *AllocationHandler) SubmitRequest(ctx context.Context, actor models.User, stockID int64, qty int32, comment string) (*models.Request, error) {
	tx := s.db.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	var stock models.Stock
	if err := lockForUpdate(tx).First(&stock, stockID).Error; err != nil {
		tx.Rollback()
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("stock %d: %w", stockID, ErrNotFound)
		}
		return nil, err
	}

	remaining, err := remainingQuotaTx(tx, actor.ID, stock)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if qty > remaining {
		tx.Rollback()
		return nil, fmt.Errorf("requested %d with %d quota remaining: %w", qty, remaining, ErrQuotaExceeded)
	}

	request := models.Request{
		UserID:       actor.ID,
		StockID:      stock.ID,
		Qty:          qty,
		Status:       models.RequestPending,
		UsersComment: strPtr(comment),
	}

	if err := tx.Create(&request).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	s.InvalidateAllocationCaches(ctx)

	return &request, nil
}

// AcceptRequest applies an admin acceptance. When the requested quantity is
// covered by avail the request is fulfilled in place. Otherwise everything
// currently available is fulfilled, the request is shrunk to that fulfilled
// portion, and a sibling request is created for the remainder. Both halves
// are stored Accepted; the sibling is the acknowledged backorder. The split
// cannot cascade: a partial acceptance drives avail to zero.
//
// Returns the decided request and, for the split case, the sibling.
func (s *AllocationHandler) AcceptRequest(ctx context.Context, actor models.User, requestID int64) (*models.Request, *models.Request, error) {
	if err := s.requireAdmin(actor); err != nil {
		return nil, nil, err
	}

	tx := s.db.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	var request models.Request
	if err := lockForUpdate(tx).First(&request, requestID).Error; err != nil {
		tx.Rollback()
		if err == gorm.ErrRecordNotFound {
			return nil, nil, fmt.Errorf("request %d: %w", requestID, ErrNotFound)
		}
		return nil, nil, err
	}

	if request.Status != models.RequestPending {
		tx.Rollback()
		return nil, nil, fmt.Errorf("accepting request %d with status %d: %w", request.ID, request.Status, ErrInvalidState)
	}

	var stock models.Stock
	if err := lockForUpdate(tx).First(&stock, request.StockID).Error; err != nil {
		tx.Rollback()
		if err == gorm.ErrRecordNotFound {
			return nil, nil, fmt.Errorf("stock %d: %w", request.StockID, ErrNotFound)
		}
		return nil, nil, err
	}

	want := request.Qty
	avail := stock.Avail

	var sibling *models.Request

	if want <= avail {
		if err := applyFulfillment(tx, &stock, want); err != nil {
			tx.Rollback()
			return nil, nil, fatalOnInsufficient(err)
		}
	} else {
		if err := applyFulfillment(tx, &stock, avail); err != nil {
			tx.Rollback()
			return nil, nil, fatalOnInsufficient(err)
		}

		// The request now records only the fulfilled portion; the
		// remainder becomes a sibling row against the drained item.
		request.Qty = avail
		sibling = &models.Request{
			UserID:  request.UserID,
			StockID: request.StockID,
			Qty:     want - avail,
			Status:  models.RequestAccepted,
		}
		if err := tx.Create(sibling).Error; err != nil {
			tx.Rollback()
			return nil, nil, err
		}
	}

	request.Status = models.RequestAccepted
	request.UpdatedAt = time.Now()

	if err := tx.Save(&request).Error; err != nil {
		tx.Rollback()
		return nil, nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, nil, err
	}

	s.InvalidateAllocationCaches(ctx)

	return &request, sibling, nil
}

// RejectRequest marks a Pending request Rejected. Stock is untouched, and
// the quantity immediately stops counting against the quota.
func (s *AllocationHandler) RejectRequest(ctx context.Context, actor models.User, requestID int64) (*models.Request, error) {
	if err := s.requireAdmin(actor); err != nil {
		return nil, err
	}

	tx := s.db.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	var request models.Request
	if err := lockForUpdate(tx).First(&request, requestID).Error; err != nil {
		tx.Rollback()
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("request %d: %w", requestID, ErrNotFound)
		}
		return nil, err
	}

	if request.Status != models.RequestPending {
		tx.Rollback()
		return nil, fmt.Errorf("rejecting request %d with status %d: %w", request.ID, request.Status, ErrInvalidState)
	}

	request.Status = models.RequestRejected
	request.UpdatedAt = time.Now()

	if err := tx.Save(&request).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	s.InvalidateAllocationCaches(ctx)

	return &request, nil
}

// AcknowledgeReceipt records that the owning user received the fulfilled
// units. Status and stock are untouched.
func (s *AllocationHandler) AcknowledgeReceipt(ctx context.Context, actor models.User, requestID int64, comment string) (*models.Request, error) {
	var request models.Request
	if err := s.db.WithContext(ctx).First(&request, requestID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("request %d: %w", requestID, ErrNotFound)
		}
		return nil, err
	}

	if request.UserID != actor.ID {
		return nil, fmt.Errorf("request %d belongs to another user: %w", requestID, ErrForbidden)
	}

	request.Received = true
	request.ReceivedComment = strPtr(comment)

	if err := s.db.WithContext(ctx).Save(&request).Error; err != nil {
		return nil, err
	}

	s.InvalidateAllocationCaches(ctx)

	return &request, nil
}

// ListRequests returns every request newest-first for the admin tables.
func (s *AllocationHandler) ListRequests(ctx context.Context, actor models.User) ([]models.Request, error) {
	if err := s.requireAdmin(actor); err != nil {
		return nil, err
	}

	if s.redis != nil {
		cached, err := s.redis.Get(ctx, REQUESTS_CACHE_KEY).Result()
		if err == nil {
			var requests []models.Request
			if err := json.Unmarshal([]byte(cached), &requests); err == nil {
				return requests, nil
			}
		}
	}

	var requests []models.Request
	if err := s.db.WithContext(ctx).
		Preload("User").Preload("Stock").
		Order("id DESC").
		Find(&requests).Error; err != nil {
		return nil, err
	}

	if s.redis != nil {
		if data, err := json.Marshal(requests); err == nil {
			_ = s.redis.Set(ctx, REQUESTS_CACHE_KEY, data, CACHE_TTL_SHORT)
		}
	}

	return requests, nil
}

// ListUserRequests returns the actor's own requests newest-first.
func (s *AllocationHandler) ListUserRequests(ctx context.Context, actor models.User) ([]models.Request, error) {
	var requests []models.Request
	if err := s.db.WithContext(ctx).
		Preload("Stock").
		Where("user_id = ?", actor.ID).
		Order("id DESC").
		Find(&requests).Error; err != nil {
		return nil, err
	}
	return requests, nil
}

// fatalOnInsufficient upgrades an InsufficientStock error escaping from an
// acceptance. The split logic always computes a safe quantity, so this path
// is an internal invariant breach and gets logged loudly instead of being
// reported as a user error.
func fatalOnInsufficient(err error) error {
	if errors.Is(err, ErrInsufficientStock) {
		log.Printf("INVARIANT VIOLATION: %v", err)
		return fmt.Errorf("internal ledger invariant violated: %w", err)
	}
	return err
}
