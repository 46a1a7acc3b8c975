package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"

	"stockroom-system/internal/database/models"
)

// ListStocks returns every stock item, served from the redis cache when
// possible. Quota arithmetic never goes through this path.
func (s *AllocationHandler) ListStocks(ctx context.Context) ([]models.Stock, error) {
	if s.redis != nil {
		cached, err := s.redis.Get(ctx, STOCKS_CACHE_KEY).Result()
		if err == nil {
			var stocks []models.Stock
			if err := json.Unmarshal([]byte(cached), &stocks); err == nil {
				return stocks, nil
			}
		}
	}

	var stocks []models.Stock
	if err := s.db.WithContext(ctx).Order("id").Find(&stocks).Error; err != nil {
		return nil, err
	}

	if s.redis != nil {
		if data, err := json.Marshal(stocks); err == nil {
			_ = s.redis.Set(ctx, STOCKS_CACHE_KEY, data, CACHE_TTL_MEDIUM)
		}
	}

	return stocks, nil
}

func (s *AllocationHandler) GetStock(ctx context.Context, stockID int64) (*models.Stock, error) {
	var stock models.Stock
	if err := s.db.WithContext(ctx).First(&stock, stockID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("stock %d: %w", stockID, ErrNotFound)
		}
		return nil, err
	}
	return &stock, nil
}

// AddStock creates a new ledger item. A fresh item starts the period with
// nothing carried over and nothing fulfilled.
func (s *AllocationHandler) AddStock(ctx context.Context, actor models.User, item string, avail, qtyReq, quota int32) (*models.Stock, error) {
	if err := s.requireAdmin(actor); err != nil {
		return nil, err
	}

	stock := models.Stock{
		Item:    item,
		QtyPrev: 0,
		Avail:   avail,
		QtyReq:  qtyReq,
		QtyPres: 0,
		Quota:   quota,
	}

	if err := s.db.WithContext(ctx).Create(&stock).Error; err != nil {
		return nil, err
	}

	s.InvalidateAllocationCaches(ctx)

	return &stock, nil
}

// SetStockLevels is the admin direct edit of avail and qty_req.
// Non-negativity is validated at the HTTP boundary, not here.
func (s *AllocationHandler) SetStockLevels(ctx context.Context, actor models.User, stockID int64, avail, qtyReq int32) (*models.Stock, error) {
	if err := s.requireAdmin(actor); err != nil {
		return nil, err
	}

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

	stock.Avail = avail
	stock.QtyReq = qtyReq
	stock.UpdatedAt = time.Now()

	if err := tx.Save(&stock).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	s.InvalidateAllocationCaches(ctx)

	return &stock, nil
}

// applyFulfillment moves qty units from avail to qty_pres on the locked
// stock row. The caller owns the transaction and must have computed a safe
// quantity beforehand; failing here means that contract was broken.
func applyFulfillment(tx *gorm.DB, stock *models.Stock, qty int32) error {
	if qty > stock.Avail {
		return fmt.Errorf("fulfilling %d of stock %d with %d available: %w",
			qty, stock.ID, stock.Avail, ErrInsufficientStock)
	}

	stock.Avail -= qty
	stock.QtyPres += qty
	stock.UpdatedAt = time.Now()

	return tx.Save(stock).Error
}
