package handler

import (
	"context"
	"time"

	"stockroom-system/internal/database/models"
)

// SnapshotRow is one exported ledger line. Column order matches the CSV
// contract: Id, Previous semester, Available, Quantity Required, Quantity
// present.
type SnapshotRow struct {
	ID      int64
	QtyPrev int32
	Avail   int32
	QtyReq  int32
	QtyPres int32
}

func snapshotOf(stocks []models.Stock) []SnapshotRow {
	rows := make([]SnapshotRow, len(stocks))
	for i, stock := range stocks {
		rows[i] = SnapshotRow{
			ID:      stock.ID,
			QtyPrev: stock.QtyPrev,
			Avail:   stock.Avail,
			QtyReq:  stock.QtyReq,
			QtyPres: stock.QtyPres,
		}
	}
	return rows
}

// Snapshot exports the current ledger without mutating it (the plain
// download, as opposed to the end-of-semester reset).
func (s *AllocationHandler) Snapshot(ctx context.Context, actor models.User) ([]SnapshotRow, error) {
	if err := s.requireAdmin(actor); err != nil {
		return nil, err
	}

	var stocks []models.Stock
	if err := s.db.WithContext(ctx).Order("id").Find(&stocks).Error; err != nil {
		return nil, err
	}
	return snapshotOf(stocks), nil
}

// Rollover closes the semester: it snapshots every item, shifts qty_pres
// into qty_prev and zeroes qty_pres. Avail and qty_req carry over untouched.
// Every row is locked for the duration, so a concurrent Accept either lands
// entirely before the snapshot or entirely after the reset. The returned
// snapshot holds the pre-rollover values for export.
func (s *AllocationHandler) Rollover(ctx context.Context, actor models.User) ([]SnapshotRow, error) {
	if err := s.requireAdmin(actor); err != nil {
		return nil, err
	}

	tx := s.db.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	var stocks []models.Stock
	if err := lockForUpdate(tx).Order("id").Find(&stocks).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	rows := snapshotOf(stocks)

	for i := range stocks {
		stocks[i].QtyPrev = stocks[i].QtyPres
		stocks[i].QtyPres = 0
		stocks[i].UpdatedAt = time.Now()
		if err := tx.Save(&stocks[i]).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	s.InvalidateAllocationCaches(ctx)

	return rows, nil
}
