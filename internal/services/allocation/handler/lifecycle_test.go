package handler

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockroom-system/internal/database/models"
)

func TestSubmitRequest(t *testing.T) {
	db := newTestDB(t)
	s := NewAllocationHandler(db, nil)

	user := seedUser(t, db, "requester@example.com", false)
	stock := seedStock(t, db, "soldering iron", 10, 5)

	request, err := s.SubmitRequest(context.Background(), user, stock.ID, 3, "for lab 2")
	require.NoError(t, err)

	assert.Equal(t, models.RequestPending, request.Status)
	assert.Equal(t, int32(3), request.Qty)
	require.NotNil(t, request.UsersComment)
	assert.Equal(t, "for lab 2", *request.UsersComment)

	// Submission never touches stock.
	after := reloadStock(t, db, stock.ID)
	assert.Equal(t, int32(10), after.Avail)
	assert.Equal(t, int32(0), after.QtyPres)
}

func TestSubmitRequestQuotaExceeded(t *testing.T) {
	db := newTestDB(t)
	s := NewAllocationHandler(db, nil)

	user := seedUser(t, db, "requester@example.com", false)
	stock := seedStock(t, db, "soldering iron", 10, 5)

	_, err := s.SubmitRequest(context.Background(), user, stock.ID, 4, "")
	require.NoError(t, err)

	_, err = s.SubmitRequest(context.Background(), user, stock.ID, 2, "")
	assert.ErrorIs(t, err, ErrQuotaExceeded)

	var count int64
	require.NoError(t, db.Model(&models.Request{}).Count(&count).Error)
	assert.Equal(t, int64(1), count, "a refused submission must not create a row")
}

func TestSubmitRequestQuotaFreedByRejection(t *testing.T) {
	db := newTestDB(t)
	s := NewAllocationHandler(db, nil)

	admin := seedUser(t, db, "admin@example.com", true)
	user := seedUser(t, db, "requester@example.com", false)
	stock := seedStock(t, db, "soldering iron", 10, 5)

	request, err := s.SubmitRequest(context.Background(), user, stock.ID, 5, "")
	require.NoError(t, err)

	_, err = s.SubmitRequest(context.Background(), user, stock.ID, 1, "")
	require.ErrorIs(t, err, ErrQuotaExceeded)

	_, err = s.RejectRequest(context.Background(), admin, request.ID)
	require.NoError(t, err)

	_, err = s.SubmitRequest(context.Background(), user, stock.ID, 5, "")
	assert.NoError(t, err, "rejected requests must stop consuming quota")
}

func TestConcurrentSubmitsNeverExceedQuota(t *testing.T) {
	db := newTestDB(t)
	s := NewAllocationHandler(db, nil)

	user := seedUser(t, db, "requester@example.com", false)
	stock := seedStock(t, db, "soldering iron", 100, 5)

	// Each submission fits on its own; together they would overrun the
	// quota. The re-check under the stock row lock must refuse one of them.
	var wg sync.WaitGroup
	for _, qty := range []int32{4, 3} {
		wg.Add(1)
		go func(qty int32) {
			defer wg.Done()
			_, _ = s.SubmitRequest(context.Background(), user, stock.ID, qty, "")
		}(qty)
	}
	wg.Wait()

	var requests []models.Request
	require.NoError(t, db.Where("user_id = ? AND stock_id = ?", user.ID, stock.ID).Find(&requests).Error)

	var consumed int32
	for _, r := range requests {
		if r.Status != models.RequestRejected {
			consumed += r.Qty
		}
	}
	assert.LessOrEqual(t, consumed, stock.Quota, "joint submissions must never exceed the quota")
	assert.Len(t, requests, 1, "the losing submission must not create a row")
}

func TestAcceptRequestFull(t *testing.T) {
	db := newTestDB(t)
	s := NewAllocationHandler(db, nil)

	admin := seedUser(t, db, "admin@example.com", true)
	user := seedUser(t, db, "requester@example.com", false)
	stock := seedStock(t, db, "bench supply", 10, 10)

	request, err := s.SubmitRequest(context.Background(), user, stock.ID, 4, "")
	require.NoError(t, err)

	decided, sibling, err := s.AcceptRequest(context.Background(), admin, request.ID)
	require.NoError(t, err)
	assert.Nil(t, sibling, "full fulfillment must not split")

	assert.Equal(t, models.RequestAccepted, decided.Status)
	assert.Equal(t, int32(4), decided.Qty)

	after := reloadStock(t, db, stock.ID)
	assert.Equal(t, int32(6), after.Avail)
	assert.Equal(t, int32(4), after.QtyPres)

	var count int64
	require.NoError(t, db.Model(&models.Request{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestAcceptRequestSplit(t *testing.T) {
	db := newTestDB(t)
	s := NewAllocationHandler(db, nil)

	admin := seedUser(t, db, "admin@example.com", true)
	user := seedUser(t, db, "requester@example.com", false)
	stock := seedStock(t, db, "bench supply", 5, 10)

	request, err := s.SubmitRequest(context.Background(), user, stock.ID, 8, "")
	require.NoError(t, err)

	decided, sibling, err := s.AcceptRequest(context.Background(), admin, request.ID)
	require.NoError(t, err)

	// Original row shrinks to the fulfilled portion.
	assert.Equal(t, int32(5), decided.Qty)
	assert.Equal(t, models.RequestAccepted, decided.Status)

	// Sibling carries the remainder, also Accepted (the acknowledged
	// backorder).
	require.NotNil(t, sibling)
	assert.Equal(t, int32(3), sibling.Qty)
	assert.Equal(t, models.RequestAccepted, sibling.Status)
	assert.Equal(t, user.ID, sibling.UserID)
	assert.Equal(t, stock.ID, sibling.StockID)

	after := reloadStock(t, db, stock.ID)
	assert.Equal(t, int32(0), after.Avail)
	assert.Equal(t, int32(5), after.QtyPres)

	var count int64
	require.NoError(t, db.Model(&models.Request{}).Count(&count).Error)
	assert.Equal(t, int64(2), count, "exactly one sibling per split")
}

func TestAcceptRequestNothingAvailable(t *testing.T) {
	db := newTestDB(t)
	s := NewAllocationHandler(db, nil)

	admin := seedUser(t, db, "admin@example.com", true)
	user := seedUser(t, db, "requester@example.com", false)
	stock := seedStock(t, db, "bench supply", 0, 10)

	request, err := s.SubmitRequest(context.Background(), user, stock.ID, 4, "")
	require.NoError(t, err)

	decided, sibling, err := s.AcceptRequest(context.Background(), admin, request.ID)
	require.NoError(t, err)

	assert.Equal(t, int32(0), decided.Qty)
	require.NotNil(t, sibling)
	assert.Equal(t, int32(4), sibling.Qty)

	after := reloadStock(t, db, stock.ID)
	assert.Equal(t, int32(0), after.Avail)
	assert.Equal(t, int32(0), after.QtyPres)
}

func TestAcceptRequestTerminalStates(t *testing.T) {
	db := newTestDB(t)
	s := NewAllocationHandler(db, nil)

	admin := seedUser(t, db, "admin@example.com", true)
	user := seedUser(t, db, "requester@example.com", false)
	stock := seedStock(t, db, "bench supply", 10, 10)

	request, err := s.SubmitRequest(context.Background(), user, stock.ID, 2, "")
	require.NoError(t, err)

	_, _, err = s.AcceptRequest(context.Background(), admin, request.ID)
	require.NoError(t, err)

	// Accepted is terminal.
	_, _, err = s.AcceptRequest(context.Background(), admin, request.ID)
	assert.ErrorIs(t, err, ErrInvalidState)

	after := reloadStock(t, db, stock.ID)
	assert.Equal(t, int32(8), after.Avail, "a refused accept must leave the ledger untouched")
}

func TestAcceptRequestRequiresAdmin(t *testing.T) {
	db := newTestDB(t)
	s := NewAllocationHandler(db, nil)

	user := seedUser(t, db, "requester@example.com", false)
	stock := seedStock(t, db, "bench supply", 10, 10)

	request, err := s.SubmitRequest(context.Background(), user, stock.ID, 2, "")
	require.NoError(t, err)

	_, _, err = s.AcceptRequest(context.Background(), user, request.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	assert.Equal(t, models.RequestPending, reloadRequest(t, db, request.ID).Status)
}

func TestAcceptRequestNotFound(t *testing.T) {
	db := newTestDB(t)
	s := NewAllocationHandler(db, nil)

	admin := seedUser(t, db, "admin@example.com", true)

	_, _, err := s.AcceptRequest(context.Background(), admin, 12345)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRejectRequest(t *testing.T) {
	db := newTestDB(t)
	s := NewAllocationHandler(db, nil)

	admin := seedUser(t, db, "admin@example.com", true)
	user := seedUser(t, db, "requester@example.com", false)
	stock := seedStock(t, db, "bench supply", 10, 10)

	request, err := s.SubmitRequest(context.Background(), user, stock.ID, 4, "")
	require.NoError(t, err)

	rejected, err := s.RejectRequest(context.Background(), admin, request.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestRejected, rejected.Status)

	after := reloadStock(t, db, stock.ID)
	assert.Equal(t, int32(10), after.Avail)
	assert.Equal(t, int32(0), after.QtyPres)

	// Rejected is terminal.
	_, err = s.RejectRequest(context.Background(), admin, request.ID)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestAcknowledgeReceipt(t *testing.T) {
	db := newTestDB(t)
	s := NewAllocationHandler(db, nil)

	admin := seedUser(t, db, "admin@example.com", true)
	user := seedUser(t, db, "requester@example.com", false)
	other := seedUser(t, db, "other@example.com", false)
	stock := seedStock(t, db, "bench supply", 10, 10)

	request, err := s.SubmitRequest(context.Background(), user, stock.ID, 4, "")
	require.NoError(t, err)
	_, _, err = s.AcceptRequest(context.Background(), admin, request.ID)
	require.NoError(t, err)

	_, err = s.AcknowledgeReceipt(context.Background(), other, request.ID, "thanks")
	assert.ErrorIs(t, err, ErrForbidden)

	acked, err := s.AcknowledgeReceipt(context.Background(), user, request.ID, "all good")
	require.NoError(t, err)
	assert.True(t, acked.Received)
	require.NotNil(t, acked.ReceivedComment)
	assert.Equal(t, "all good", *acked.ReceivedComment)
	assert.Equal(t, models.RequestAccepted, acked.Status, "receipt must not change status")
}

func TestConcurrentAcceptsNeverOverdraw(t *testing.T) {
	db := newTestDB(t)
	s := NewAllocationHandler(db, nil)

	admin := seedUser(t, db, "admin@example.com", true)
	alice := seedUser(t, db, "alice@example.com", false)
	bob := seedUser(t, db, "bob@example.com", false)
	stock := seedStock(t, db, "bench supply", 5, 10)

	first, err := s.SubmitRequest(context.Background(), alice, stock.ID, 4, "")
	require.NoError(t, err)
	second, err := s.SubmitRequest(context.Background(), bob, stock.ID, 3, "")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for _, id := range []int64{first.ID, second.ID} {
		wg.Add(1)
		go func(requestID int64) {
			defer wg.Done()
			// Contention errors are acceptable; overdraw is not.
			_, _, _ = s.AcceptRequest(context.Background(), admin, requestID)
		}(id)
	}
	wg.Wait()

	after := reloadStock(t, db, stock.ID)
	assert.GreaterOrEqual(t, after.Avail, int32(0), "avail must never go negative")
	assert.LessOrEqual(t, after.QtyPres, int32(5), "cannot fulfill more than was ever available")
	assert.Equal(t, int32(5), after.Avail+after.QtyPres, "units only move between avail and qty_pres")
}
