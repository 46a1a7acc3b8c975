package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"stockroom-system/internal/export"
	"stockroom-system/internal/gateway/middleware"
	allocation "stockroom-system/internal/services/allocation/handler"
)

type StockHTTPHandler struct {
	allocation *allocation.AllocationHandler
}

func NewStockHTTPHandler(allocationHandler *allocation.AllocationHandler) *StockHTTPHandler {
	return &StockHTTPHandler{
		allocation: allocationHandler,
	}
}

type stockView struct {
	ID             int64  `json:"id"`
	Item           string `json:"item"`
	QtyPrev        int32  `json:"qty_prev"`
	Avail          int32  `json:"avail"`
	QtyReq         int32  `json:"qty_req"`
	QtyPres        int32  `json:"qty_pres"`
	Quota          int32  `json:"quota"`
	RemainingQuota int32  `json:"remaining_quota"`
}

// ListStocks returns every item together with the caller's remaining quota,
// which is what the user home page renders. The quota figures are computed
// fresh per call.
func (s *StockHTTPHandler) ListStocks(c *gin.Context) {
	actor, ok := middleware.CurrentUser(c)
	if !ok {
		fail(c, http.StatusUnauthorized, "not authenticated")
		return
	}

	stocks, err := s.allocation.ListStocks(c.Request.Context())
	if err != nil {
		failFromError(c, err)
		return
	}

	views := make([]stockView, len(stocks))
	for i, stock := range stocks {
		remaining, err := s.allocation.RemainingQuota(c.Request.Context(), actor.ID, stock.ID)
		if err != nil {
			failFromError(c, err)
			return
		}
		views[i] = stockView{
			ID:             stock.ID,
			Item:           stock.Item,
			QtyPrev:        stock.QtyPrev,
			Avail:          stock.Avail,
			QtyReq:         stock.QtyReq,
			QtyPres:        stock.QtyPres,
			Quota:          stock.Quota,
			RemainingQuota: remaining,
		}
	}

	success(c, views)
}

type addStockRequest struct {
	Item   string `json:"item" binding:"required"`
	Avail  int32  `json:"avail"`
	QtyReq int32  `json:"qty_req"`
	Quota  int32  `json:"quota"`
}

func (s *StockHTTPHandler) AddStock(c *gin.Context) {
	actor, ok := middleware.CurrentUser(c)
	if !ok {
		fail(c, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req addStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Avail < 0 || req.QtyReq < 0 || req.Quota < 0 {
		fail(c, http.StatusBadRequest, "quantities must not be negative")
		return
	}

	stock, err := s.allocation.AddStock(c.Request.Context(), actor, req.Item, req.Avail, req.QtyReq, req.Quota)
	if err != nil {
		failFromError(c, err)
		return
	}

	success(c, stock)
}

type updateStockRequest struct {
	Avail  int32 `json:"avail"`
	QtyReq int32 `json:"qty_req"`
}

func (s *StockHTTPHandler) UpdateStockLevels(c *gin.Context) {
	actor, ok := middleware.CurrentUser(c)
	if !ok {
		fail(c, http.StatusUnauthorized, "not authenticated")
		return
	}

	id, err := parseIDParam(c, "id")
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid stock ID")
		return
	}

	var req updateStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Avail < 0 || req.QtyReq < 0 {
		fail(c, http.StatusBadRequest, "quantities must not be negative")
		return
	}

	stock, err := s.allocation.SetStockLevels(c.Request.Context(), actor, id, req.Avail, req.QtyReq)
	if err != nil {
		failFromError(c, err)
		return
	}

	success(c, stock)
}

// Download streams the current ledger as the CSV attachment, without
// touching any counters.
func (s *StockHTTPHandler) Download(c *gin.Context) {
	actor, ok := middleware.CurrentUser(c)
	if !ok {
		fail(c, http.StatusUnauthorized, "not authenticated")
		return
	}

	rows, err := s.allocation.Snapshot(c.Request.Context(), actor)
	if err != nil {
		failFromError(c, err)
		return
	}

	writeCSVAttachment(c, rows)
}

// Rollover closes the semester and streams the pre-reset snapshot, so the
// export is durable even though the counters have already been shifted.
func (s *StockHTTPHandler) Rollover(c *gin.Context) {
	actor, ok := middleware.CurrentUser(c)
	if !ok {
		fail(c, http.StatusUnauthorized, "not authenticated")
		return
	}

	rows, err := s.allocation.Rollover(c.Request.Context(), actor)
	if err != nil {
		failFromError(c, err)
		return
	}

	writeCSVAttachment(c, rows)
}

func writeCSVAttachment(c *gin.Context, rows []allocation.SnapshotRow) {
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", `attachment; filename="stock.csv"`)
	c.Status(http.StatusOK)
	if err := export.WriteSnapshot(c.Writer, rows); err != nil {
		_ = c.Error(fmt.Errorf("writing stock export: %w", err))
	}
}
