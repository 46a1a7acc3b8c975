package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"stockroom-system/internal/gateway/middleware"
	allocation "stockroom-system/internal/services/allocation/handler"
)

type RequestHTTPHandler struct {
	allocation *allocation.AllocationHandler
}

func NewRequestHTTPHandler(allocationHandler *allocation.AllocationHandler) *RequestHTTPHandler {
	return &RequestHTTPHandler{
		allocation: allocationHandler,
	}
}

type submitRequest struct {
	StockID int64  `json:"stock_id" binding:"required"`
	Qty     int32  `json:"qty" binding:"required"`
	Comment string `json:"comment"`
}

func (s *RequestHTTPHandler) SubmitRequest(c *gin.Context) {
	actor, ok := middleware.CurrentUser(c)
	if !ok {
		fail(c, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Qty <= 0 {
		fail(c, http.StatusBadRequest, "qty must be positive")
		return
	}

	request, err := s.allocation.SubmitRequest(c.Request.Context(), actor, req.StockID, req.Qty, req.Comment)
	if err != nil {
		failFromError(c, err)
		return
	}

	success(c, request)
}

func (s *RequestHTTPHandler) ListRequests(c *gin.Context) {
	actor, ok := middleware.CurrentUser(c)
	if !ok {
		fail(c, http.StatusUnauthorized, "not authenticated")
		return
	}

	requests, err := s.allocation.ListRequests(c.Request.Context(), actor)
	if err != nil {
		failFromError(c, err)
		return
	}

	success(c, requests)
}

func (s *RequestHTTPHandler) ListMyRequests(c *gin.Context) {
	actor, ok := middleware.CurrentUser(c)
	if !ok {
		fail(c, http.StatusUnauthorized, "not authenticated")
		return
	}

	requests, err := s.allocation.ListUserRequests(c.Request.Context(), actor)
	if err != nil {
		failFromError(c, err)
		return
	}

	success(c, requests)
}

func (s *RequestHTTPHandler) AcceptRequest(c *gin.Context) {
	actor, ok := middleware.CurrentUser(c)
	if !ok {
		fail(c, http.StatusUnauthorized, "not authenticated")
		return
	}

	id, err := parseIDParam(c, "id")
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid request ID")
		return
	}

	request, sibling, err := s.allocation.AcceptRequest(c.Request.Context(), actor, id)
	if err != nil {
		failFromError(c, err)
		return
	}

	success(c, gin.H{
		"request": request,
		"sibling": sibling,
	})
}

func (s *RequestHTTPHandler) RejectRequest(c *gin.Context) {
	actor, ok := middleware.CurrentUser(c)
	if !ok {
		fail(c, http.StatusUnauthorized, "not authenticated")
		return
	}

	id, err := parseIDParam(c, "id")
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid request ID")
		return
	}

	request, err := s.allocation.RejectRequest(c.Request.Context(), actor, id)
	if err != nil {
		failFromError(c, err)
		return
	}

	success(c, request)
}

type acknowledgeRequest struct {
	Comment string `json:"comment"`
}

func (s *RequestHTTPHandler) AcknowledgeReceipt(c *gin.Context) {
	actor, ok := middleware.CurrentUser(c)
	if !ok {
		fail(c, http.StatusUnauthorized, "not authenticated")
		return
	}

	id, err := parseIDParam(c, "id")
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid request ID")
		return
	}

	var req acknowledgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	request, err := s.allocation.AcknowledgeReceipt(c.Request.Context(), actor, id, req.Comment)
	if err != nil {
		failFromError(c, err)
		return
	}

	success(c, request)
}
