package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	allocation "stockroom-system/internal/services/allocation/handler"
	user "stockroom-system/internal/services/user/handler"
)

func success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
	})
}

func fail(c *gin.Context, code int, message string) {
	c.JSON(code, gin.H{
		"success": false,
		"error":   message,
	})
}

func parseIDParam(c *gin.Context, param string) (int64, error) {
	return strconv.ParseInt(c.Param(param), 10, 64)
}

// failFromError maps the service error taxonomy onto HTTP status codes.
func failFromError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, allocation.ErrQuotaExceeded):
		fail(c, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, allocation.ErrInvalidState):
		fail(c, http.StatusConflict, err.Error())
	case errors.Is(err, allocation.ErrForbidden), errors.Is(err, user.ErrForbidden):
		fail(c, http.StatusForbidden, "forbidden")
	case errors.Is(err, allocation.ErrNotFound), errors.Is(err, user.ErrNotFound):
		fail(c, http.StatusNotFound, err.Error())
	case errors.Is(err, user.ErrEmailTaken):
		fail(c, http.StatusConflict, err.Error())
	case errors.Is(err, user.ErrBadCredentials):
		fail(c, http.StatusUnauthorized, err.Error())
	default:
		fail(c, http.StatusInternalServerError, "internal error")
	}
}
