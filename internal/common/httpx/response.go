package httpx

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"restaurant-automation/internal/domain"
)

func OK(c *gin.Context, code int, data any) {
	c.JSON(code, gin.H{"success": true, "data": data})
}

func Fail(c *gin.Context, code int, errCode, msg string) {
	c.AbortWithStatusJSON(code, gin.H{
		"success": false,
		"error":   gin.H{"code": errCode, "message": msg},
	})
}

// FromError maps domain errors to a status and an error code.
func FromError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		Fail(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		Fail(c, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, domain.ErrStateConflict), errors.Is(err, domain.ErrBillLocked):
		Fail(c, http.StatusConflict, "STATE_CONFLICT", err.Error())
	case errors.Is(err, domain.ErrAutomationDisabled):
		Fail(c, http.StatusUnprocessableEntity, "AUTOMATION_DISABLED", err.Error())
	default:
		_ = c.Error(err)
		Fail(c, http.StatusInternalServerError, "INTERNAL_ERROR", "internal error")
	}
}

// IDParam parses a positive numeric path parameter.
func IDParam(c *gin.Context, name string) (uint, bool) {
	n, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || n == 0 {
		Fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid "+name)
		return 0, false
	}
	return uint(n), true
}

// IntQuery returns the query value or d when it is missing or malformed.
func IntQuery(c *gin.Context, key string, d int) int {
	s := c.Query(key)
	if s == "" {
		return d
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return d
	}
	return n
}
