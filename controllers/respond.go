package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/blogthread/services"
	"github.com/cppla/blogthread/utils"
)

// statusOf maps a service error kind to its HTTP status.
func statusOf(err error) int {
	switch {
	case errors.Is(err, services.ErrInvalidArgument),
		errors.Is(err, services.ErrValidationFailed),
		errors.Is(err, services.ErrRelationshipMismatch):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrDeletedConcurrently):
		return http.StatusConflict
	case errors.Is(err, services.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err as an envelope. Internal causes are logged, never returned.
func respondError(ctx *gin.Context, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError && utils.Logger != nil {
		utils.Logger.Error("request failed",
			zap.String("method", ctx.Request.Method),
			zap.String("path", ctx.FullPath()),
			zap.Error(err))
	}
	message := services.Message(err)
	if status == http.StatusInternalServerError {
		message = "internal server error"
	}
	utils.Error(ctx, status, message)
}

// bindJSON decodes the request body into out, answering 400 on malformed JSON.
func bindJSON(ctx *gin.Context, out interface{}) bool {
	if err := ctx.ShouldBindJSON(out); err != nil {
		utils.Error(ctx, http.StatusBadRequest, "invalid request payload")
		return false
	}
	return true
}
