package helpers

import (
	"errors"
	"fmt"
	"net/http"

	"bidwar/internal/biddingerrors"
	"bidwar/utils"

	"github.com/gin-gonic/gin"
)

// HandleBindError sends a standardized JSON error for binding failures
func HandleBindError(c *gin.Context, handlerName string, err error) {
	wrappedErr := fmt.Errorf("invalid request payload: %w", err)
	utils.JSONError(c, http.StatusBadRequest, wrappedErr, "invalid request payload")
	utils.Warn(handlerName+": binding error", map[string]any{"error": err.Error()})
}

// MapErrorToHTTP maps domain/service errors to HTTP status code and message
func MapErrorToHTTP(err error) (int, string) {
	switch {
	case errors.Is(err, biddingerrors.ErrProjectNotFound):
		return http.StatusNotFound, "project not found"
	case errors.Is(err, biddingerrors.ErrNoActiveBid):
		return http.StatusNotFound, "no active bid"
	case errors.Is(err, biddingerrors.ErrAuctionNotOpen):
		return http.StatusConflict, "auction is not open"
	case errors.Is(err, biddingerrors.ErrInvalidState):
		return http.StatusConflict, "action not allowed in current state"
	case errors.Is(err, biddingerrors.ErrParticipantCapReached):
		return http.StatusConflict, "participant cap reached"
	case errors.Is(err, biddingerrors.ErrProjectExists):
		return http.StatusConflict, "project already exists"
	case errors.Is(err, biddingerrors.ErrAmountOutOfRange):
		return http.StatusBadRequest, "bid amount outside budget"
	case errors.Is(err, biddingerrors.ErrInvalidSelection):
		return http.StatusBadRequest, "invalid selection"
	case errors.Is(err, biddingerrors.ErrInvalidBid):
		return http.StatusBadRequest, "invalid bid details"
	case errors.Is(err, biddingerrors.ErrInvalidProject):
		return http.StatusBadRequest, "invalid project details"
	case errors.Is(err, biddingerrors.ErrRateLimited):
		return http.StatusTooManyRequests, "bid updated too frequently"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// HandleServiceError writes the mapped error response and logs it
func HandleServiceError(c *gin.Context, handlerName string, err error, fields map[string]any) {
	status, message := MapErrorToHTTP(err)
	utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)

	if fields == nil {
		fields = map[string]any{}
	}
	fields["handler"] = handlerName
	fields["error"] = err.Error()
	if status >= http.StatusInternalServerError {
		utils.Error(handlerName+": request failed", fields)
		return
	}
	utils.Warn(handlerName+": request rejected", fields)
}

// LogSuccess is a small helper to standardize logging of successful operations
func LogSuccess(handlerName, message string, ctx map[string]any) {
	utils.Info(handlerName+": "+message, ctx)
}
