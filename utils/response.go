package utils

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/pixelforge/pixelforge/apperr"
)

// JSONResponse defines the uniform structure for API responses.
type JSONResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Respond writes a JSON response with the given status code.
func Respond(ctx *gin.Context, status int, code int, message string, data interface{}) {
	ctx.JSON(status, JSONResponse{
		Code:    code,
		Message: message,
		Data:    data,
	})
}

// Success returns a standard success response.
func Success(ctx *gin.Context, data interface{}) {
	Respond(ctx, http.StatusOK, 0, "success", data)
}

// Accepted returns a 202 response for operations that continue in the background.
func Accepted(ctx *gin.Context, data interface{}) {
	Respond(ctx, http.StatusAccepted, 0, "accepted", data)
}

// Error returns a standard error response.
func Error(ctx *gin.Context, status int, code int, message string) {
	Respond(ctx, status, code, message, nil)
}

// Fail maps an error from the service layer onto the response envelope.
// The status distinguishes "fix your input" (400), "start over" (404),
// "wait and retry" (409/429), and server-side failures (500).
func Fail(ctx *gin.Context, err error) {
	var ve *apperr.ValidationError
	switch {
	case errors.As(err, &ve):
		Respond(ctx, http.StatusBadRequest, 40001, "validation failed", gin.H{"problems": ve.Problems})
	case errors.Is(err, apperr.ErrNotFound):
		Error(ctx, http.StatusNotFound, 40401, err.Error())
	case errors.Is(err, apperr.ErrForbidden):
		Error(ctx, http.StatusForbidden, 40301, "access denied")
	case errors.Is(err, apperr.ErrConflict):
		Error(ctx, http.StatusConflict, 40901, err.Error())
	case errors.Is(err, apperr.ErrRateLimited):
		Error(ctx, http.StatusTooManyRequests, 42901, "rate limit exceeded")
	default:
		if Logger != nil {
			Logger.Error("request failed", zap.String("path", ctx.FullPath()), zap.Error(err))
		}
		Error(ctx, http.StatusInternalServerError, 50001, "internal server error")
	}
}
