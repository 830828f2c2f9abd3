package middleware

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/uploadhub/utils"
)

type statusCoder interface {
	StatusCode() int
}

type detailer interface {
	Details() any
}

// Handle adapts an error-returning handler to gin. Returned errors are recorded on the
// context and rendered by ErrorHandler, so handlers never write error bodies themselves.
func Handle(fn func(ctx *gin.Context) error) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if err := fn(ctx); err != nil {
			_ = ctx.Error(err)
			ctx.Abort()
		}
	}
}

// NotFoundHandler reports unmatched routes through the error handler.
func NotFoundHandler(ctx *gin.Context) {
	_ = ctx.Error(utils.NotFound(ctx.Request.URL.RequestURI()))
	ctx.Abort()
}

// ErrorHandler renders the last error recorded during the request as the standard JSON envelope.
// Every error is logged before the response is written. Stack traces are included only when
// development is true.
func ErrorHandler(logger *zap.Logger, development bool) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		ctx.Next()

		if len(ctx.Errors) == 0 {
			return
		}
		err := ctx.Errors.Last().Err

		status := http.StatusInternalServerError
		var sc statusCoder
		if errors.As(err, &sc) {
			status = sc.StatusCode()
		}

		message := err.Error()
		if message == "" {
			message = "Internal Server Error"
		}

		fields := []zap.Field{
			zap.Int("status", status),
			zap.String("path", ctx.Request.URL.RequestURI()),
			zap.String("request_id", ctx.GetString(utils.RequestIDKey)),
			zap.Error(err),
		}
		if status >= http.StatusInternalServerError {
			var apiErr *utils.APIError
			if errors.As(err, &apiErr) {
				fields = append(fields, zap.NamedError("cause", apiErr.Unwrap()))
			}
			logger.Error("request failed", fields...)
		} else {
			logger.Warn("request rejected", fields...)
		}

		if ctx.Writer.Written() {
			return
		}

		resp := utils.ErrorResponse{
			Status:    status,
			Message:   message,
			Timestamp: time.Now().UTC().Format("2006-01-02T15:04:05.000Z07:00"),
			Path:      ctx.Request.URL.RequestURI(),
		}
		var apiErr *utils.APIError
		if errors.As(err, &apiErr) && apiErr.Errors != nil {
			resp.Errors = apiErr.Errors
		} else {
			var d detailer
			if errors.As(err, &d) {
				resp.Errors = d.Details()
			}
		}
		if development {
			resp.Stack = utils.StackOf(err)
		}

		ctx.JSON(status, resp)
	}
}
