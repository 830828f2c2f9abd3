package utils

import "github.com/gin-gonic/gin"

// RequestIDKey is the gin context key holding the request id.
const RequestIDKey = "request_id"

// ErrorResponse is the uniform error envelope.
type ErrorResponse struct {
	Status    int    `json:"status"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	Path      string `json:"path"`
	Errors    any    `json:"errors,omitempty"`
	Stack     string `json:"stack,omitempty"`
}

// MessageResponse is a bare message body used for simple client errors.
type MessageResponse struct {
	Message string `json:"message"`
}

// Respond writes a JSON response with the given status code.
func Respond(ctx *gin.Context, status int, body any) {
	ctx.JSON(status, body)
}

// Success returns a 200 response.
func Success(ctx *gin.Context, body any) {
	Respond(ctx, 200, body)
}

// Message writes {"message": msg} with the given status.
func Message(ctx *gin.Context, status int, msg string) {
	Respond(ctx, status, MessageResponse{Message: msg})
}
