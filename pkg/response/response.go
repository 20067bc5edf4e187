package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorBody is the shape of every non-2xx JSON response.
type ErrorBody struct {
	Error     string `json:"error"`
	Details   any    `json:"details,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// Success writes data as the JSON body. Payloads are endpoint-specific
// objects such as {"board": ...} or {"boards": [...]}.
func Success[T any](ctx *gin.Context, status int, data T) {
	if status == 0 {
		status = http.StatusOK
	}
	ctx.JSON(status, data)
}

// Message writes {"message": msg}.
func Message(ctx *gin.Context, status int, msg string) {
	Success(ctx, status, gin.H{"message": msg})
}

// NewError builds an error body tagged with the request id.
func NewError(ctx *gin.Context, message string, details any) ErrorBody {
	return ErrorBody{
		Error:     message,
		Details:   details,
		RequestID: ctx.GetString("request_id"),
	}
}

// Error aborts the chain and writes an ErrorBody.
func Error(ctx *gin.Context, status int, message string, details any) {
	if status == 0 {
		status = http.StatusBadRequest
	}
	ctx.AbortWithStatusJSON(status, NewError(ctx, message, details))
}
