// Package response defines the JSON envelope every HTTP handler replies with.
package response

import "github.com/gin-gonic/gin"

// Envelope is the body shape shared by success and error replies.
// Data carries the operation result; Errors carries validation or
// failure detail, never both at once.
type Envelope struct {
	Status     string      `json:"status"`
	StatusCode int         `json:"status_code"`
	Message    string      `json:"message"`
	Data       interface{} `json:"data,omitempty"`
	Errors     interface{} `json:"errors,omitempty"`
}

// RespondJSON writes the envelope with the given HTTP status code.
// Status is "success" or "error".
func RespondJSON(c *gin.Context, status string, code int, message string, data interface{}, errors interface{}) {
	c.JSON(code, Envelope{
		Status:     status,
		StatusCode: code,
		Message:    message,
		Data:       data,
		Errors:     errors,
	})
}
