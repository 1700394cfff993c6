package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Body is the standard API response envelope.
type Body struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Code    string      `json:"code,omitempty"`
}

// OK sends a 200 JSON response with data.
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Body{Success: true, Data: data})
}

// Created sends a 201 JSON response with data.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Body{Success: true, Data: data})
}

// Processing sends a 200 response telling the client the registration is not
// yet verified. Ticket data must never ride on this payload.
func Processing(c *gin.Context, trackingNumber, paymentStatus string) {
	c.JSON(http.StatusOK, Body{Success: true, Data: gin.H{
		"status":          "processing",
		"tracking_number": trackingNumber,
		"payment_status":  paymentStatus,
	}})
}

// BadRequest sends 400 with error message.
func BadRequest(c *gin.Context, err string) {
	c.JSON(http.StatusBadRequest, Body{Success: false, Error: err})
}

// Unauthorized sends 401.
func Unauthorized(c *gin.Context, err string) {
	c.JSON(http.StatusUnauthorized, Body{Success: false, Error: err})
}

// Forbidden sends 403.
func Forbidden(c *gin.Context, err string) {
	c.JSON(http.StatusForbidden, Body{Success: false, Error: err})
}

// NotFound sends 404.
func NotFound(c *gin.Context, err string) {
	c.JSON(http.StatusNotFound, Body{Success: false, Error: err})
}

// Conflict sends 409 with a machine-readable code so the UI can distinguish
// e.g. "already used" from "payment not verified".
func Conflict(c *gin.Context, code, err string) {
	c.JSON(http.StatusConflict, Body{Success: false, Error: err, Code: code})
}

// UnprocessableEntity sends 422 with a code (eligibility failures).
func UnprocessableEntity(c *gin.Context, code, err string) {
	c.JSON(http.StatusUnprocessableEntity, Body{Success: false, Error: err, Code: code})
}

// ServiceUnavailable sends 503.
func ServiceUnavailable(c *gin.Context, err string) {
	c.JSON(http.StatusServiceUnavailable, Body{Success: false, Error: err})
}

// GatewayTimeout sends 504 (retryable gateway expiry).
func GatewayTimeout(c *gin.Context, err string) {
	c.JSON(http.StatusGatewayTimeout, Body{Success: false, Error: err})
}

// Internal sends 500.
func Internal(c *gin.Context, err string) {
	c.JSON(http.StatusInternalServerError, Body{Success: false, Error: err})
}
