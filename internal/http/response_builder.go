// This file implements a small builder for JSON responses and the mapping
// from domain errors to status codes.

package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"spendlog/internal/core"
	applog "spendlog/internal/log"
)

// Client-facing messages. The not-found text is identical for missing and
// foreign records.
const (
	msgNotFound         = "Not found or unauthorized"
	msgDeleted          = "Deleted successfully"
	msgStoreUnavailable = "Storage temporarily unavailable"
	msgInternal         = "Internal server error"
	msgRateLimited      = "Rate limit exceeded. Please try again later."
)

type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

type messageBody struct {
	Message string `json:"message"`
}

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	headers    map[string]string
	payload    any
}

// NewJSONResponse creates a builder with a 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Payload sets the value encoded as the response body.
func (b *JSONResponseBuilder) Payload(v any) *JSONResponseBuilder {
	b.payload = v
	return b
}

// Write sends the built response.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	if b.payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(b.payload); err != nil {
		slog.Error("Failed to encode JSON response", "error", err, "status_code", b.statusCode)
	}
}

// ErrorResponse creates a {"error": message} response.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().Status(statusCode).Payload(errorBody{Error: message})
}

func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

func NotFoundError() *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, msgNotFound)
}

func InternalServerError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}

func TooManyRequestsError() *JSONResponseBuilder {
	return ErrorResponse(http.StatusTooManyRequests, msgRateLimited)
}

// DeletedResponse is the confirmation returned by DELETE.
func DeletedResponse() *JSONResponseBuilder {
	return NewJSONResponse().Payload(messageBody{Message: msgDeleted})
}

// ErrorFromDomain maps service errors onto HTTP responses:
// missing device and validation are 400, not-found is 404, the rest 500.
func ErrorFromDomain(err error) *JSONResponseBuilder {
	var ve *core.ValidationError
	switch {
	case errors.Is(err, core.ErrMissingDeviceID):
		return BadRequestError("Device ID is required")
	case errors.As(err, &ve):
		return NewJSONResponse().
			Status(http.StatusBadRequest).
			Payload(errorBody{Error: ve.Message, Field: ve.Field})
	case errors.Is(err, core.ErrNotFoundOrUnauthorized):
		return NotFoundError()
	case errors.Is(err, core.ErrStoreUnavailable):
		return InternalServerError(msgStoreUnavailable)
	default:
		return InternalServerError(msgInternal)
	}
}

// writeError logs err at a level matching its status and writes the mapped response.
func writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	resp := ErrorFromDomain(err)
	logger := applog.FromContext(r.Context())
	if resp.statusCode >= 500 {
		applog.NewStructuredLogger(logger).LogError(r.Context(), "Expense request failed", err, op, nil)
	} else {
		attrs := applog.NewFields().WithOperation(op).WithError(err).ToSlice()
		logger.WarnContext(r.Context(), "Expense request rejected", append(attrs, applog.FieldStatusCode, resp.statusCode)...)
	}
	resp.Write(w)
}
