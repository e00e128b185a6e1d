// Package httpx holds the JSON envelope every endpoint answers with and the
// helpers handlers share for decoding requests and classifying errors.
package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/zenGate-Global/worklane/platform/go/apperr"
)

// Envelope is the body of every API response.
type Envelope struct {
	Success bool               `json:"success"`
	Message string             `json:"message,omitempty"`
	Data    any                `json:"data,omitempty"`
	Errors  apperr.FieldErrors `json:"errors,omitempty"`
}

// WriteJSON encodes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// OK writes a success envelope.
func OK(w http.ResponseWriter, status int, data any) {
	WriteJSON(w, status, Envelope{Success: true, Data: data})
}

// OKMessage writes a success envelope carrying a message.
func OKMessage(w http.ResponseWriter, status int, message string, data any) {
	WriteJSON(w, status, Envelope{Success: true, Message: message, Data: data})
}

// Fail writes a failure envelope.
func Fail(w http.ResponseWriter, status int, message string, fields apperr.FieldErrors) {
	WriteJSON(w, status, Envelope{Success: false, Message: message, Errors: fields})
}

// Pagination describes the window a list response covers.
type Pagination struct {
	CurrentPage int `json:"currentPage"`
	TotalPages  int `json:"totalPages"`
	Limit       int `json:"limit"`
}

// NewPagination derives the page count from total and limit.
func NewPagination(page, limit, total int) Pagination {
	totalPages := 0
	if limit > 0 && total > 0 {
		totalPages = (total + limit - 1) / limit
	}
	return Pagination{CurrentPage: page, TotalPages: totalPages, Limit: limit}
}

// List builds the data object of a paginated response: the items under key,
// plus total and pagination.
func List[T any](key string, items []T, total int, pagination Pagination) map[string]any {
	if items == nil {
		items = []T{}
	}
	return map[string]any{
		key:          items,
		"total":      total,
		"pagination": pagination,
	}
}
