package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/zenGate-Global/worklane/platform/go/apperr"
	"github.com/zenGate-Global/worklane/platform/go/persistence"
)

// MaxPageLimit caps the page size of every list endpoint.
const MaxPageLimit = 100

// MaxPage keeps (page-1)*limit within int for any accepted limit.
const MaxPage = math.MaxInt / MaxPageLimit

const maxBodyBytes = 1 << 20

// DecodeJSON reads a single JSON object into dst, rejecting unknown fields.
// Every failure is a ValidationError.
func DecodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return apperr.WithMessage(apperr.Validation(map[string]string{"body": "request body is required"}), "Invalid request body")
	}

	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		detail := err.Error()
		if errors.Is(err, io.EOF) {
			detail = "request body is required"
		}
		return apperr.WithMessage(apperr.Validation(map[string]string{"body": detail}), "Invalid request body")
	}
	if dec.More() {
		return apperr.WithMessage(apperr.Validation(map[string]string{"body": "unexpected data after JSON object"}), "Invalid request body")
	}
	return nil
}

// PathUUID parses a chi URL parameter. A malformed id cannot name any row,
// so it is reported as NotFound.
func PathUUID(r *http.Request, name string) (uuid.UUID, error) {
	raw := chi.URLParam(r, name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s %q: %w", name, raw, apperr.ErrNotFound)
	}
	return id, nil
}

// QueryUUID parses an optional uuid query parameter.
func QueryUUID(r *http.Request, name string) (*uuid.UUID, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, apperr.Validation(map[string]string{name: name + " must be a valid id"})
	}
	return &id, nil
}

// QueryString returns a trimmed query parameter.
func QueryString(r *http.Request, name string) string {
	return strings.TrimSpace(r.URL.Query().Get(name))
}

// PageParams reads page and limit. Missing or non-positive values fall back
// to page 1 and defaultLimit; limit is capped at MaxPageLimit and page at
// MaxPage.
func PageParams(r *http.Request, defaultLimit int) persistence.Page {
	page := min(positiveInt(r.URL.Query().Get("page"), 1), MaxPage)
	limit := positiveInt(r.URL.Query().Get("limit"), defaultLimit)
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	return persistence.Page{Page: page, Limit: limit}
}

func positiveInt(raw string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
