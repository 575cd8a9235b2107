package pagination

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// DefaultLimit is the standard page size when a limit is not provided.
	DefaultLimit = 20
	// MaxLimit caps how many rows any list query can request.
	MaxLimit = 100
)

// Params holds offset pagination inputs from controllers or services.
type Params struct {
	Page  int
	Limit int
}

// Result is a single page of rows plus the total row count.
type Result[T any] struct {
	Items []T   `json:"items"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
}

// NormalizeLimit enforces the configured default and maximum limits.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// Normalize returns params with page >= 1 and a bounded limit.
func (p Params) Normalize() Params {
	page := p.Page
	if page < 1 {
		page = 1
	}
	return Params{Page: page, Limit: NormalizeLimit(p.Limit)}
}

// Offset is the row offset for the normalized page.
func (p Params) Offset() int {
	n := p.Normalize()
	return (n.Page - 1) * n.Limit
}

// Parse reads page/limit query values. Empty values fall back to defaults.
func Parse(rawPage, rawLimit string) (Params, error) {
	var params Params
	if v := strings.TrimSpace(rawPage); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil || page < 1 {
			return Params{}, fmt.Errorf("page must be a positive integer")
		}
		params.Page = page
	}
	if v := strings.TrimSpace(rawLimit); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 {
			return Params{}, fmt.Errorf("limit must be a positive integer")
		}
		params.Limit = limit
	}
	return params.Normalize(), nil
}
