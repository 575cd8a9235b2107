package validators

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/kaokai/furniture-backend/pkg/errors"
)

// OptionalQueryID reads a positive integer filter. An absent key yields nil.
func OptionalQueryID(r *http.Request, key string) (*int64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "query parameter must be a positive integer").
			WithDetails(map[string]any{"field": key})
	}
	return &id, nil
}

// OptionalQueryAmount reads a non-negative money bound such as minPrice.
func OptionalQueryAmount(r *http.Request, key string) (*decimal.Decimal, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return nil, nil
	}
	value, err := decimal.NewFromString(raw)
	if err != nil || value.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "query parameter must be a non-negative number").
			WithDetails(map[string]any{"field": key})
	}
	return &value, nil
}
