package checkout

import (
	"fmt"

	pkgerrors "github.com/kaokai/furniture-backend/pkg/errors"
)

// LineInput is one requested product/quantity pair.
type LineInput struct {
	ProductID int64
	Quantity  int
}

// LineViolation exposes the data returned to callers when a line is rejected.
type LineViolation struct {
	Index     int    `json:"index"`
	ProductID int64  `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Reason    string `json:"reason"`
}

// MergeLines validates requested lines and folds duplicate product ids into a
// single line by summing quantities. Order of first appearance is preserved.
func MergeLines(items []LineInput) ([]LineInput, error) {
	var violations []LineViolation
	merged := make([]LineInput, 0, len(items))
	index := make(map[int64]int, len(items))

	for i, item := range items {
		switch {
		case item.ProductID <= 0:
			violations = append(violations, LineViolation{Index: i, ProductID: item.ProductID, Quantity: item.Quantity, Reason: "product_id must be positive"})
			continue
		case item.Quantity <= 0:
			violations = append(violations, LineViolation{Index: i, ProductID: item.ProductID, Quantity: item.Quantity, Reason: "quantity must be at least 1"})
			continue
		}
		if pos, ok := index[item.ProductID]; ok {
			merged[pos].Quantity += item.Quantity
			continue
		}
		index[item.ProductID] = len(merged)
		merged = append(merged, item)
	}

	if len(violations) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid order line(s): %d", len(violations))).WithDetails(map[string]any{
			"violations": violations,
		})
	}
	return merged, nil
}
