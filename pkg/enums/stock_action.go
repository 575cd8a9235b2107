package enums

import "fmt"

// StockAction is an admin stock adjustment verb.
type StockAction string

const (
	StockActionIncrease StockAction = "increase"
	StockActionDecrease StockAction = "decrease"
	StockActionSet      StockAction = "set"
)

func (a StockAction) IsValid() bool {
	switch a {
	case StockActionIncrease, StockActionDecrease, StockActionSet:
		return true
	}
	return false
}

func ParseStockAction(value string) (StockAction, error) {
	a := StockAction(value)
	if !a.IsValid() {
		return "", fmt.Errorf("invalid stock action %q", value)
	}
	return a, nil
}
