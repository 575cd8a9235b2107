package types

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DeliveryAddress is the structured Thai address sent as delivery details.
type DeliveryAddress struct {
	Name       string `json:"name,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Address    string `json:"address"`
	District   string `json:"district,omitempty"`
	Amphoe     string `json:"amphoe,omitempty"`
	Province   string `json:"province,omitempty"`
	PostalCode string `json:"postalCode,omitempty"`
}

// ParseDeliveryAddress decodes the raw delivery details JSON.
func ParseDeliveryAddress(raw string) (DeliveryAddress, error) {
	var addr DeliveryAddress
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return addr, fmt.Errorf("delivery address: empty details")
	}
	if err := json.Unmarshal([]byte(trimmed), &addr); err != nil {
		return addr, fmt.Errorf("delivery address: %w", err)
	}
	return addr, nil
}

// Format renders the address on one line with the tambon/amphoe/changwat labels.
func (a DeliveryAddress) Format() string {
	parts := make([]string, 0, 5)
	if v := strings.TrimSpace(a.Address); v != "" {
		parts = append(parts, v)
	}
	if v := strings.TrimSpace(a.District); v != "" {
		parts = append(parts, "ตำบล"+v)
	}
	if v := strings.TrimSpace(a.Amphoe); v != "" {
		parts = append(parts, "อำเภอ"+v)
	}
	if v := strings.TrimSpace(a.Province); v != "" {
		parts = append(parts, "จังหวัด"+v)
	}
	if v := strings.TrimSpace(a.PostalCode); v != "" {
		parts = append(parts, v)
	}
	return strings.Join(parts, " ")
}

// IsEmpty reports whether no address line was provided.
func (a DeliveryAddress) IsEmpty() bool {
	return a.Format() == ""
}
