package shipping

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var ErrInvalidPincode = errors.New("invalid pincode")

// Rule maps an inclusive pincode range to a shipping charge. Ranges may
// overlap; resolution picks the highest priority, ties broken by highest id.
type Rule struct {
	ID            int64            `json:"id" db:"id"`
	Name          string           `json:"name" db:"name"`
	PincodeFrom   int              `json:"pincode_from" db:"pincode_from"`
	PincodeTo     int              `json:"pincode_to" db:"pincode_to"`
	Charge        decimal.Decimal  `json:"charge" db:"charge"`
	MinOrderValue *decimal.Decimal `json:"min_order_value,omitempty" db:"min_order_value"`
	Priority      int              `json:"priority" db:"priority"`
	IsActive      bool             `json:"is_active" db:"is_active"`
	CreatedAt     time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at" db:"updated_at"`
}

// AppliedRule is the snapshot of the rule a resolution picked, surfaced to
// clients alongside the computed charge.
type AppliedRule struct {
	ID            int64            `json:"id"`
	Name          string           `json:"name"`
	PincodeFrom   int              `json:"pincode_from"`
	PincodeTo     int              `json:"pincode_to"`
	Charge        decimal.Decimal  `json:"charge"`
	MinOrderValue *decimal.Decimal `json:"min_order_value,omitempty"`
	Priority      int              `json:"priority"`
}

func (r *Rule) snapshot() *AppliedRule {
	return &AppliedRule{
		ID:            r.ID,
		Name:          r.Name,
		PincodeFrom:   r.PincodeFrom,
		PincodeTo:     r.PincodeTo,
		Charge:        r.Charge,
		MinOrderValue: r.MinOrderValue,
		Priority:      r.Priority,
	}
}

// NormalizePincode strips everything but digits and enforces the 5-6 digit
// bound used for Indian pincodes.
func NormalizePincode(raw string) (int, error) {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if digits == "" {
		return 0, ErrInvalidPincode
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, ErrInvalidPincode
	}
	if n < 10000 || n > 999999 {
		return 0, ErrInvalidPincode
	}
	return n, nil
}
