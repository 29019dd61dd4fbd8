// internal/models/account.go
package models

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// AccountRecord is one row of the balance table. Records are immutable once loaded.
type AccountRecord struct {
	Identifier string          `json:"identifier"`
	HolderName string          `json:"holder_name"`
	Balance    decimal.Decimal `json:"balance"`
}

// ToData renders the record as the envelope data payload. The balance is a
// json.Number holding the stored decimal digits.
func (a AccountRecord) ToData() map[string]interface{} {
	return map[string]interface{}{
		"identifier":  a.Identifier,
		"holder_name": a.HolderName,
		"balance":     json.Number(a.Balance.String()),
	}
}
