package utils

import (
	"fmt"
	"strings"
	"time"

	"github.com/ledgerbank/balance-service/shared/models"
	"github.com/shopspring/decimal"
)

// MaxIDLength bounds user ids and transaction uids (the storage columns are
// VARCHAR(36)).
const MaxIDLength = 36

// naiveLayouts are accepted for timestamps that carry no zone; such values are
// read as UTC.
var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseTimestamp parses an ISO 8601 timestamp. Values with an offset keep
// their instant; values without one are taken as UTC. The result is in UTC.
func ParseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t.UTC(), nil
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", value)
}

// ValidateAmount checks that an amount is strictly positive and carries no
// more than two fractional digits.
func ValidateAmount(amount decimal.Decimal) bool {
	return amount.IsPositive() && amount.Equal(amount.Truncate(models.MoneyScale))
}

// ValidateID checks the shape of caller-supplied user ids and transaction uids.
func ValidateID(id string) bool {
	return id != "" && len(id) <= MaxIDLength
}
