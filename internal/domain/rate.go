package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Rate is a cached exchange rate of one currency relative to the current
// base currency, as of RateDate. The store keeps (Code, RateDate) unique.
type Rate struct {
	ID       int64
	Code     string
	Value    decimal.Decimal
	RateDate time.Time
}

// RateSnapshot is a full set of rates for one base currency as returned by
// the external provider in a single call.
type RateSnapshot struct {
	LastUpdatedAt time.Time
	Rates         map[string]decimal.Decimal
}
