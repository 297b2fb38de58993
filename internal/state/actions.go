package state

import (
	"time"

	"github.com/shopspring/decimal"

	"cryptocalc/internal/currency"
	"cryptocalc/models"
)

// Action is a state transition request. Only the types in this file
// implement it.
type Action interface {
	action()
}

// RefreshStarted opens cycle Seq.
type RefreshStarted struct {
	Seq uint64
}

// PricesLoaded completes cycle Seq with a full asset list.
type PricesLoaded struct {
	Seq    uint64
	Assets []models.Asset
	At     time.Time
}

// PricesFailed completes cycle Seq with a user facing message.
type PricesFailed struct {
	Seq     uint64
	Message string
}

// InsightLoaded attaches the commentary generated during cycle Seq.
type InsightLoaded struct {
	Seq     uint64
	Insight models.Insight
}

// CurrencyChanged switches the active fiat currency.
type CurrencyChanged struct {
	Currency currency.Currency
}

// InputTyped applies raw keyboard input to the amount field.
type InputTyped struct {
	Raw string
}

// AmountSet replaces the amount with a numeric value.
type AmountSet struct {
	Amount decimal.Decimal
}

func (RefreshStarted) action()  {}
func (PricesLoaded) action()    {}
func (PricesFailed) action()    {}
func (InsightLoaded) action()   {}
func (CurrencyChanged) action() {}
func (InputTyped) action()      {}
func (AmountSet) action()       {}
