// Package state holds the calculator session and the only code allowed to
// change it.
package state

import (
	"cryptocalc/internal/currency"
	"cryptocalc/internal/input"
	"cryptocalc/models"
)

// Status is the refresh lifecycle position.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusRefreshing Status = "refreshing"
	StatusError      Status = "error"
)

// Cycle tracks refresh sequence numbers. Latest is the newest cycle started;
// Committed is the newest cycle whose prices were applied.
type Cycle struct {
	Latest    uint64
	Committed uint64
}

// AppState is one immutable view of the session.
type AppState struct {
	Currency currency.Currency
	Input    input.Field
	Market   models.Snapshot
	Insight  *models.Insight
	Status   Status
	Cycle    Cycle
}

// Initial is the state before the first refresh completes.
func Initial() AppState {
	return AppState{
		Currency: currency.Default(),
		Input:    input.Default(),
		Market: models.Snapshot{
			Assets:  map[string]models.Asset{},
			Loading: true,
		},
		Status: StatusIdle,
	}
}
