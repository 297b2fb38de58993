package models

import (
	"time"
)

// Asset is a tracked cryptocurrency priced in the active fiat currency.
type Asset struct {
	ID             string  `json:"id"`
	Symbol         string  `json:"symbol"`
	Name           string  `json:"name"`
	CurrentPrice   float64 `json:"current_price"`
	PriceChange24h float64 `json:"price_change_percentage_24h"`
	Image          string  `json:"image"`
	SubunitName    string  `json:"min_unit_name"`
	SubunitFactor  int64   `json:"min_unit_factor"` // subunits per whole asset
}

// Snapshot is the last complete set of asset prices plus the sync status
// that goes with it. Assets is replaced wholesale and never mutated in place.
type Snapshot struct {
	Assets      map[string]Asset `json:"prices"`
	Order       []string         `json:"order"` // upstream market cap order
	Loading     bool             `json:"loading"`
	Error       string           `json:"error,omitempty"`
	LastUpdated *time.Time       `json:"last_updated"`
}

// NewSnapshot indexes assets by ID, keeping the order they arrived in.
// A repeated ID keeps its first position and the last record.
func NewSnapshot(assets []Asset, at time.Time) Snapshot {
	byID := make(map[string]Asset, len(assets))
	order := make([]string, 0, len(assets))
	for _, a := range assets {
		if _, seen := byID[a.ID]; !seen {
			order = append(order, a.ID)
		}
		byID[a.ID] = a
	}
	ts := at
	return Snapshot{
		Assets:      byID,
		Order:       order,
		LastUpdated: &ts,
	}
}

// Ordered returns the snapshot assets in upstream order.
func (s Snapshot) Ordered() []Asset {
	out := make([]Asset, 0, len(s.Order))
	for _, id := range s.Order {
		if a, ok := s.Assets[id]; ok {
			out = append(out, a)
		}
	}
	return out
}
