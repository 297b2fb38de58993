package state

import "cryptocalc/models"

// Reduce returns the state after applying a. It never mutates s.
//
// Cycle completions carry the sequence number they were started with and
// are dropped unless they belong to the latest cycle, so a slow superseded
// fetch can never overwrite newer data.
func Reduce(s AppState, a Action) AppState {
	switch a := a.(type) {
	case RefreshStarted:
		if a.Seq <= s.Cycle.Latest {
			return s
		}
		s.Cycle.Latest = a.Seq
		s.Status = StatusRefreshing
		s.Market = withStatus(s.Market, true, "")

	case PricesLoaded:
		if a.Seq != s.Cycle.Latest {
			return s
		}
		s.Market = models.NewSnapshot(a.Assets, a.At)
		s.Status = StatusIdle
		s.Cycle.Committed = a.Seq

	case PricesFailed:
		if a.Seq != s.Cycle.Latest {
			return s
		}
		s.Market = withStatus(s.Market, false, a.Message)
		s.Status = StatusError

	case InsightLoaded:
		if a.Seq != s.Cycle.Latest {
			return s
		}
		ins := a.Insight
		s.Insight = &ins

	case CurrencyChanged:
		s.Currency = a.Currency
		s.Input = s.Input.Relocalize(a.Currency.Numeral)

	case InputTyped:
		if f, err := s.Input.Type(a.Raw); err == nil {
			s.Input = f
		}

	case AmountSet:
		if f, err := s.Input.WithAmount(a.Amount); err == nil {
			s.Input = f
		}
	}
	return s
}

// IsCurrent reports whether a cycle result would be applied to s.
func IsCurrent(s AppState, seq uint64) bool {
	return seq == s.Cycle.Latest
}

// withStatus copies the snapshot header. The asset map is shared since it
// is never written after construction.
func withStatus(m models.Snapshot, loading bool, msg string) models.Snapshot {
	m.Loading = loading
	m.Error = msg
	return m
}
