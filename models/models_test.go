package models

import (
	"testing"
	"time"
)

func TestNewSnapshotKeepsUpstreamOrder(t *testing.T) {
	at := time.Unix(1700000000, 0)
	snap := NewSnapshot([]Asset{
		{ID: "bitcoin", CurrentPrice: 2},
		{ID: "ethereum", CurrentPrice: 1},
		{ID: "bitcoin", CurrentPrice: 3},
	}, at)

	if len(snap.Assets) != 2 {
		t.Fatalf("expected 2 assets, got %d", len(snap.Assets))
	}
	if len(snap.Order) != 2 || snap.Order[0] != "bitcoin" || snap.Order[1] != "ethereum" {
		t.Fatalf("unexpected order: %v", snap.Order)
	}
	if snap.Assets["bitcoin"].CurrentPrice != 3 {
		t.Fatalf("duplicate id should keep last record, got %v", snap.Assets["bitcoin"])
	}
	if snap.LastUpdated == nil || !snap.LastUpdated.Equal(at) {
		t.Fatalf("unexpected last updated: %v", snap.LastUpdated)
	}

	ordered := snap.Ordered()
	if len(ordered) != 2 || ordered[0].ID != "bitcoin" || ordered[1].ID != "ethereum" {
		t.Fatalf("unexpected ordered assets: %+v", ordered)
	}
}

func TestParseSentiment(t *testing.T) {
	cases := []struct {
		in   string
		want Sentiment
		ok   bool
	}{
		{"bullish", SentimentBullish, true},
		{" BEARISH ", SentimentBearish, true},
		{"Neutral", SentimentNeutral, true},
		{"optimistic", "", false},
		{"", "", false},
	}
	for _, c := range cases {
		got, ok := ParseSentiment(c.in)
		if got != c.want || ok != c.ok {
			t.Errorf("ParseSentiment(%q) = %q, %v; want %q, %v", c.in, got, ok, c.want, c.ok)
		}
	}
}
