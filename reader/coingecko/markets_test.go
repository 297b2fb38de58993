package coingecko

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	appconfig "cryptocalc/config"
	"cryptocalc/internal/currency"
)

// minimalConfig returns the reader settings needed to talk to base.
func minimalConfig(base string) *appconfig.Config {
	return &appconfig.Config{
		Reader: appconfig.ReaderConfig{
			Timeout:   time.Second,
			UserAgent: "cryptocalc-test",
			RateLimit: appconfig.RateLimitConfig{RequestsPerSecond: 100, BurstSize: 10},
		},
		Source: appconfig.SourceConfig{
			Coingecko: appconfig.CoingeckoConfig{URL: base, APIKey: "demo"},
		},
	}
}

const marketsBody = `[
  {"id":"bitcoin","symbol":"btc","name":"Bitcoin","image":"https://img/btc.png","current_price":350000.5,"price_change_percentage_24h":-1.25},
  {"id":"ethereum","symbol":"eth","name":"Ethereum","image":"https://img/eth.png","current_price":18000,"price_change_percentage_24h":null},
  {"id":"binancecoin","symbol":"bnb","name":"BNB","image":"","current_price":0,"price_change_percentage_24h":2},
  {"id":"tether","symbol":"usdt","name":"Tether","image":"","current_price":null,"price_change_percentage_24h":0.01},
  {"id":"dogecoin","symbol":"doge","name":"Dogecoin","image":"","current_price":0.8,"price_change_percentage_24h":3.5}
]`

func TestFetchMapsRecords(t *testing.T) {
	var gotQuery url.Values
	var gotKey, gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/coins/markets" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		gotQuery = r.URL.Query()
		gotKey = r.Header.Get("x-cg-demo-api-key")
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(marketsBody))
	}))
	defer srv.Close()

	assets, err := NewClient(minimalConfig(srv.URL)).Fetch(context.Background(), currency.BRL)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}

	wantQuery := map[string]string{
		"vs_currency":             "brl",
		"ids":                     "bitcoin,ethereum,binancecoin,tether",
		"order":                   "market_cap_desc",
		"per_page":                "10",
		"page":                    "1",
		"sparkline":               "false",
		"price_change_percentage": "24h",
	}
	for k, v := range wantQuery {
		if got := gotQuery.Get(k); got != v {
			t.Errorf("query %s = %q, want %q", k, got, v)
		}
	}
	if gotKey != "demo" || gotUA != "cryptocalc-test" {
		t.Errorf("unexpected headers: key=%q ua=%q", gotKey, gotUA)
	}

	if len(assets) != 3 {
		t.Fatalf("expected 3 assets after exclusion, got %d: %+v", len(assets), assets)
	}
	btc := assets[0]
	if btc.ID != "bitcoin" || btc.CurrentPrice != 350000.5 || btc.PriceChange24h != -1.25 {
		t.Fatalf("unexpected bitcoin: %+v", btc)
	}
	if btc.SubunitName != "Satoshi" || btc.SubunitFactor != 100000000 || btc.Image != "https://img/btc.png" {
		t.Fatalf("unexpected bitcoin subunit: %+v", btc)
	}
	eth := assets[1]
	if eth.PriceChange24h != 0 || eth.SubunitName != "Wei" || eth.SubunitFactor != 1_000_000_000_000_000_000 {
		t.Fatalf("unexpected ethereum: %+v", eth)
	}
	doge := assets[2]
	if doge.SubunitName != "Units" || doge.SubunitFactor != 1 {
		t.Fatalf("unknown asset should default to whole units: %+v", doge)
	}
}

func TestFetchStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewClient(minimalConfig(srv.URL)).Fetch(context.Background(), currency.USD)
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusTooManyRequests {
		t.Fatalf("expected StatusError 429, got %v", err)
	}
	if !errors.Is(err, ErrNetwork) {
		t.Fatalf("status error should wrap ErrNetwork")
	}
}

func TestFetchMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"not":"a list"}`))
	}))
	defer srv.Close()

	assets, err := NewClient(minimalConfig(srv.URL)).Fetch(context.Background(), currency.EUR)
	if !errors.Is(err, ErrNetwork) || assets != nil {
		t.Fatalf("expected ErrNetwork and no data, got %v %v", assets, err)
	}
}

func TestFetchUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := srv.URL
	srv.Close()

	if _, err := NewClient(minimalConfig(addr)).Fetch(context.Background(), currency.BRL); !errors.Is(err, ErrNetwork) {
		t.Fatalf("expected ErrNetwork, got %v", err)
	}
}

func TestFetchCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewClient(minimalConfig(srv.URL)).Fetch(ctx, currency.BRL); !errors.Is(err, ErrNetwork) {
		t.Fatalf("expected ErrNetwork on cancelled context, got %v", err)
	}
}

func TestSubunit(t *testing.T) {
	cases := map[string]struct {
		name   string
		factor int64
	}{
		"bitcoin":     {"Satoshi", 100000000},
		"binancecoin": {"Jager", 100000000},
		"tether":      {"Cent", 100},
		"solana":      {"Units", 1},
	}
	for id, want := range cases {
		name, factor := Subunit(id)
		if name != want.name || factor != want.factor {
			t.Errorf("Subunit(%s) = %s/%d", id, name, factor)
		}
	}
}
