package gemini

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	appconfig "cryptocalc/config"
	"cryptocalc/internal/currency"
	"cryptocalc/models"
)

func minimalConfig(base, key string) *appconfig.Config {
	return &appconfig.Config{
		Reader: appconfig.ReaderConfig{
			Timeout:   time.Second,
			UserAgent: "cryptocalc-test",
			RateLimit: appconfig.RateLimitConfig{RequestsPerSecond: 100, BurstSize: 10},
		},
		Source: appconfig.SourceConfig{
			Gemini: appconfig.GeminiConfig{Enabled: true, URL: base, Model: "test-model", APIKey: key, Timeout: time.Second},
		},
	}
}

var sampleAssets = []models.Asset{
	{ID: "bitcoin", Symbol: "btc", Name: "Bitcoin", CurrentPrice: 350000.5, PriceChange24h: -1.256},
	{ID: "tether", Symbol: "usdt", Name: "Tether", CurrentPrice: 5.1234, PriceChange24h: 0},
}

// candidate wraps text in a generateContent response body.
func candidate(text string) string {
	b, _ := json.Marshal(map[string]any{
		"candidates": []any{
			map[string]any{"content": map[string]any{"parts": []any{map[string]any{"text": text}}}},
		},
	})
	return string(b)
}

func TestBuildPrompt(t *testing.T) {
	brl, _ := currency.Lookup("BRL")
	got := BuildPrompt(sampleAssets, brl)
	want := "Analise os seguintes dados de mercado de criptomoedas (em BRL) e forneça um breve resumo (máximo 3 frases) e o sentimento geral (bullish, bearish ou neutral). Dados: Bitcoin: R$ 350.000,5 (-1.26% em 24h), Tether: R$ 5,123 (0.00% em 24h)."
	if got != want {
		t.Fatalf("prompt mismatch\n got: %s\nwant: %s", got, want)
	}
}

func TestGenerateParsesModelAnswer(t *testing.T) {
	var gotPath, gotKey string
	var gotReq generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &gotReq)
		w.Write([]byte(candidate(`{"summary":"Bitcoin recua levemente.","sentiment":"Bearish"}`)))
	}))
	defer srv.Close()

	usd, _ := currency.Lookup("USD")
	got := NewClient(minimalConfig(srv.URL, "secret")).Generate(context.Background(), sampleAssets, usd)

	if got.Summary != "Bitcoin recua levemente." || got.Sentiment != models.SentimentBearish || got.Fallback {
		t.Fatalf("unexpected insight: %+v", got)
	}
	if gotPath != "/v1beta/models/test-model:generateContent" || gotKey != "secret" {
		t.Fatalf("unexpected request: path=%s key=%s", gotPath, gotKey)
	}
	if gotReq.GenerationConfig.ResponseMIMEType != "application/json" {
		t.Fatalf("response mime type not requested: %+v", gotReq.GenerationConfig)
	}
	if len(gotReq.GenerationConfig.ResponseSchema.Required) != 2 {
		t.Fatalf("schema should require summary and sentiment: %+v", gotReq.GenerationConfig.ResponseSchema)
	}
	if len(gotReq.Contents) != 1 || !strings.Contains(gotReq.Contents[0].Parts[0].Text, "(em USD)") {
		t.Fatalf("prompt not sent: %+v", gotReq.Contents)
	}
}

func TestGenerateFallbacks(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, `{"error":{"message":"boom"}}`},
		{"not json", http.StatusOK, `<html>`},
		{"no candidates", http.StatusOK, `{"candidates":[]}`},
		{"candidate not json", http.StatusOK, candidate("Mercado em alta")},
	}
	brl, _ := currency.Lookup("BRL")
	for _, c := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(c.status)
			w.Write([]byte(c.body))
		}))
		got := NewClient(minimalConfig(srv.URL, "secret")).Generate(context.Background(), sampleAssets, brl)
		srv.Close()

		if got != Fallback() {
			t.Errorf("%s: expected fallback, got %+v", c.name, got)
		}
	}
}

func TestGenerateWithoutKeySkipsNetwork(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	brl, _ := currency.Lookup("BRL")
	got := NewClient(minimalConfig(srv.URL, "")).Generate(context.Background(), sampleAssets, brl)
	if got != Fallback() {
		t.Fatalf("expected fallback, got %+v", got)
	}
	if called {
		t.Fatal("request sent without an api key")
	}
	if got.Summary != "O mercado de criptomoedas demonstra volatilidade típica. Recomenda-se cautela nas conversões de alto volume." || got.Sentiment != models.SentimentNeutral {
		t.Fatalf("unexpected fallback content: %+v", got)
	}
}

func TestParseResponseNormalizesFields(t *testing.T) {
	cases := []struct {
		text      string
		summary   string
		sentiment models.Sentiment
	}{
		{`{"summary":"ok","sentiment":" BULLISH "}`, "ok", models.SentimentBullish},
		{`{"summary":"ok","sentiment":"euphoric"}`, "ok", models.SentimentNeutral},
		{`{"summary":"ok"}`, "ok", models.SentimentNeutral},
		{`{"sentiment":"bearish"}`, "Mercado instável com variações leves.", models.SentimentBearish},
		{``, "Mercado instável com variações leves.", models.SentimentNeutral},
	}
	for _, c := range cases {
		got, err := parseResponse([]byte(candidate(c.text)))
		if err != nil {
			t.Fatalf("%q: %v", c.text, err)
		}
		if got.Summary != c.summary || got.Sentiment != c.sentiment || got.Fallback {
			t.Errorf("%q: got %+v", c.text, got)
		}
	}
}

func TestParseResponseJoinsParts(t *testing.T) {
	body := `{"candidates":[{"content":{"parts":[{"text":"{\"summary\":\"a"},{"text":"b\",\"sentiment\":\"neutral\"}"}]}}]}`
	got, err := parseResponse([]byte(body))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got.Summary != "ab" {
		t.Fatalf("parts not joined: %+v", got)
	}
}
