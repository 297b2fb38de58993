package models

import "strings"

// Sentiment is the market mood tag attached to an Insight.
type Sentiment string

const (
	SentimentBullish Sentiment = "bullish"
	SentimentBearish Sentiment = "bearish"
	SentimentNeutral Sentiment = "neutral"
)

// ParseSentiment lower-cases s and reports whether it is a known sentiment.
func ParseSentiment(s string) (Sentiment, bool) {
	switch v := Sentiment(strings.ToLower(strings.TrimSpace(s))); v {
	case SentimentBullish, SentimentBearish, SentimentNeutral:
		return v, true
	default:
		return "", false
	}
}

// Insight is a short generated market commentary.
type Insight struct {
	Summary   string    `json:"summary"`
	Sentiment Sentiment `json:"sentiment"`
	Fallback  bool      `json:"fallback"`
}
