package gemini

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"cryptocalc/models"
)

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type schemaField struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

type responseSchema struct {
	Type       string                 `json:"type"`
	Properties map[string]schemaField `json:"properties"`
	Required   []string               `json:"required"`
}

type generationConfig struct {
	ResponseMIMEType string         `json:"responseMimeType"`
	ResponseSchema   responseSchema `json:"responseSchema"`
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// insightPayload is the JSON object the model is asked to produce.
type insightPayload struct {
	Summary   string `json:"summary"`
	Sentiment string `json:"sentiment"`
}

func newRequest(prompt string) generateRequest {
	return generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationConfig{
			ResponseMIMEType: "application/json",
			ResponseSchema: responseSchema{
				Type: "OBJECT",
				Properties: map[string]schemaField{
					"summary":   {Type: "STRING", Description: "Resumo do mercado em português brasileiro."},
					"sentiment": {Type: "STRING", Description: "Sentimento: bullish, bearish ou neutral."},
				},
				Required: []string{"summary", "sentiment"},
			},
		},
	}
}

// parseResponse joins the first candidate's text parts and decodes them as
// an insight. Unknown sentiments become neutral.
func parseResponse(body []byte) (models.Insight, error) {
	var resp generateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return models.Insight{}, fmt.Errorf("decode response: %w", err)
	}
	if len(resp.Candidates) == 0 {
		return models.Insight{}, errors.New("response has no candidates")
	}

	var text strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		text.WriteString(p.Text)
	}
	raw := strings.TrimSpace(text.String())
	if raw == "" {
		raw = "{}"
	}

	var payload insightPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return models.Insight{}, fmt.Errorf("decode insight: %w", err)
	}

	insight := models.Insight{Summary: strings.TrimSpace(payload.Summary), Sentiment: models.SentimentNeutral}
	if insight.Summary == "" {
		insight.Summary = emptySummary
	}
	if s, ok := models.ParseSentiment(payload.Sentiment); ok {
		insight.Sentiment = s
	}
	return insight, nil
}
