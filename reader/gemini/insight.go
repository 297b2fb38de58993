// Package gemini asks the Gemini generateContent API for a short market
// commentary. Generation never fails: every error path yields a fixed
// fallback insight.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	appconfig "cryptocalc/config"
	"cryptocalc/internal/currency"
	"cryptocalc/internal/metrics"
	"cryptocalc/logger"
	"cryptocalc/models"
	"cryptocalc/reader"
)

const (
	// FallbackSummary is shown whenever no commentary could be generated.
	FallbackSummary = "O mercado de criptomoedas demonstra volatilidade típica. Recomenda-se cautela nas conversões de alto volume."

	// emptySummary replaces a blank summary in an otherwise valid answer.
	emptySummary = "Mercado instável com variações leves."
)

var errNoAPIKey = errors.New("gemini api key not configured")

// Fallback is the insight used when generation fails.
func Fallback() models.Insight {
	return models.Insight{
		Summary:   FallbackSummary,
		Sentiment: models.SentimentNeutral,
		Fallback:  true,
	}
}

// Client calls generateContent for a single model.
type Client struct {
	enabled    bool
	baseURL    string
	model      string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	log        *logger.Log
}

// NewClient builds a client from the gemini source settings.
func NewClient(cfg *appconfig.Config) *Client {
	g := cfg.Source.Gemini
	timeout := g.Timeout
	if timeout <= 0 {
		timeout = cfg.Reader.Timeout
	}
	rps := cfg.Reader.RateLimit.RequestsPerSecond
	if rps <= 0 {
		rps = 1
	}
	burst := cfg.Reader.RateLimit.BurstSize
	if burst <= 0 {
		burst = 1
	}
	return &Client{
		enabled:    g.Enabled,
		baseURL:    strings.TrimRight(g.URL, "/"),
		model:      g.Model,
		apiKey:     g.APIKey,
		httpClient: reader.NewHTTPClient(cfg.Reader.UserAgent, timeout),
		limiter:    rate.NewLimiter(rate.Limit(rps), burst),
		log:        logger.GetLogger(),
	}
}

// Generate returns a commentary on assets priced in cur.
func (c *Client) Generate(ctx context.Context, assets []models.Asset, cur currency.Currency) models.Insight {
	log := c.log.WithComponent("gemini").WithFields(logger.Fields{"currency": cur.Code, "assets": len(assets)})

	insight, err := c.generate(ctx, assets, cur)
	if err != nil {
		if errors.Is(err, errNoAPIKey) {
			log.Debug("gemini disabled, using fallback insight")
		} else {
			log.WithError(err).Warn("insight generation failed, using fallback")
		}
		insight = Fallback()
	}

	source := "ai"
	if insight.Fallback {
		source = "fallback"
	}
	metrics.ObserveInsight(source)
	logger.IncrementInsight(insight.Fallback)
	return insight
}

func (c *Client) generate(ctx context.Context, assets []models.Asset, cur currency.Currency) (models.Insight, error) {
	if !c.enabled || c.apiKey == "" {
		return models.Insight{}, errNoAPIKey
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return models.Insight{}, err
	}

	payload, err := json.Marshal(newRequest(BuildPrompt(assets, cur)))
	if err != nil {
		return models.Insight{}, err
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return models.Insight{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return models.Insight{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.Insight{}, err
	}
	logger.RecordSourceRequest("gemini", len(body))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return models.Insight{}, fmt.Errorf("gemini returned status %d", resp.StatusCode)
	}
	return parseResponse(body)
}

// BuildPrompt renders the Portuguese analysis prompt. Prices use the
// currency's own digit conventions; changes always use a dot.
func BuildPrompt(assets []models.Asset, cur currency.Currency) string {
	entries := make([]string, 0, len(assets))
	for _, a := range assets {
		price := cur.Numeral.FormatDecimal(decimal.NewFromFloat(a.CurrentPrice), 3)
		change := strconv.FormatFloat(a.PriceChange24h, 'f', 2, 64)
		entries = append(entries, fmt.Sprintf("%s: %s %s (%s%% em 24h)", a.Name, cur.Symbol, price, change))
	}
	return fmt.Sprintf(
		"Analise os seguintes dados de mercado de criptomoedas (em %s) e forneça um breve resumo (máximo 3 frases) e o sentimento geral (bullish, bearish ou neutral). Dados: %s.",
		cur.Code, strings.Join(entries, ", "),
	)
}
