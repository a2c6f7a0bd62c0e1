package insights

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/livefire2015/ez-solar-ledger/src/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DefaultGeminiEndpoint is the Generative Language API base URL
const DefaultGeminiEndpoint = "https://generativelanguage.googleapis.com/v1beta"

// GeminiConfig configures the generateContent client
type GeminiConfig struct {
	Endpoint      string
	APIKey        string
	Model         string
	Timeout       time.Duration
	RatePerSecond float64 // Outbound request budget; 0 disables throttling
}

// GeminiProvider asks the Gemini generateContent API for insight text
type GeminiProvider struct {
	cfg     GeminiConfig
	client  *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewGeminiProvider creates a provider. Every call is bounded by cfg.Timeout.
func NewGeminiProvider(cfg GeminiConfig, logger *zap.Logger) *GeminiProvider {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultGeminiEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	var limiter *rate.Limiter
	if cfg.RatePerSecond > 0 {
		burst := int(cfg.RatePerSecond * 2)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst)
	}

	return &GeminiProvider{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: limiter,
		logger:  logger,
	}
}

// EnergyTips asks for three short energy-saving tips
func (p *GeminiProvider) EnergyTips(ctx context.Context, units decimal.Decimal, period string) string {
	prompt := fmt.Sprintf("Provide 3 short, helpful energy-saving tips for a tenant who consumed %s units of solar energy in %s. Keep it concise and encouraging.",
		units.String(), period)
	return p.generateOr(ctx, prompt, FallbackEnergyTips)
}

// BillingSummary asks for a revenue trend sentence and an action item
func (p *GeminiProvider) BillingSummary(ctx context.Context, bills []models.Bill) string {
	payload, err := json.Marshal(bills)
	if err != nil {
		p.logger.Warn("Failed to encode bills for summary", zap.Error(err))
		return FallbackBillingSummary
	}
	prompt := fmt.Sprintf("Analyze these billing records: %s. Provide a one-sentence summary of revenue trends and one action item for the property owner.", payload)
	return p.generateOr(ctx, prompt, FallbackBillingSummary)
}

func (p *GeminiProvider) generateOr(ctx context.Context, prompt, fallback string) string {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	text, err := p.generate(ctx, prompt)
	if err != nil {
		p.logger.Warn("Insight generation failed, using fallback", zap.Error(err))
		return fallback
	}
	if strings.TrimSpace(text) == "" {
		return fallback
	}
	return text
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

func (p *GeminiProvider) generate(ctx context.Context, prompt string) (string, error) {
	if p.cfg.APIKey == "" {
		return "", fmt.Errorf("no api key configured")
	}
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limited: %w", err)
		}
	}

	body, err := json.Marshal(generateRequest{Contents: []content{{Parts: []part{{Text: prompt}}}}})
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", strings.TrimRight(p.cfg.Endpoint, "/"), p.cfg.Model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", p.cfg.APIKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("generateContent returned %d: %s", resp.StatusCode, snippet)
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding generateContent response: %w", err)
	}

	if len(out.Candidates) == 0 {
		return "", nil
	}
	var sb strings.Builder
	for _, pt := range out.Candidates[0].Content.Parts {
		sb.WriteString(pt.Text)
	}
	return sb.String(), nil
}
