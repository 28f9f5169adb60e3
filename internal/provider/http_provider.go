package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/clever-edge/internal/metrics"
	"github.com/yourusername/clever-edge/internal/models"
)

const (
	endpointQuotes  = "quotes"
	endpointFactors = "factors"
	endpointReturns = "returns"
	endpointRecords = "records"
)

// HTTPProvider implements the read-side providers over a JSON HTTP API
type HTTPProvider struct {
	client  *RateLimitedHTTPClient
	baseURL string
	apiKey  string
	logger  *logrus.Entry
}

var (
	_ MarketDataProvider = (*HTTPProvider)(nil)
	_ ContextProvider    = (*HTTPProvider)(nil)
	_ HistoryProvider    = (*HTTPProvider)(nil)
	_ OutcomeProvider    = (*HTTPProvider)(nil)
)

// NewHTTPProvider creates a provider rooted at baseURL
func NewHTTPProvider(client *RateLimitedHTTPClient, baseURL, apiKey string, logger *logrus.Logger) *HTTPProvider {
	if logger == nil {
		logger = logrus.New()
	}
	return &HTTPProvider{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		logger:  logger.WithField("component", "http_provider"),
	}
}

type quoteResponse struct {
	SelectionID string    `json:"selection_id"`
	DecimalOdds float64   `json:"decimal_odds"`
	Timestamp   time.Time `json:"timestamp"`
}

type factorsResponse struct {
	SelectionID string             `json:"selection_id"`
	Factors     map[string]float64 `json:"factors"`
}

type returnsResponse struct {
	SelectionID string    `json:"selection_id"`
	Returns     []float64 `json:"returns"`
}

// GetQuotes fetches GET /markets/{id}/quotes
func (p *HTTPProvider) GetQuotes(ctx context.Context, marketID string) ([]models.MarketQuote, error) {
	var raw []quoteResponse
	if err := p.getJSON(ctx, endpointQuotes, "/markets/"+url.PathEscape(marketID)+"/quotes", nil, &raw); err != nil {
		return nil, err
	}

	quotes := make([]models.MarketQuote, 0, len(raw))
	for _, q := range raw {
		quotes = append(quotes, models.MarketQuote{
			MarketID:    marketID,
			SelectionID: q.SelectionID,
			DecimalOdds: q.DecimalOdds,
			Timestamp:   q.Timestamp,
		})
	}
	return quotes, nil
}

// GetFactors fetches GET /selections/{id}/factors?as_of=
func (p *HTTPProvider) GetFactors(ctx context.Context, selectionID string, asOf time.Time) (models.FactorSet, error) {
	query := url.Values{}
	if !asOf.IsZero() {
		query.Set("as_of", asOf.UTC().Format(time.RFC3339))
	}

	var raw factorsResponse
	if err := p.getJSON(ctx, endpointFactors, "/selections/"+url.PathEscape(selectionID)+"/factors", query, &raw); err != nil {
		return nil, err
	}
	factors := models.FactorSet(raw.Factors)
	if err := factors.Validate(); err != nil {
		return nil, newProviderError(endpointFactors, ErrCodeInvalidData, "factor out of range", err)
	}
	return factors, nil
}

// GetReturnSeries fetches GET /selections/{id}/returns
func (p *HTTPProvider) GetReturnSeries(ctx context.Context, selectionID string) (models.ReturnSeries, error) {
	var raw returnsResponse
	if err := p.getJSON(ctx, endpointReturns, "/selections/"+url.PathEscape(selectionID)+"/returns", nil, &raw); err != nil {
		return models.ReturnSeries{}, err
	}
	return models.ReturnSeries{SelectionID: selectionID, Returns: raw.Returns}, nil
}

// GetOutcomeRecords fetches GET /corpora/{corpus}/records
func (p *HTTPProvider) GetOutcomeRecords(ctx context.Context, corpus string) ([]models.HistoricalRecord, error) {
	var records []models.HistoricalRecord
	if err := p.getJSON(ctx, endpointRecords, "/corpora/"+url.PathEscape(corpus)+"/records", nil, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (p *HTTPProvider) getJSON(ctx context.Context, endpoint, path string, query url.Values, out interface{}) error {
	target := p.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return newProviderError(endpoint, ErrCodeNetworkError, "failed to create request", err)
	}
	req.Header.Set("Accept", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(ctx, req)
	if err != nil {
		metrics.RecordProviderRequest(endpoint, "error")
		if errors.Is(err, ErrCircuitOpen) {
			return newProviderError(endpoint, ErrCodeCircuitOpen, "request rejected", err)
		}
		return newProviderError(endpoint, ErrCodeNetworkError, "request failed", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		metrics.RecordProviderRequest(endpoint, "not_found")
		return newProviderError(endpoint, ErrCodeNotFound, path, ErrNotFound)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		metrics.RecordProviderRequest(endpoint, "unauthorized")
		return newProviderError(endpoint, ErrCodeAuthenticationFailed, "invalid API key", ErrUnauthorized)
	case resp.StatusCode == http.StatusTooManyRequests:
		metrics.RecordProviderRequest(endpoint, "rate_limited")
		return newProviderError(endpoint, ErrCodeRateLimitExceeded, "rate limit exceeded", ErrRateLimited)
	case resp.StatusCode != http.StatusOK:
		metrics.RecordProviderRequest(endpoint, "error")
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return newProviderError(endpoint, ErrCodeServerError, fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, string(body)), nil)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		metrics.RecordProviderRequest(endpoint, "invalid")
		return newProviderError(endpoint, ErrCodeInvalidData, "failed to parse response", fmt.Errorf("%w: %v", ErrInvalidPayload, err))
	}
	metrics.RecordProviderRequest(endpoint, "ok")
	p.logger.WithFields(logrus.Fields{"endpoint": endpoint, "path": path}).Debug("Provider request completed")
	return nil
}
