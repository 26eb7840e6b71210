// Package forecast provides the HTTP client for the external quantile
// forecasting service. The model itself (a neural quantile regressor) is a
// black box; Stratlab only consumes its (quantile, prediction) table.
package forecast

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// QuantilePrediction is one row of the forecast table, e.g. the predicted
// next-day return at the 0.05 quantile.
type QuantilePrediction struct {
	Quantile   float64 `json:"quantile"`
	Prediction float64 `json:"prediction"`
}

// Client for the quantile forecasting service
type Client struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

// NewClient creates a new forecast service client
func NewClient(baseURL string, log zerolog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
		log:     log.With().Str("client", "forecast").Logger(),
	}
}

// predictRequest is the wire format the forecasting service expects:
// the instrument plus its recent daily return series, oldest first.
type predictRequest struct {
	Symbol  string    `json:"symbol"`
	Returns []float64 `json:"returns"`
}

// PredictNextDay asks the forecasting service for next-day return quantiles
// for a symbol, given its recent return history.
func (c *Client) PredictNextDay(ctx context.Context, symbol string, returns []float64) ([]QuantilePrediction, error) {
	if len(returns) == 0 {
		return nil, fmt.Errorf("no returns supplied for %s", symbol)
	}

	body, err := json.Marshal(predictRequest{Symbol: symbol, Returns: returns})
	if err != nil {
		return nil, fmt.Errorf("failed to encode predict request: %w", err)
	}

	url := fmt.Sprintf("%s/predict", c.baseURL)
	c.log.Debug().Str("url", url).Str("symbol", symbol).Int("returns", len(returns)).Msg("Requesting quantile forecast")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build predict request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("forecast request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("forecast service returned status %d", resp.StatusCode)
	}

	var result struct {
		Predictions []QuantilePrediction `json:"predictions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode forecast response: %w", err)
	}

	if len(result.Predictions) == 0 {
		return nil, fmt.Errorf("forecast service returned no predictions for %s", symbol)
	}

	return result.Predictions, nil
}
