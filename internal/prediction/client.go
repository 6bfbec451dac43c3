// Package prediction is a thin gateway to the external demand-forecasting
// service. It holds no ledger state and never takes ledger locks; a
// forecasting outage must never affect CRUD availability.
package prediction

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"smartstock/m/internal/servererrors"
)

const serviceName = "AI prediction service"

// Per-operation timeouts. Batch forecasts run models for every product and
// take longer than a single-product call.
const (
	productTimeout = 10 * time.Second
	batchTimeout   = 15 * time.Second
	healthTimeout  = 5 * time.Second
)

// DefaultDays is the forecast horizon used when the caller does not specify
// one.
const DefaultDays = 7

// Point is one forecast data point.
type Point struct {
	Date              string `json:"date"`
	PredictedQuantity int64  `json:"predicted_quantity"`
	Method            string `json:"method,omitempty"`
}

// Forecast is the normalized per-product forecast.
type Forecast struct {
	ProductID     string  `json:"productId"`
	Predictions   []Point `json:"predictions"`
	AvgPrediction float64 `json:"avgPrediction"`
	Confidence    string  `json:"confidence"`
	Method        string  `json:"method"`
}

// BatchForecast is the normalized all-products forecast.
type BatchForecast struct {
	Days          int                        `json:"days"`
	Predictions   map[string]ProductForecast `json:"predictions"`
	TotalProducts int                        `json:"totalProducts"`
}

// ProductForecast is one product's entry in a batch forecast.
type ProductForecast struct {
	Predictions   []Point `json:"predictions"`
	AvgPrediction float64 `json:"avg_prediction"`
}

// Client calls the external forecasting endpoint.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient constructs a Client for the given base URL. Timeouts are applied
// per call.
func NewClient(baseURL string) *Client {
	return &Client{baseURL: baseURL, http: &http.Client{}}
}

// ProductForecast fetches the forecast for one product.
func (c *Client) ProductForecast(ctx context.Context, productID string, days int) (Forecast, error) {
	if days <= 0 {
		days = DefaultDays
	}
	q := url.Values{}
	q.Set("product_id", productID)
	q.Set("days", strconv.Itoa(days))

	var raw struct {
		Predictions   []Point `json:"predictions"`
		AvgPrediction float64 `json:"avg_prediction"`
		Confidence    string  `json:"confidence"`
	}
	if err := c.getJSON(ctx, "/api/predictions?"+q.Encode(), productTimeout, &raw); err != nil {
		return Forecast{}, err
	}

	method := ""
	if len(raw.Predictions) > 0 {
		method = raw.Predictions[0].Method
	}
	return Forecast{
		ProductID:     productID,
		Predictions:   raw.Predictions,
		AvgPrediction: raw.AvgPrediction,
		Confidence:    raw.Confidence,
		Method:        method,
	}, nil
}

// AllForecasts fetches forecasts for every product known to the service.
func (c *Client) AllForecasts(ctx context.Context, days int) (BatchForecast, error) {
	if days <= 0 {
		days = DefaultDays
	}
	q := url.Values{}
	q.Set("days", strconv.Itoa(days))

	var raw struct {
		Days          int                        `json:"days"`
		Predictions   map[string]ProductForecast `json:"predictions"`
		TotalProducts int                        `json:"total_products"`
	}
	if err := c.getJSON(ctx, "/api/all_predictions?"+q.Encode(), batchTimeout, &raw); err != nil {
		return BatchForecast{}, err
	}
	return BatchForecast{Days: raw.Days, Predictions: raw.Predictions, TotalProducts: raw.TotalProducts}, nil
}

// Health probes the forecasting service's liveness endpoint and returns its
// raw status payload.
func (c *Client) Health(ctx context.Context) (map[string]any, error) {
	var status map[string]any
	if err := c.getJSON(ctx, "/health", healthTimeout, &status); err != nil {
		return nil, err
	}
	return status, nil
}

// getJSON performs one bounded GET and decodes the response. Any transport
// failure or non-2xx status becomes a uniform ExternalServiceError so
// callers never see transport-level detail.
func (c *Client) getJSON(ctx context.Context, path string, timeout time.Duration, dest any) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return &servererrors.ExternalServiceError{Service: serviceName, Err: err}
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return &servererrors.ExternalServiceError{Service: serviceName, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &servererrors.ExternalServiceError{
			Service: serviceName,
			Err:     fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return &servererrors.ExternalServiceError{Service: serviceName, Err: err}
	}
	return nil
}
