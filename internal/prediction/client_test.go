package prediction

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"smartstock/m/internal/servererrors"
)

func TestProductForecastNormalizesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/predictions" {
			t.Errorf("path: %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("product_id"); got != "p1" {
			t.Errorf("product_id: %s", got)
		}
		if got := r.URL.Query().Get("days"); got != "7" {
			t.Errorf("days: %s", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"product_id": "p1",
			"predictions": [
				{"date": "2025-01-01", "predicted_quantity": 4, "method": "arima"},
				{"date": "2025-01-02", "predicted_quantity": 5, "method": "arima"}
			],
			"avg_prediction": 4.5,
			"confidence": "medium"
		}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	// days <= 0 falls back to the default horizon.
	forecast, err := c.ProductForecast(context.Background(), "p1", 0)
	if err != nil {
		t.Fatalf("forecast: %v", err)
	}
	if forecast.ProductID != "p1" || forecast.AvgPrediction != 4.5 {
		t.Fatalf("unexpected forecast: %+v", forecast)
	}
	if forecast.Confidence != "medium" || forecast.Method != "arima" {
		t.Fatalf("confidence/method: %q/%q", forecast.Confidence, forecast.Method)
	}
	if len(forecast.Predictions) != 2 || forecast.Predictions[0].PredictedQuantity != 4 {
		t.Fatalf("points: %+v", forecast.Predictions)
	}
}

func TestAllForecasts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/all_predictions" {
			t.Errorf("path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"days": 7,
			"predictions": {
				"p1": {"predictions": [{"date": "2025-01-01", "predicted_quantity": 3}], "avg_prediction": 3}
			},
			"total_products": 1
		}`))
	}))
	defer srv.Close()

	batch, err := NewClient(srv.URL).AllForecasts(context.Background(), 7)
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if batch.Days != 7 || batch.TotalProducts != 1 {
		t.Fatalf("unexpected batch: %+v", batch)
	}
	if _, ok := batch.Predictions["p1"]; !ok {
		t.Fatal("missing product entry")
	}
}

func TestErrorStatusBecomesExternalServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).ProductForecast(context.Background(), "p1", 7)
	var external *servererrors.ExternalServiceError
	if !errors.As(err, &external) {
		t.Fatalf("want ExternalServiceError, got %v", err)
	}
}

func TestUnreachableServiceBecomesExternalServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing listens anymore

	_, err := NewClient(srv.URL).Health(context.Background())
	var external *servererrors.ExternalServiceError
	if !errors.As(err, &external) {
		t.Fatalf("want ExternalServiceError, got %v", err)
	}
}

func TestHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			t.Errorf("path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status": "healthy"}`))
	}))
	defer srv.Close()

	status, err := NewClient(srv.URL).Health(context.Background())
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	if status["status"] != "healthy" {
		t.Fatalf("status: %+v", status)
	}
}
