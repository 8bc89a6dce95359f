// Package oracle scores hazard scenarios against the prediction service,
// falling back to a local rule-based estimate when the service is out.
package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hazardwatch/alert-engine/internal/domain"
)

// Client implements domain.Scorer against the prediction service's
// POST /predict endpoint. Any transport or protocol failure is absorbed by
// delegating to the fallback scorer; Score never surfaces
// ErrOracleUnavailable to the caller.
type Client struct {
	baseURL    string
	httpClient *http.Client
	fallback   domain.Scorer
	logger     *slog.Logger
}

// NewClient creates an oracle client. fallback must not be nil; it answers
// whenever the service cannot.
func NewClient(baseURL string, timeout time.Duration, fallback domain.Scorer, logger *slog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		fallback: fallback,
		logger:   logger,
	}
}

// Score asks the prediction service for an assessment of the scenario.
func (c *Client) Score(ctx context.Context, hazardType domain.HazardType, loc domain.Location, features map[string]float64) (domain.OracleScore, error) {
	score, err := c.predict(ctx, hazardType, loc, features)
	if err != nil {
		c.logger.Warn("prediction service unavailable, using local estimate",
			"hazard_type", hazardType,
			"error", fmt.Errorf("%w: %w", domain.ErrOracleUnavailable, err),
		)
		return c.fallback.Score(ctx, hazardType, loc, features)
	}
	return score, nil
}

func (c *Client) predict(ctx context.Context, hazardType domain.HazardType, loc domain.Location, features map[string]float64) (domain.OracleScore, error) {
	payload, err := json.Marshal(predictRequest{
		DisasterType: string(hazardType),
		Location:     coordinates{Latitude: loc.Lat, Longitude: loc.Lon},
		Features:     features,
	})
	if err != nil {
		return domain.OracleScore{}, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict", bytes.NewReader(payload))
	if err != nil {
		return domain.OracleScore{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.OracleScore{}, fmt.Errorf("predict request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return domain.OracleScore{}, fmt.Errorf("prediction service error: status %d: %s", resp.StatusCode, body)
	}

	var pr predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return domain.OracleScore{}, fmt.Errorf("decode response: %w", err)
	}

	return domain.OracleScore{
		Probability: clamp01(pr.Probability),
		Confidence:  clamp01(pr.Confidence),
		Severity:    domain.Severity(pr.Severity),
		ModelID:     pr.ModelID,
	}, nil
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

// Prediction service wire types.

type predictRequest struct {
	DisasterType string             `json:"disaster_type"`
	Location     coordinates        `json:"location"`
	Features     map[string]float64 `json:"features"`
}

type coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type predictResponse struct {
	Probability float64 `json:"probability"`
	Confidence  float64 `json:"confidence"`
	Severity    string  `json:"severity"`
	ModelID     string  `json:"model_id"`
}
