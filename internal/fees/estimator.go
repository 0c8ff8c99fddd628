// internal/fees/estimator.go
package fees

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
)

// Level selects a priority-fee tier symbolically.
type Level string

const (
	LevelMax     Level = "max"
	LevelHigh    Level = "high"
	LevelMedium  Level = "medium"
	LevelLow     Level = "low"
	LevelAverage Level = "average"
	LevelMedian  Level = "median"
)

// Tiers holds per-compute-unit priority-fee rates in micro-lamports.
type Tiers struct {
	Max     uint64
	High    uint64
	Medium  uint64
	Low     uint64
	Average uint64
	Median  uint64
}

// Resolve maps a symbolic level to a concrete rate. An unknown level is an
// input-validation error, not a transport failure.
func (t Tiers) Resolve(level Level) (uint64, error) {
	switch level {
	case LevelMax:
		return t.Max, nil
	case LevelHigh:
		return t.High, nil
	case LevelMedium:
		return t.Medium, nil
	case LevelLow:
		return t.Low, nil
	case LevelAverage:
		return t.Average, nil
	case LevelMedian:
		return t.Median, nil
	default:
		return 0, fmt.Errorf("invalid fee level: %s", level)
	}
}

// EstimationError means the fee source was unreachable or returned garbage.
// It is fatal to transaction building: no fee floor is assumed.
type EstimationError struct {
	Err error
}

func (e *EstimationError) Error() string {
	return fmt.Sprintf("fee estimation failed: %v", e.Err)
}

func (e *EstimationError) Unwrap() error { return e.Err }

// Config configures the priority-fee percentile query.
type Config struct {
	// Endpoint is the JSON-RPC HTTP endpoint serving estimatePriorityFees.
	Endpoint string
	// Account is the reference program account for the percentile query.
	Account string
	// LastNBlocks is the recent-block window to sample.
	LastNBlocks int
	// MaxTries bounds transport retries per estimate.
	MaxTries int
}

// Estimator fetches current network priority-fee tiers.
type Estimator struct {
	client *http.Client
	config Config
	logger *zap.Logger
}

func NewEstimator(config Config, logger *zap.Logger) *Estimator {
	if config.LastNBlocks <= 0 {
		config.LastNBlocks = 100
	}
	if config.MaxTries <= 0 {
		config.MaxTries = 3
	}
	return &Estimator{
		client: &http.Client{Timeout: 10 * time.Second},
		config: config,
		logger: logger.Named("fee-estimator"),
	}
}

type requestPayload struct {
	Method  string        `json:"method"`
	Params  requestParams `json:"params"`
	ID      int           `json:"id"`
	JSONRPC string        `json:"jsonrpc"`
}

type requestParams struct {
	LastNBlocks int    `json:"last_n_blocks"`
	Account     string `json:"account"`
}

type feeEstimates struct {
	Extreme     float64            `json:"extreme"`
	High        float64            `json:"high"`
	Low         float64            `json:"low"`
	Medium      float64            `json:"medium"`
	Percentiles map[string]float64 `json:"percentiles"`
}

type responseData struct {
	Result struct {
		PerComputeUnit feeEstimates `json:"per_compute_unit"`
	} `json:"result"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Estimate queries the fee source and maps its percentiles to tiers.
func (e *Estimator) Estimate(ctx context.Context) (Tiers, error) {
	operation := func() (*responseData, error) {
		return e.fetch(ctx)
	}

	data, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(uint(e.config.MaxTries)),
		backoff.WithNotify(func(err error, next time.Duration) {
			e.logger.Warn("retrying fee estimate",
				zap.Duration("next_attempt_in", next),
				zap.Error(err))
		}))
	if err != nil {
		return Tiers{}, &EstimationError{Err: err}
	}

	perUnit := data.Result.PerComputeUnit
	tiers := Tiers{
		Max:     uint64(perUnit.Extreme),
		High:    uint64(perUnit.High),
		Medium:  uint64(perUnit.Medium),
		Low:     uint64(perUnit.Low),
		Average: uint64(perUnit.Medium),
		Median:  uint64(perUnit.Percentiles["50"]),
	}

	e.logger.Debug("priority fee tiers",
		zap.Uint64("max", tiers.Max),
		zap.Uint64("high", tiers.High),
		zap.Uint64("medium", tiers.Medium),
		zap.Uint64("low", tiers.Low),
		zap.Uint64("median", tiers.Median))

	return tiers, nil
}

func (e *Estimator) fetch(ctx context.Context) (*responseData, error) {
	payload := requestPayload{
		Method: "estimatePriorityFees",
		Params: requestParams{
			LastNBlocks: e.config.LastNBlocks,
			Account:     e.config.Account,
		},
		ID:      1,
		JSONRPC: "2.0",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, backoff.Permanent(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.config.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fee endpoint returned status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var data responseData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("malformed fee response: %w", err))
	}
	if data.Error != nil {
		return nil, backoff.Permanent(fmt.Errorf("fee endpoint error %d: %s", data.Error.Code, data.Error.Message))
	}
	return &data, nil
}
