package retrieval

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/helpdesk-assist/backend/pkg/circuitbreaker"
	"github.com/helpdesk-assist/backend/pkg/logger"
)

// ErrUnavailable covers every transport-level failure of the external
// retrieval+generation service: timeout, connection refused, non-2xx
// status, open circuit. Callers never see the underlying cause as a
// distinct error type.
var ErrUnavailable = errors.New("retrieval service unavailable")

type Request struct {
	QueryText      string   `json:"query_text"`
	AllowedSources []string `json:"allowed_sources"`
	TopK           int      `json:"top_k"`
}

type RawSource struct {
	ID        string  `json:"id"`
	Type      string  `json:"type"`
	Title     string  `json:"title"`
	Relevance float64 `json:"relevance"`
	Excerpt   string  `json:"excerpt"`
}

type RawEntityPair struct {
	SourceEntity string   `json:"source_entity"`
	TargetEntity string   `json:"target_entity"`
	EdgeType     string   `json:"edge_type"`
	SourceIDs    []string `json:"source_ids"`
}

type RawPayload struct {
	AnswerText     string          `json:"answer_text"`
	RawSources     []RawSource     `json:"raw_sources"`
	RawEntityPairs []RawEntityPair `json:"raw_entity_pairs"`
}

// Retriever is the capability surface of the external service. Tests
// substitute a deterministic fake.
type Retriever interface {
	Retrieve(ctx context.Context, req Request) (*RawPayload, error)
}

type Client struct {
	endpoint   string
	timeout    time.Duration
	httpClient *http.Client
	cb         *circuitbreaker.CircuitBreaker
}

func NewClient(endpoint string, timeout time.Duration) *Client {
	cb := circuitbreaker.NewCircuitBreaker("retrieval", circuitbreaker.Config{
		MaxRequests:      3,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Logger:           logger.GetLogger(),
	})

	logger.Info("Retrieval client initialized",
		zap.String("endpoint", endpoint),
		zap.Duration("timeout", timeout),
	)

	return &Client{
		endpoint: endpoint,
		timeout:  timeout,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		cb: cb,
	}
}

// Retrieve performs exactly one call to the retrieval+generation endpoint.
// There is no retry here: a repeated call would duplicate an expensive
// generation, so retries are left to the caller's UI.
func (c *Client) Retrieve(ctx context.Context, req Request) (*RawPayload, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var payload *RawPayload

	err := c.cb.Execute(ctx, func() error {
		body, err := json.Marshal(req)
		if err != nil {
			return fmt.Errorf("failed to marshal retrieval request: %w", err)
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/v1/retrieve", bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("failed to build retrieval request: %w", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			io.Copy(io.Discard, resp.Body)
			return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
		}

		var decoded RawPayload
		if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
			return fmt.Errorf("%w: malformed response: %v", ErrUnavailable, err)
		}

		payload = &decoded
		return nil
	})

	if err != nil {
		if errors.Is(err, circuitbreaker.ErrCircuitOpen) || errors.Is(err, circuitbreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return nil, err
	}

	logger.Debug("Retrieval completed",
		zap.Int("sources", len(payload.RawSources)),
		zap.Int("entity_pairs", len(payload.RawEntityPairs)),
	)

	return payload, nil
}

// Ping probes the service health endpoint. Used by the health monitor only.
func (c *Client) Ping(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/v1/health", nil)
	if err != nil {
		return fmt.Errorf("failed to build health request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	return nil
}
