// Package analytics reads the metric contract and computed metrics from the
// analytics service.
package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mind-engage/mindengage-quiz/internal/upstream"
)

const DefaultBaseURL = "http://localhost:5000/api/analytics"

var (
	ErrInvalidRequest = errors.New("analytics: invalid metric request")
	ErrNoMetrics      = fmt.Errorf("%w: at least one metric is required", ErrInvalidRequest)
)

type MetricDefinition struct {
	MetricID    string         `json:"metric_id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Type        string         `json:"type"` // quantitative | qualitative
	Parameters  map[string]any `json:"parameters,omitempty"`
}

type Contract struct {
	AvailableMetrics []MetricDefinition `json:"available_metrics"`
	Filters          []string           `json:"filters"`
}

type MetricRequest struct {
	MetricID   string         `json:"metric_id"`
	ActivityID string         `json:"activity_id,omitempty"`
	StudentID  string         `json:"student_id,omitempty"`
	Filters    map[string]any `json:"filters,omitempty"`
}

// MetricResult.Value is a number, a string or an object depending on the metric.
type MetricResult struct {
	MetricID     string          `json:"metric_id"`
	MetricName   string          `json:"metric_name"`
	Value        json.RawMessage `json:"value"`
	CalculatedAt string          `json:"calculated_at"`
}

type Config struct {
	BaseURL    string
	Timeout    time.Duration
	Observer   upstream.Observer
	HTTPClient *http.Client
}

type Client struct {
	tr upstream.JSON
}

func New(cfg Config) *Client {
	h := cfg.HTTPClient
	if h == nil {
		h = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{tr: upstream.JSON{
		Service:  "analytics",
		Base:     upstream.TrimBase(cfg.BaseURL, DefaultBaseURL),
		HTTP:     h,
		Observer: cfg.Observer,
	}}
}

func (c *Client) Contract(ctx context.Context) (Contract, error) {
	var out Contract
	err := c.do(ctx, "contract", http.MethodGet, "/get-analytics-contract", nil, &out)
	return out, err
}

// Metrics requests computed metrics. An empty request list is rejected
// without calling the service.
func (c *Client) Metrics(ctx context.Context, reqs []MetricRequest) ([]MetricResult, error) {
	if len(reqs) == 0 {
		return nil, ErrNoMetrics
	}
	for i, r := range reqs {
		if strings.TrimSpace(r.MetricID) == "" {
			return nil, fmt.Errorf("%w: metric %d has no metric_id", ErrInvalidRequest, i)
		}
	}
	var out struct {
		Results []MetricResult `json:"results"`
	}
	if err := c.do(ctx, "metrics", http.MethodPost, "/get-metrics", map[string]any{"metrics": reqs}, &out); err != nil {
		return nil, err
	}
	return out.Results, nil
}

func (c *Client) ActivityMetrics(ctx context.Context, activityID string, metricIDs []string) ([]MetricResult, error) {
	reqs := make([]MetricRequest, 0, len(metricIDs))
	for _, id := range metricIDs {
		reqs = append(reqs, MetricRequest{MetricID: id, ActivityID: activityID})
	}
	return c.Metrics(ctx, reqs)
}

func (c *Client) StudentMetrics(ctx context.Context, studentID string, metricIDs []string) ([]MetricResult, error) {
	reqs := make([]MetricRequest, 0, len(metricIDs))
	for _, id := range metricIDs {
		reqs = append(reqs, MetricRequest{MetricID: id, StudentID: studentID})
	}
	return c.Metrics(ctx, reqs)
}

func (c *Client) do(ctx context.Context, op, method, path string, in, out any) error {
	return c.tr.Do(ctx, op, method, path, in, out)
}
