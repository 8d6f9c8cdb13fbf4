// Package workqueue is the HTTP client for the coordination server's
// telemetry endpoints. It backs all three workload sources: pending work
// items, active worker tasks and the server's own load figure.
package workqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/fleetloop/orchestrator/internal/logic/workload"
)

const (
	workItemStatsPath    = "/api/v1/workitems/stats"
	activeTasksPath      = "/api/v1/tasks/active"
	coordinationLoadPath = "/api/v1/load"

	responseBodyLimit = 64 << 10
)

// Client talks to one coordination server.
type Client struct {
	logger  *slog.Logger
	client  *http.Client
	baseURL string
}

// New creates a client for the coordination server at baseURL.
func New(logger *slog.Logger, baseURL string) *Client {
	return &Client{
		logger:  logger,
		client:  &http.Client{},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

var (
	_ workload.WorkStore    = (*Client)(nil)
	_ workload.TaskRegistry = (*Client)(nil)
	_ workload.LoadReporter = (*Client)(nil)
)

type workItemStatsResponse struct {
	Pending  int `json:"pending"`
	Critical int `json:"critical"`
}

type activeTasksResponse struct {
	Active int `json:"active"`
}

type loadResponse struct {
	Load float64 `json:"load"`
}

// PendingWorkQuery fetches pending and critical work-item counts.
func (c *Client) PendingWorkQuery(ctx context.Context) (workload.WorkCounts, error) {
	var response workItemStatsResponse
	if err := c.getJSON(ctx, workItemStatsPath, &response); err != nil {
		return workload.WorkCounts{}, fmt.Errorf("pending work query: %w", err)
	}

	return workload.WorkCounts{
		Pending:  response.Pending,
		Critical: response.Critical,
	}, nil
}

// ActiveTasksQuery fetches the number of tasks workers are executing.
func (c *Client) ActiveTasksQuery(ctx context.Context) (int, error) {
	var response activeTasksResponse
	if err := c.getJSON(ctx, activeTasksPath, &response); err != nil {
		return 0, fmt.Errorf("active tasks query: %w", err)
	}

	return response.Active, nil
}

// LoadQuery fetches the coordination server's normalized load figure.
func (c *Client) LoadQuery(ctx context.Context) (float64, error) {
	var response loadResponse
	if err := c.getJSON(ctx, coordinationLoadPath, &response); err != nil {
		return 0, fmt.Errorf("load query: %w", err)
	}

	return response.Load, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	url := c.baseURL + path

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: %w: status %d", path, ErrUnexpectedStatus, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, responseBodyLimit))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}

	return nil
}
