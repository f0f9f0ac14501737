package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/dukex/phasetrack/pkg/models"
	"github.com/moogar0880/problems"
)

// ErrNotFound is returned when the API answers 404.
var ErrNotFound = errors.New("not found")

// Client reads authoritative state from the API, typically after a reconnect.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{baseURL: strings.TrimSuffix(baseURL, "/"), http: httpClient}
}

// Timeline fetches GET /references/:id/timeline.
func (c *Client) Timeline(ctx context.Context, referenceID int64) (*models.Timeline, error) {
	var timeline models.Timeline

	err := c.get(ctx, "/references/"+strconv.FormatInt(referenceID, 10)+"/timeline", &timeline)
	if err != nil {
		return nil, err
	}

	return &timeline, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}

	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return problemError(resp)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func problemError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))

	var problem problems.Problem

	detail := strings.TrimSpace(string(body))
	if json.Unmarshal(body, &problem) == nil && problem.Detail != "" {
		detail = problem.Detail
	}

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrNotFound, detail)
	}

	return fmt.Errorf("api returned %d: %s", resp.StatusCode, detail)
}
