// Package datagrepper pulls messages from a datagrepper deployment's
// paginated /v2/search endpoint.
package datagrepper

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/fedora-infra/orphanstats/internal/contract"
	"github.com/fedora-infra/orphanstats/schema"
)

// Client is a datagrepper search client.
type Client struct {
	baseURL     string
	rowsPerPage int
	http        *http.Client
}

var _ contract.Source = (*Client)(nil) // Compile-time check

// NewClient returns a client for the given datagrepper base URL (no
// trailing slash, e.g. https://apps.fedoraproject.org/datagrepper).
func NewClient(baseURL string, rowsPerPage int) *Client {
	return &Client{
		baseURL:     baseURL,
		rowsPerPage: rowsPerPage,
		http:        &http.Client{},
	}
}

// searchResponse is the subset of the /v2/search response this tool reads.
type searchResponse struct {
	Pages       int              `json:"pages"`
	RawMessages []schema.Message `json:"raw_messages"`
}

// Fetch walks every search result page for the topic and window, invoking
// fn once per page. The reported page total can grow while paginating (new
// messages arrive upstream); iteration stops once the current page exceeds
// the latest reported total. Failures propagate immediately; there is no
// retry.
func (c *Client) Fetch(ctx context.Context, topic string, start, end time.Time, fn func(contract.Batch) error) error {
	page := 1
	totalPages := 1
	for page <= totalPages {
		resp, err := c.search(ctx, topic, start, end, page)
		if err != nil {
			return err
		}
		totalPages = resp.Pages
		if err := fn(contract.Batch{Messages: resp.RawMessages, Page: page, Pages: totalPages}); err != nil {
			return err
		}
		page++
	}
	return nil
}

func (c *Client) search(ctx context.Context, topic string, start, end time.Time, page int) (*searchResponse, error) {
	params := url.Values{}
	params.Set("topic", topic)
	params.Set("start", start.UTC().Format(time.RFC3339))
	if !end.IsZero() {
		params.Set("end", end.UTC().Format(time.RFC3339))
	}
	params.Set("rows_per_page", strconv.Itoa(c.rowsPerPage))
	params.Set("page", strconv.Itoa(page))

	reqURL := c.baseURL + "/v2/search?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build search request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("datagrepper request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("datagrepper returned %s for page %d: %s", resp.Status, page, body)
	}

	var result searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode search response for page %d: %w", page, err)
	}
	return &result, nil
}
