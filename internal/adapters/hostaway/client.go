// internal/adapters/hostaway/client.go
package hostaway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"review_dashboard/internal/adapters/fetch"
)

// Client reads guest reviews from the Hostaway public API.
type Client struct {
	base      string
	accountID string
	http      *fetch.Client
}

func NewClient(base, key, accountID string, rps int) (*Client, error) {
	if key == "" {
		return nil, fmt.Errorf("hostaway: API key is required")
	}
	h := http.Header{}
	h.Set("Authorization", "Bearer "+key)
	h.Set("Cache-Control", "no-cache")
	return &Client{base: base, accountID: accountID, http: fetch.New(fetch.Config{
		Service: "hostaway",
		RPS:     rps,
		Headers: h,
		Policy:  fetch.DefaultPolicy,
	})}, nil
}

// envelope is the documented list shape; some exports return a bare array instead.
type envelope struct {
	Status string           `json:"status"`
	Result []map[string]any `json:"result"`
}

// FetchReviews returns the raw review objects, optionally scoped to listings.
func (c *Client) FetchReviews(ctx context.Context, listingIDs []string, limit int) ([]map[string]any, error) {
	if len(listingIDs) == 0 {
		listingIDs = []string{""}
	}
	var out []map[string]any
	for _, id := range listingIDs {
		rs, err := c.fetch(ctx, id)
		if err != nil {
			if id == "" {
				return nil, err
			}
			return nil, fmt.Errorf("listing %s: %w", id, err)
		}
		out = append(out, rs...)
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (c *Client) fetch(ctx context.Context, listingID string) ([]map[string]any, error) {
	q := url.Values{}
	q.Set("type", "guest-to-host")
	if listingID != "" {
		q.Set("listingId", listingID)
	}
	if c.accountID != "" {
		q.Set("accountId", c.accountID)
	}
	u := c.base + "/reviews?" + q.Encode()

	var raw json.RawMessage
	if err := c.http.GetJSON(ctx, "reviews", u, &raw); err != nil {
		return nil, err
	}
	return decodeReviews(raw)
}

func decodeReviews(raw json.RawMessage) ([]map[string]any, error) {
	if len(raw) > 0 && raw[0] == '[' {
		var arr []map[string]any
		if err := json.Unmarshal(raw, &arr); err != nil {
			return nil, fmt.Errorf("hostaway: decode reviews: %w", err)
		}
		return arr, nil
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("hostaway: decode reviews: %w", err)
	}
	if env.Status != "" && env.Status != "success" {
		return nil, fmt.Errorf("hostaway: status %s", strconv.Quote(env.Status))
	}
	return env.Result, nil
}
