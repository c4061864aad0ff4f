package places

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"review_dashboard/internal/adapters/fetch"
)

type Client struct {
	base string
	key  string
	http *fetch.Client
}

func NewClient(base, key string, rps int) (*Client, error) {
	if key == "" {
		return nil, fmt.Errorf("places: API key is required")
	}
	return &Client{base: base, key: key, http: fetch.New(fetch.Config{
		Service: "places",
		RPS:     rps,
		// quota errors arrive as 200 with a status field, so HTTP retries
		// only cover gateway hiccups
		Policy: fetch.Policy{Attempts: 2, Retry: fetch.Transient},
	})}, nil
}

// statusErrors maps the body status of a details call onto fetch sentinels.
var statusErrors = map[string]error{
	"OVER_QUERY_LIMIT": fetch.ErrRateLimited,
	"REQUEST_DENIED":   fetch.ErrForbidden,
	"NOT_FOUND":        fetch.ErrNotFound,
	"INVALID_REQUEST":  fetch.ErrNotFound,
}

type detailsResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Result       struct {
		Name    string           `json:"name"`
		Reviews []map[string]any `json:"reviews"`
	} `json:"result"`
}

// FetchReviews returns the raw reviews of one place and the place's display name.
func (c *Client) FetchReviews(ctx context.Context, placeID string) ([]map[string]any, string, error) {
	q := url.Values{}
	q.Set("place_id", placeID)
	q.Set("fields", "reviews,name")
	q.Set("key", c.key)

	var out detailsResponse
	if err := c.http.GetJSON(ctx, "details", c.base+"/details/json?"+q.Encode(), &out); err != nil {
		return nil, "", err
	}
	switch out.Status {
	case "", "OK":
	case "ZERO_RESULTS":
		return nil, out.Result.Name, nil
	default:
		cause, ok := statusErrors[out.Status]
		if !ok {
			cause = errors.New("places: unexpected status")
		}
		return nil, "", fmt.Errorf("places: status %s: %s: %w", out.Status, out.ErrorMessage, cause)
	}
	return out.Result.Reviews, out.Result.Name, nil
}
