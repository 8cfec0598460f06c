package ledger

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// Response is a backend answer relayed verbatim.
type Response struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// Forward relays a request to the backend with the server-side credentials
// and returns whatever the backend answered, including non-2xx statuses.
// Only transport failures are returned as errors.
func (c *Client) Forward(ctx context.Context, method, path string, query url.Values, body []byte) (Response, error) {
	req := c.request(ctx)
	if len(query) > 0 {
		req.SetQueryParamsFromValues(query)
	}
	if len(body) > 0 {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}

	endpoint := strings.Trim(path, "/")
	resp, err := req.Execute(strings.ToUpper(method), path)
	if err != nil {
		c.metrics.ObserveUpstream(endpoint, 0)
		return Response{}, fmt.Errorf("ledger %s: %w", endpoint, err)
	}
	c.metrics.ObserveUpstream(endpoint, resp.StatusCode())

	return Response{
		StatusCode:  resp.StatusCode(),
		ContentType: resp.Header().Get("Content-Type"),
		Body:        resp.Body(),
	}, nil
}
