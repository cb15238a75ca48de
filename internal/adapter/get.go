package adapter

import (
	"context"
	"net/http"
	"net/url"

	"github.com/pingmyweb/pingd/internal/ping"
)

// invokeGet issues a GET with the target's parameter template expanded into
// the query string.
func (c *Client) invokeGet(ctx context.Context, target ping.PingTarget, pingURL string, reqCtx Context) ping.PingAttemptResult {
	endpoint, err := url.Parse(target.Endpoint)
	if err != nil {
		return failure(target, ping.AttemptInvalidRequest, 0, "bad endpoint: "+err.Error())
	}

	q := endpoint.Query()
	for key, tmpl := range target.Params {
		q.Set(key, expandTemplate(tmpl, pingURL, reqCtx))
	}
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return failure(target, ping.AttemptInvalidRequest, 0, err.Error())
	}
	return c.do(req, target)
}
