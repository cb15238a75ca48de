package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/pingmyweb/pingd/internal/ping"
)

// invokePostJSON POSTs the expanded parameter template as a flat JSON object.
func (c *Client) invokePostJSON(ctx context.Context, target ping.PingTarget, pingURL string, reqCtx Context) ping.PingAttemptResult {
	payload := make(map[string]string, len(target.Params))
	for key, tmpl := range target.Params {
		payload[key] = expandTemplate(tmpl, pingURL, reqCtx)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return failure(target, ping.AttemptInvalidRequest, 0, err.Error())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.Endpoint, bytes.NewReader(body))
	if err != nil {
		return failure(target, ping.AttemptInvalidRequest, 0, err.Error())
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	return c.do(req, target)
}

// invokePostForm POSTs the expanded parameter template URL-encoded, the shape
// WebSub hubs expect.
func (c *Client) invokePostForm(ctx context.Context, target ping.PingTarget, pingURL string, reqCtx Context) ping.PingAttemptResult {
	form := make(url.Values, len(target.Params))
	for key, tmpl := range target.Params {
		form.Set(key, expandTemplate(tmpl, pingURL, reqCtx))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.Endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return failure(target, ping.AttemptInvalidRequest, 0, err.Error())
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req, target)
}
