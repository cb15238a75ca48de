// Package adapter implements the wire protocols used to notify ping targets.
//
// Adapters uphold one hard contract: Invoke converts every failure mode
// (transport error, DNS failure, timeout, non-2xx status, XML-RPC fault)
// into a PingAttemptResult. The fan-out loop never observes an error from
// this boundary.
package adapter

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pingmyweb/pingd/internal/ping"
)

// maxMessageLen bounds the response text captured into attempt results.
const maxMessageLen = 200

// defaultTimeout applies when the config leaves the per-call bound unset.
const defaultTimeout = 10 * time.Second

// Context carries optional per-dispatch values substituted into request
// templates.
type Context struct {
	Title  string
	RSSURL string
}

// Invoker is the adapter entry point the orchestrator fans out through.
type Invoker interface {
	Invoke(ctx context.Context, target ping.PingTarget, url string, reqCtx Context) ping.PingAttemptResult
}

// Config controls adapter behavior.
type Config struct {
	// Timeout bounds each target invocation. A hung target must not block
	// sibling targets past this bound.
	Timeout   time.Duration
	UserAgent string
}

// Client implements Invoker for all four protocols over one HTTP client.
type Client struct {
	cfg  Config
	http *http.Client
}

// NewClient builds a Client. A nil transport uses http.DefaultTransport.
func NewClient(cfg Config, transport http.RoundTripper) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Client{
		cfg: cfg,
		http: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
	}
}

// Invoke builds and executes the protocol-specific request for a target.
func (c *Client) Invoke(ctx context.Context, target ping.PingTarget, url string, reqCtx Context) ping.PingAttemptResult {
	callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	switch target.Protocol {
	case ping.ProtocolGet:
		return c.invokeGet(callCtx, target, url, reqCtx)
	case ping.ProtocolPostJSON:
		return c.invokePostJSON(callCtx, target, url, reqCtx)
	case ping.ProtocolPostForm:
		return c.invokePostForm(callCtx, target, url, reqCtx)
	case ping.ProtocolXMLRPC:
		return c.invokeXMLRPC(callCtx, target, url, reqCtx)
	default:
		return failure(target, ping.AttemptInvalidRequest, 0, "unknown protocol "+string(target.Protocol))
	}
}

// expandTemplate substitutes the {url}, {title} and {rssUrl} placeholders.
func expandTemplate(tmpl, url string, reqCtx Context) string {
	r := strings.NewReplacer(
		"{url}", url,
		"{title}", reqCtx.Title,
		"{rssUrl}", reqCtx.RSSURL,
	)
	return r.Replace(tmpl)
}

// do executes the request and classifies the response into a result value.
func (c *Client) do(req *http.Request, target ping.PingTarget) ping.PingAttemptResult {
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return classifyTransportError(target, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	body := readBody(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return failure(target, ping.AttemptHTTPError, resp.StatusCode, body)
	}
	return ping.PingAttemptResult{
		Target:     target.Key,
		Success:    true,
		Code:       ping.AttemptOK,
		StatusCode: resp.StatusCode,
	}
}

func classifyTransportError(target ping.PingTarget, err error) ping.PingAttemptResult {
	code := ping.AttemptTransportError
	if isTimeout(err) {
		code = ping.AttemptTimeout
	}
	return failure(target, code, 0, err.Error())
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}

func failure(target ping.PingTarget, code ping.AttemptCode, status int, msg string) ping.PingAttemptResult {
	return ping.PingAttemptResult{
		Target:     target.Key,
		Success:    false,
		Code:       code,
		StatusCode: status,
		Message:    truncate(msg),
	}
}

func readBody(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, maxMessageLen+1))
	if err != nil {
		return ""
	}
	return truncate(string(data))
}

func truncate(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxMessageLen {
		return s[:maxMessageLen]
	}
	return s
}
