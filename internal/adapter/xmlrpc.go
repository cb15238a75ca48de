package adapter

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/pingmyweb/pingd/internal/ping"
)

// defaultSiteTitle stands in when the caller supplied no title; the
// weblogUpdates method family requires one.
const defaultSiteTitle = "Web Site"

// extendedPingFlagCount is the battery of boolean flags appended to
// weblogUpdates.extendedPing calls, telling the aggregator to relay the ping
// to every subservice it fronts.
const extendedPingFlagCount = 11

// invokeXMLRPC builds the target-specific method call, POSTs it and
// interprets the methodResponse. A fault struct or a flerror=true reply is a
// failure even when HTTP reports 200.
func (c *Client) invokeXMLRPC(ctx context.Context, target ping.PingTarget, pingURL string, reqCtx Context) ping.PingAttemptResult {
	title := reqCtx.Title
	if title == "" {
		title = defaultSiteTitle
	}

	call := methodCall{MethodName: target.XMLRPCMethod}
	switch target.XMLRPCMethod {
	case "weblogUpdates.extendedPing":
		call.addString(title)
		call.addString(pingURL)
		call.addString(reqCtx.RSSURL)
		for i := 0; i < extendedPingFlagCount; i++ {
			call.addInt(1)
		}
	default:
		// weblogUpdates.ping and compatible methods take title, url.
		call.addString(title)
		call.addString(pingURL)
	}

	body, err := call.encode()
	if err != nil {
		return failure(target, ping.AttemptInvalidRequest, 0, err.Error())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.Endpoint, bytes.NewReader(body))
	if err != nil {
		return failure(target, ping.AttemptInvalidRequest, 0, err.Error())
	}
	req.Header.Set("Content-Type", "text/xml")
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return classifyTransportError(target, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return failure(target, ping.AttemptTransportError, resp.StatusCode, "read response: "+err.Error())
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return failure(target, ping.AttemptHTTPError, resp.StatusCode, string(raw))
	}

	reply, err := decodeMethodResponse(raw)
	if err != nil {
		return failure(target, ping.AttemptXMLRPCFault, resp.StatusCode, "decode response: "+err.Error())
	}
	if reply.Fault != nil {
		return failure(target, ping.AttemptXMLRPCFault, reply.Fault.Code, reply.Fault.Message)
	}
	if reply.FLError {
		return failure(target, ping.AttemptXMLRPCFault, resp.StatusCode, reply.Message)
	}

	res := ping.PingAttemptResult{
		Target:     target.Key,
		Success:    true,
		Code:       ping.AttemptOK,
		StatusCode: resp.StatusCode,
		Message:    truncate(reply.Message),
	}
	if res.Message == "" {
		res.Message = fmt.Sprintf("%s accepted", target.XMLRPCMethod)
	}
	return res
}
