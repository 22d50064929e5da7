// Package gateway talks to the remote rewrite service.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"omnikey/src/command"
	"omnikey/src/logutil"
)

const maxResponseBytes = 4 << 20

type Kind string

const (
	KindTransport Kind = "transport"
	KindTimeout   Kind = "timeout"
	KindCanceled  Kind = "canceled"
	KindStatus    Kind = "status"
	KindBody      Kind = "body"
	KindEmpty     Kind = "empty"
	KindRequest   Kind = "request"
)

// Error is the single failure type of a rewrite call. Reason is meant for
// the user.
type Error struct {
	Kind   Kind
	Status int
	Reason string
	Err    error
}

func (e *Error) Error() string { return e.Reason }

func (e *Error) Unwrap() error { return e.Err }

// Request is one rewrite call.
type Request struct {
	Command command.Command
	Text    string
}

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// New returns a client whose every call is bounded by timeout.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: timeout},
	}
}

// Submit posts the text to the command's route and returns the rewritten
// text. Any failure, including a blank answer, is an *Error.
func (c *Client) Submit(ctx context.Context, req Request) (string, error) {
	spec, ok := command.Lookup(req.Command)
	if !ok {
		return "", &Error{Kind: KindRequest, Reason: fmt.Sprintf("unknown command %q", req.Command)}
	}

	payload, err := json.Marshal(struct {
		Text string `json:"text"`
	}{Text: req.Text})
	if err != nil {
		return "", &Error{Kind: KindRequest, Reason: "could not encode request", Err: err}
	}

	url := c.BaseURL + spec.Path
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", &Error{Kind: KindRequest, Reason: "invalid service URL", Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	start := time.Now()
	log.Printf("gateway: POST %s (%d chars)", url, len([]rune(req.Text)))
	resp, err := c.HTTP.Do(httpReq)
	if err != nil {
		return "", transportError(ctx, err, c.HTTP.Timeout)
	}
	defer resp.Body.Close()

	body, err := readBody(resp)
	if err != nil {
		return "", err
	}
	log.Printf("gateway: %s answered %d in %v", spec.Path, resp.StatusCode, time.Since(start).Round(time.Millisecond))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", statusError(resp, body)
	}

	result, err := extractResult(body)
	if err != nil {
		return "", err
	}
	log.Printf("gateway: result %s", logutil.Preview(result, 60))
	return result, nil
}

// Health calls GET /health.
func (c *Client) Health(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/health", nil)
	if err != nil {
		return &Error{Kind: KindRequest, Reason: "invalid service URL", Err: err}
	}
	resp, err := c.HTTP.Do(httpReq)
	if err != nil {
		return transportError(ctx, err, c.HTTP.Timeout)
	}
	defer resp.Body.Close()
	body, err := readBody(resp)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return statusError(resp, body)
	}
	var status struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(body, &status); err != nil || status.Status != "ok" {
		return &Error{Kind: KindBody, Status: resp.StatusCode, Reason: fmt.Sprintf("unexpected health answer %q", logutil.Preview(string(body), 80))}
	}
	return nil
}

// readBody reads at most maxResponseBytes. A longer body is an error, never a
// truncated result.
func readBody(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return nil, &Error{Kind: KindBody, Status: resp.StatusCode, Reason: "could not read service response", Err: err}
	}
	if len(body) > maxResponseBytes {
		return nil, &Error{Kind: KindBody, Status: resp.StatusCode, Reason: "response too large"}
	}
	return body, nil
}

// extractResult prefers the JSON "result" field and otherwise takes the
// body verbatim.
func extractResult(body []byte) (string, error) {
	var envelope struct {
		Result *string `json:"result"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Result != nil {
		if strings.TrimSpace(*envelope.Result) == "" {
			return "", &Error{Kind: KindEmpty, Status: http.StatusOK, Reason: "empty response"}
		}
		return *envelope.Result, nil
	}
	raw := string(body)
	if strings.TrimSpace(raw) == "" {
		return "", &Error{Kind: KindEmpty, Status: http.StatusOK, Reason: "empty response"}
	}
	return raw, nil
}

func statusError(resp *http.Response, body []byte) *Error {
	reason := fmt.Sprintf("service returned %s", resp.Status)
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && strings.TrimSpace(payload.Error) != "" {
		reason = fmt.Sprintf("%s: %s", reason, strings.TrimSpace(payload.Error))
	}
	return &Error{Kind: KindStatus, Status: resp.StatusCode, Reason: reason}
}

func transportError(ctx context.Context, err error, timeout time.Duration) *Error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return &Error{Kind: KindCanceled, Reason: "request cancelled", Err: err}
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		reason := "request timed out"
		if timeout > 0 {
			reason = fmt.Sprintf("request timed out after %v", timeout)
		}
		return &Error{Kind: KindTimeout, Reason: reason, Err: err}
	}
	return &Error{Kind: KindTransport, Reason: "could not reach rewrite service", Err: err}
}
