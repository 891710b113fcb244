package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/papercomputeco/council/pkg/utils"
)

var (
	// ErrUnreachable matches every UnreachableError.
	ErrUnreachable = errors.New("backend unreachable")

	// ErrStreamIdle is the cause of a stream aborted because no bytes
	// arrived within the idle timeout.
	ErrStreamIdle = errors.New("stream idle timeout")
)

// UnreachableError reports that no connection to the backend could be made.
type UnreachableError struct {
	BaseURL string
	Err     error
}

func (e *UnreachableError) Error() string {
	return fmt.Sprintf("cannot connect to backend at %s: is the server running?", e.BaseURL)
}

func (e *UnreachableError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrUnreachable) hold.
func (e *UnreachableError) Is(target error) bool {
	return target == ErrUnreachable
}

// StatusError is a non-2xx response from the backend.
type StatusError struct {
	StatusCode int

	// Status is the status line text, e.g. "404 Not Found".
	Status string

	// Body is the FastAPI "detail" message when present, otherwise the
	// (truncated) raw body.
	Body string
}

func (e *StatusError) Error() string {
	status := e.Status
	if status == "" {
		status = fmt.Sprintf("%d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	if e.Body == "" {
		return "HTTP " + status
	}
	return fmt.Sprintf("HTTP %s: %s", status, e.Body)
}

const maxErrorBody = 4 * 1024

func newStatusError(resp *http.Response) error {
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return &StatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	var detail struct {
		Detail json.RawMessage `json:"detail"`
	}
	text := strings.TrimSpace(string(body))
	if json.Unmarshal(body, &detail) == nil && len(detail.Detail) > 0 {
		var s string
		if json.Unmarshal(detail.Detail, &s) == nil {
			text = s
		} else {
			text = string(detail.Detail)
		}
	}

	return &StatusError{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       utils.Truncate(text, 200),
	}
}

// classify turns a transport error into UnreachableError when the backend
// could not be reached at all. Context errors are returned unchanged.
func (c *Client) classify(ctx context.Context, err error) error {
	if cause := context.Cause(ctx); errors.Is(cause, ErrStreamIdle) {
		return cause
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var dnsErr *net.DNSError
	var opErr *net.OpError
	if errors.As(err, &dnsErr) || (errors.As(err, &opErr) && opErr.Op == "dial") {
		return &UnreachableError{BaseURL: c.baseURL, Err: err}
	}
	return err
}
