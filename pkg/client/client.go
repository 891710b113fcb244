// Package client talks to the council backend over HTTP: conversation
// listing, creation and retrieval, and posting messages either for a full
// JSON answer or for a stream of stage events.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/papercomputeco/council/pkg/council"
	"github.com/papercomputeco/council/pkg/logger"
	"github.com/papercomputeco/council/pkg/sse"
	"github.com/papercomputeco/council/pkg/utils"
)

const (
	// DefaultBaseURL is where a locally started backend listens.
	DefaultBaseURL = "http://localhost:8000"

	DefaultRequestTimeout    = 30 * time.Second
	DefaultStreamIdleTimeout = 3 * time.Minute
)

// Client is a council backend client. It is safe for concurrent use.
type Client struct {
	baseURL           string
	httpClient        *http.Client
	requestTimeout    time.Duration
	streamIdleTimeout time.Duration
	maxLineBytes      int
	logger            *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client. Its Timeout must be zero
// for streams to outlive it.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRequestTimeout bounds each non-streaming call. Zero disables it.
func WithRequestTimeout(d time.Duration) Option {
	return func(c *Client) { c.requestTimeout = d }
}

// WithStreamIdleTimeout aborts a stream when no bytes arrive for d.
// Zero disables it.
func WithStreamIdleTimeout(d time.Duration) Option {
	return func(c *Client) { c.streamIdleTimeout = d }
}

// WithMaxLineBytes caps a single line of an event stream.
func WithMaxLineBytes(n int) Option {
	return func(c *Client) { c.maxLineBytes = n }
}

// WithLogger sets the client logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New returns a client for the backend at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing backend URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("backend URL %q: scheme must be http or https", baseURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("backend URL %q: missing host", baseURL)
	}

	c := &Client{
		baseURL:           strings.TrimRight(baseURL, "/"),
		httpClient:        &http.Client{},
		requestTimeout:    DefaultRequestTimeout,
		streamIdleTimeout: DefaultStreamIdleTimeout,
		maxLineBytes:      sse.DefaultMaxLineBytes,
		logger:            logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the backend URL without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ListConversations returns the conversations of a device, newest first as
// ordered by the backend.
func (c *Client) ListConversations(ctx context.Context, deviceID string) ([]council.ConversationMeta, error) {
	path := "/api/conversations?device_id=" + url.QueryEscape(deviceID)

	var metas []wireConversationMeta
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &metas); err != nil {
		return nil, fmt.Errorf("listing conversations: %w", err)
	}

	out := make([]council.ConversationMeta, 0, len(metas))
	for _, m := range metas {
		out = append(out, m.toMeta())
	}
	return out, nil
}

// CreateConversation starts an empty conversation owned by deviceID.
func (c *Client) CreateConversation(ctx context.Context, deviceID string) (council.Conversation, error) {
	body := map[string]string{"device_id": deviceID}

	var conv wireConversation
	if err := c.doJSON(ctx, http.MethodPost, "/api/conversations", body, &conv); err != nil {
		return council.Conversation{}, fmt.Errorf("creating conversation: %w", err)
	}
	return conv.toConversation(), nil
}

// GetConversation fetches a conversation with its full history. Every
// returned message is finished.
func (c *Client) GetConversation(ctx context.Context, id string) (council.Conversation, error) {
	var conv wireConversation
	if err := c.doJSON(ctx, http.MethodGet, conversationPath(id), nil, &conv); err != nil {
		return council.Conversation{}, fmt.Errorf("getting conversation %s: %w", id, err)
	}
	return conv.toConversation(), nil
}

// SendMessage posts content and waits for the whole council answer,
// returned as a finished assistant message.
func (c *Client) SendMessage(ctx context.Context, id, content string) (council.Message, error) {
	body := map[string]string{"content": content}

	var res wireSendResult
	if err := c.doJSON(ctx, http.MethodPost, conversationPath(id)+"/message", body, &res); err != nil {
		return council.Message{}, fmt.Errorf("sending message: %w", err)
	}
	return res.toMessage(), nil
}

func conversationPath(id string) string {
	return "/api/conversations/" + url.PathEscape(id)
}

// doJSON performs a request bounded by the request timeout and decodes a
// successful JSON response into out.
func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	if c.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.requestTimeout)
		defer cancel()
	}

	resp, err := c.do(ctx, method, path, in, "application/json")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// do sends the request and returns the response when its status is 2xx.
// Any other status is returned as a *StatusError with the body consumed.
func (c *Client) do(ctx context.Context, method, path string, in any, accept string) (*http.Response, error) {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("User-Agent", utils.UserAgent())

	c.logger.Debug("backend request", "method", method, "path", path)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.classify(ctx, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, newStatusError(resp)
	}
	return resp, nil
}
