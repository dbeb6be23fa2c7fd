// Package beeapi talks to the remote conversation service.
package beeapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/liut/beeview/pkg/models/convo"
)

const (
	// DefaultPageSize of the list endpoint
	DefaultPageSize = 15

	maxBodySize    = 5 * 1024 * 1024
	maxMessageSize = 200
	headerKey      = "x-api-key"
	userPath       = "/v1/me/conversations"
)

// Client is the remote conversation service.
type Client interface {
	ListConversations(ctx context.Context, apiKey string, page int) (*convo.Page, error)
	GetConversation(ctx context.Context, apiKey string, id int64) (*convo.Conversation, error)
	DeleteConversation(ctx context.Context, apiKey string, id int64) error
}

// Config ...
type Config struct {
	BaseURL  string
	PageSize int
	Timeout  time.Duration

	HTTPClient *http.Client
}

type client struct {
	base     *url.URL
	pageSize int
	hc       *http.Client
}

var _ Client = (*client)(nil)

// New returns a Client for the service at cfg.BaseURL.
func New(cfg Config) (Client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil || len(base.Host) == 0 {
		return nil, fmt.Errorf("invalid base url %q", cfg.BaseURL)
	}
	c := &client{base: base, pageSize: cfg.PageSize, hc: cfg.HTTPClient}
	if c.pageSize <= 0 {
		c.pageSize = DefaultPageSize
	}
	if c.hc == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 30 * time.Second
		}
		c.hc = &http.Client{
			Timeout:   timeout,
			Transport: &loggingRoundTripper{inner: http.DefaultTransport},
		}
	}
	return c, nil
}

type detailResult struct {
	Conversation *convo.Conversation `json:"conversation"`
}

func (c *client) ListConversations(ctx context.Context, apiKey string, page int) (*convo.Page, error) {
	if page < 1 {
		page = 1
	}
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(c.pageSize))

	p := new(convo.Page)
	if err := c.call(ctx, http.MethodGet, apiKey, userPath, q, p); err != nil {
		return nil, err
	}
	if p.CurrentPage < 1 {
		p.CurrentPage = page
	}
	if p.TotalPages < 1 {
		p.TotalPages = 1
	}
	logger().Debugw("listed conversations", "page", p.CurrentPage, "total", p.TotalPages, "size", len(p.Conversations))
	return p, nil
}

func (c *client) GetConversation(ctx context.Context, apiKey string, id int64) (*convo.Conversation, error) {
	var res detailResult
	if err := c.call(ctx, http.MethodGet, apiKey, c.itemPath(id), nil, &res); err != nil {
		return nil, err
	}
	if res.Conversation == nil {
		return nil, &RemoteError{StatusCode: http.StatusOK, Message: "response has no conversation"}
	}
	return res.Conversation, nil
}

func (c *client) DeleteConversation(ctx context.Context, apiKey string, id int64) error {
	return c.call(ctx, http.MethodDelete, apiKey, c.itemPath(id), nil, nil)
}

func (c *client) itemPath(id int64) string {
	return userPath + "/" + strconv.FormatInt(id, 10)
}

func (c *client) call(ctx context.Context, method, apiKey, relPath string, query url.Values, out any) error {
	if len(strings.TrimSpace(apiKey)) == 0 {
		return &AuthError{}
	}
	u := *c.base
	u.Path = path.Join(u.Path, relPath)
	if query != nil {
		u.RawQuery = query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), nil)
	if err != nil {
		return err
	}
	req.Header.Set(headerKey, apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return &NetworkError{Op: method + " " + relPath, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return &NetworkError{Op: "read " + relPath, Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return &AuthError{StatusCode: resp.StatusCode}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return &RemoteError{StatusCode: resp.StatusCode, Message: remoteMessage(body)}
	}

	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", relPath, err)
	}
	return nil
}

func remoteMessage(body []byte) string {
	var m struct {
		Error   any    `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &m); err == nil {
		if s, ok := m.Error.(string); ok && len(s) > 0 {
			return s
		}
		if len(m.Message) > 0 {
			return m.Message
		}
	}
	s := strings.TrimSpace(string(body))
	if len(s) > maxMessageSize {
		n := maxMessageSize
		for n > 0 && !utf8.RuneStart(s[n]) {
			n--
		}
		s = s[:n]
	}
	return s
}

// IsAuth ...
func IsAuth(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}

// IsNetwork ...
func IsNetwork(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

// loggingRoundTripper logs every outbound call; the api key header is never logged.
type loggingRoundTripper struct {
	inner http.RoundTripper
}

func (l *loggingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := l.inner.RoundTrip(req)
	if err != nil {
		logger().Infow("bee request fail", "method", req.Method, "path", req.URL.Path,
			"duration", time.Since(start), "err", err)
		return nil, err
	}
	logger().Debugw("bee request", "method", req.Method, "path", req.URL.Path,
		"query", req.URL.RawQuery, "status", resp.StatusCode, "duration", time.Since(start))
	return resp, nil
}

func logger() *zap.SugaredLogger {
	return zap.S()
}
