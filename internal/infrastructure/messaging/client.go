// Package messaging is the JSON-over-HTTP adapter for the remote messaging
// service. Every call is a single attempt bound to the caller's context and
// the client timeout; nothing is retried.
package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sieapi/gateway/internal/metrics"
	"github.com/sieapi/gateway/internal/core/domain"
	"github.com/sieapi/gateway/internal/core/ports"
)

const (
	defaultTimeout = 15 * time.Second
	// maxBodySize caps how much of a remote response is read.
	maxBodySize = 4 << 20
)

// Config captures the remote service location and call timeout.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client implements ports.MessagingClient.
type Client struct {
	baseURL string
	http    *http.Client
}

var _ ports.MessagingClient = (*Client)(nil)

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// envelope is the part of every remote response the gateway interprets.
type envelope struct {
	Success *bool           `json:"success"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
	Status  json.RawMessage `json:"status"`
}

type statusPayload struct {
	Connected *bool `json:"connected"`
}

// Status reports whether the session is connected. A reply that is not an
// explicit success carrying status.connected is an error, so callers never
// mistake an unreadable answer for a disconnected session.
func (c *Client) Status(ctx context.Context, s ports.Session) (bool, error) {
	body, err := c.get(ctx, "status", "/status/"+url.PathEscape(s.ID), s.Type)
	if err != nil {
		return false, err
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return false, &domain.UpstreamError{Op: "status", Message: "undecodable status response", Err: err}
	}
	if env.Success == nil || !*env.Success {
		return false, &domain.UpstreamError{Op: "status", Message: "status response without success"}
	}
	var st statusPayload
	if len(env.Status) == 0 || json.Unmarshal(env.Status, &st) != nil || st.Connected == nil {
		return false, &domain.UpstreamError{Op: "status", Message: "status response without status.connected"}
	}
	return *st.Connected, nil
}

func (c *Client) Init(ctx context.Context, s ports.Session) error {
	_, err := c.post(ctx, "init", map[string]any{
		"sessionId": s.ID,
		"type":      s.Type,
	})
	return err
}

func (c *Client) SendMessage(ctx context.Context, s ports.Session, to, message string) error {
	_, err := c.post(ctx, "send-message", map[string]any{
		"sessionId": s.ID,
		"to":        to,
		"message":   message,
		"type":      s.Type,
	})
	return err
}

func (c *Client) SendMedia(ctx context.Context, s ports.Session, m ports.MediaMessage) error {
	_, err := c.post(ctx, "send-media", map[string]any{
		"sessionId": s.ID,
		"to":        m.To,
		"mediaUrl":  m.MediaURL,
		"caption":   m.Caption,
		"mediaType": m.MediaType,
		"type":      s.Type,
	})
	return err
}

func (c *Client) MentionAll(ctx context.Context, s ports.Session, groupID, message string, anonymous bool) error {
	_, err := c.post(ctx, "mention-all", map[string]any{
		"sessionId": s.ID,
		"groupId":   groupID,
		"message":   message,
		"anonymous": anonymous,
		"type":      s.Type,
	})
	return err
}

func (c *Client) Contacts(ctx context.Context, s ports.Session) (json.RawMessage, error) {
	return c.get(ctx, "contacts", "/contacts/"+url.PathEscape(s.ID), s.Type)
}

func (c *Client) Chats(ctx context.Context, s ports.Session) (json.RawMessage, error) {
	return c.get(ctx, "chats", "/chats/"+url.PathEscape(s.ID), s.Type)
}

func (c *Client) BlockContact(ctx context.Context, s ports.Session, contactID string) error {
	_, err := c.post(ctx, "block-contact", map[string]any{
		"sessionId": s.ID,
		"contactId": contactID,
		"type":      s.Type,
	})
	return err
}

func (c *Client) UnblockContact(ctx context.Context, s ports.Session, contactID string) error {
	_, err := c.post(ctx, "unblock-contact", map[string]any{
		"sessionId": s.ID,
		"contactId": contactID,
		"type":      s.Type,
	})
	return err
}

func (c *Client) SetWebhook(ctx context.Context, s ports.Session, w ports.Webhook) error {
	_, err := c.post(ctx, "set-webhook", map[string]any{
		"sessionId":    s.ID,
		"url":          w.URL,
		"ignoreGroups": w.IgnoreGroups,
	})
	return err
}

func (c *Client) Logout(ctx context.Context, s ports.Session) error {
	_, err := c.post(ctx, "logout", map[string]any{"sessionId": s.ID})
	return err
}

func (c *Client) get(ctx context.Context, op, path string, typ domain.InstanceType) (json.RawMessage, error) {
	u := c.baseURL + path
	if typ != "" {
		u += "?" + url.Values{"type": {string(typ)}}.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &domain.UpstreamError{Op: op, Message: err.Error(), Err: err}
	}
	return c.do(op, req)
}

func (c *Client) post(ctx context.Context, op string, payload map[string]any) (json.RawMessage, error) {
	buf, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%s: encode request: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+op, bytes.NewReader(buf))
	if err != nil {
		return nil, &domain.UpstreamError{Op: op, Message: err.Error(), Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(op, req)
}

// do executes req and classifies the result. A call succeeds only with a 2xx
// status and a body that does not carry "success": false.
func (c *Client) do(op string, req *http.Request) (json.RawMessage, error) {
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.UpstreamRequestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.UpstreamRequestsTotal.WithLabelValues(op, "unreachable").Inc()
		return nil, &domain.UpstreamError{Op: op, Message: transportMessage(err), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		metrics.UpstreamRequestsTotal.WithLabelValues(op, "unreachable").Inc()
		return nil, &domain.UpstreamError{Op: op, Message: "read response: " + err.Error(), Err: err}
	}

	var env envelope
	decodeErr := json.Unmarshal(body, &env)
	rejected := env.Success != nil && !*env.Success
	if resp.StatusCode < 200 || resp.StatusCode > 299 || rejected {
		metrics.UpstreamRequestsTotal.WithLabelValues(op, "rejected").Inc()
		return nil, &domain.UpstreamError{Op: op, Status: resp.StatusCode, Message: remoteMessage(env, decodeErr, resp.Status)}
	}

	metrics.UpstreamRequestsTotal.WithLabelValues(op, "ok").Inc()
	if decodeErr != nil {
		return json.RawMessage(`{}`), nil
	}
	return json.RawMessage(body), nil
}

func remoteMessage(env envelope, decodeErr error, status string) string {
	switch {
	case decodeErr == nil && env.Error != "":
		return env.Error
	case decodeErr == nil && env.Message != "":
		return env.Message
	default:
		return status
	}
}

func transportMessage(err error) string {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		if uerr.Timeout() {
			return "request timed out"
		}
		return uerr.Err.Error()
	}
	return err.Error()
}
