package signaling

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/BioHazard786/SpaceLink/cli/internal/dns"
	"github.com/BioHazard786/SpaceLink/cli/internal/link"
)

const maxResponseSize = 1 << 20

// Client performs the two signaling round trips against a host.
type Client struct {
	httpClient *http.Client
	timeout    time.Duration
	logger     *slog.Logger
}

// NewClient creates a signaling client whose calls are each bounded by
// timeout.
func NewClient(timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         dns.DialContext,
		TLSHandshakeTimeout: timeout,
		MaxIdleConns:        4,
		IdleConnTimeout:     30 * time.Second,
	}
	return &Client{
		httpClient: &http.Client{Transport: transport},
		timeout:    timeout,
		logger:     logger.With("module", "signaling"),
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// BaseURL turns a user supplied server address ("10.0.0.5:8000",
// "https://host/prefix/") into the base the endpoint paths are appended to.
func BaseURL(server string) (string, error) {
	server = strings.TrimSpace(server)
	if server == "" {
		return "", fmt.Errorf("server address cannot be empty")
	}
	if !strings.Contains(server, "://") {
		server = "http://" + server
	}

	u, err := url.Parse(server)
	if err != nil {
		return "", fmt.Errorf("invalid server address: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("server address %q has no host", server)
	}
	u.RawQuery = ""
	u.Fragment = ""
	return strings.TrimSuffix(u.String(), "/"), nil
}

// RequestOffer asks the host to open a peer session and returns its offer
// together with the session identifier it issued.
func (c *Client) RequestOffer(ctx context.Context, server string) (*OfferResponse, error) {
	var resp OfferResponse
	if err := c.do(ctx, http.MethodPost, server, PathOffer, struct{}{}, &resp); err != nil {
		return nil, err
	}

	if resp.Error != "" {
		return nil, link.WrapError("request offer", link.ErrSignalingRejected, resp.Error)
	}
	if resp.SessionID == "" {
		return nil, link.WrapError("request offer", link.ErrSignalingMalformedResponse, "missing sessionId")
	}
	if resp.Offer == nil {
		return nil, link.WrapError("request offer", link.ErrSignalingMalformedResponse, "missing offer")
	}
	if err := resp.Offer.Validate(link.SDPTypeOffer); err != nil {
		return nil, err
	}

	c.logger.Debug("offer received", "session", resp.SessionID)
	return &resp, nil
}

// SubmitAnswer sends the local answer for sessionID back to the host.
func (c *Client) SubmitAnswer(ctx context.Context, server, sessionID string, answer link.SessionDescription) error {
	req := AnswerRequest{SessionID: sessionID, Answer: answer}

	var resp AnswerResponse
	if err := c.do(ctx, http.MethodPost, server, PathAnswer, req, &resp); err != nil {
		return err
	}
	if resp.Error != "" {
		return link.WrapError("submit answer", link.ErrSignalingRejected, resp.Error)
	}

	c.logger.Debug("answer accepted", "session", sessionID, "status", resp.Status)
	return nil
}

// PostJSON sends body to another endpoint of the host's HTTP API and decodes
// the reply into out, with the same timeout and error mapping as signaling.
func (c *Client) PostJSON(ctx context.Context, server, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, server, path, body, out)
}

// GetJSON fetches path from the host's HTTP API into out.
func (c *Client) GetJSON(ctx context.Context, server, path string, out any) error {
	return c.do(ctx, http.MethodGet, server, path, nil, out)
}

func (c *Client) do(ctx context.Context, method, server, path string, body, out any) error {
	op := method + " " + path

	base, err := BaseURL(server)
	if err != nil {
		return link.NewError(op, err)
	}

	var payload io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return link.NewError(op, err)
		}
		payload = bytes.NewReader(data)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, base+path, payload)
	if err != nil {
		return link.NewError(op, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	res, err := c.httpClient.Do(req)
	if err != nil {
		return classify(ctx, op, err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(io.LimitReader(res.Body, maxResponseSize))
	if err != nil {
		return classify(ctx, op, err)
	}
	c.logger.Debug("host round trip", "method", method, "path", path, "status", res.StatusCode, "elapsed", time.Since(start))

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return link.WrapError(op, link.ErrSignalingRejected, fmt.Sprintf("status %d: %s", res.StatusCode, snippet(data)))
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return link.Cause(op, link.ErrSignalingMalformedResponse, err)
	}
	return nil
}

// classify maps transport errors onto the signaling taxonomy. A cancelled
// parent context is passed through untouched.
func classify(ctx context.Context, op string, err error) error {
	if errors.Is(err, context.Canceled) && !errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return link.Cause(op, link.ErrSignalingTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return link.Cause(op, link.ErrSignalingTimeout, err)
	}
	return link.Cause(op, link.ErrSignalingUnavailable, err)
}

func snippet(data []byte) string {
	s := strings.TrimSpace(string(data))
	if len(s) > 120 {
		s = s[:120] + "..."
	}
	return s
}
