// Package client talks to the portfolio server and implements the remote
// interfaces the gallery layer consumes.
package client

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
	"sync"
	"time"

	"portfolio/internal/logging"
	"portfolio/internal/models"
)

var ErrStatus = errors.New("unexpected status")

// StatusError carries the server's error message for a non-2xx response.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("status %d", e.Code)
	}
	return e.Message
}

func (e *StatusError) Is(target error) bool {
	return target == ErrStatus
}

// Client holds the server address and the signed-in session. Documents,
// Objects and Auth expose it through the gallery's interfaces.
type Client struct {
	base *url.URL
	http *http.Client
	log  logging.Logger

	mu        sync.RWMutex
	token     string
	user      *models.User
	nextL     int
	listeners map[int]func(*models.User)
}

func New(baseURL string, log logging.Logger) (*Client, error) {
	const op = "client.New"

	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%s: unsupported scheme %q", op, u.Scheme)
	}
	if log == nil {
		log = logging.Discard()
	}
	return &Client{
		base:      u,
		http:      &http.Client{Timeout: 60 * time.Second},
		log:       log,
		listeners: make(map[int]func(*models.User)),
	}, nil
}

// resolve turns a server path or a relative locator into an absolute URL.
func (c *Client) resolve(ref string) (string, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return "", err
	}
	return c.base.ResolveReference(u).String(), nil
}

func (c *Client) authHeader() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.token == "" {
		return ""
	}
	return "Bearer " + c.token
}

// do sends a request and decodes a JSON response into out when out is set.
func (c *Client) do(ctx context.Context, method, ref string, body io.Reader, contentType string, out any) error {
	target, err := c.resolve(ref)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if h := c.authHeader(); h != "" {
		req.Header.Set("Authorization", h)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeStatus(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func decodeStatus(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if json.Unmarshal(raw, &body) != nil || body.Error == "" {
		body.Error = strings.TrimSpace(string(raw))
	}
	return &StatusError{Code: resp.StatusCode, Message: body.Error}
}

func (c *Client) doJSON(ctx context.Context, method, ref string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(payload)
	}
	return c.do(ctx, method, ref, body, "application/json", out)
}

// Fetch downloads a preview locator. Relative locators resolve against the
// server address.
func (c *Client) Fetch(ctx context.Context, locator string) ([]byte, error) {
	const op = "client.Fetch"

	target, err := c.resolve(locator)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: %w", op, decodeStatus(resp))
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return data, nil
}
