package lsdebug

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/tv42/httpunix"
)

// Client queries an [HTTPServer].
type Client struct {
	c    *http.Client
	base string
}

// NewTCPClient returns a client for a server listening on addr (host:port).
func NewTCPClient(addr string) *Client {
	return &Client{
		c:    &http.Client{Timeout: 5 * time.Second},
		base: "http://" + addr,
	}
}

// NewUnixClient returns a client for a server listening on a unix socket.
func NewUnixClient(socketPath string) *Client {
	const loc = "lockstep"

	t := &httpunix.Transport{
		DialTimeout:           time.Second,
		RequestTimeout:        5 * time.Second,
		ResponseHeaderTimeout: 5 * time.Second,
	}
	t.RegisterLocation(loc, socketPath)

	return &Client{
		c:    &http.Client{Transport: t},
		base: httpunix.Scheme + "://" + loc,
	}
}

// Status fetches /status.
func (c *Client) Status(ctx context.Context) ([]StatusEntry, error) {
	var out []StatusEntry
	err := c.get(ctx, "/status", &out)
	return out, err
}

// Rounds fetches /rounds.
func (c *Client) Rounds(ctx context.Context) ([]RoundEntry, error) {
	var out []RoundEntry
	err := c.get(ctx, "/rounds", &out)
	return out, err
}

func (c *Client) get(ctx context.Context, path string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.c.Do(req)
	if err != nil {
		return fmt.Errorf("failed to request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("request %s returned %s", path, resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}
