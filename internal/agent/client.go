// Package agent speaks the HTTP protocol of the remote provisioning agents.
// One agent runs on every fleet server and actually installs, starts, stops
// and reports on clusters. The agent is an untrusted peer: its responses
// are treated as arbitrary text that may contain a JSON object somewhere
// inside it, and every call carries a bounded timeout so a wedged node can
// never pin a request-handling goroutine.
package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

// ErrUnreachable covers transport failures and timeouts talking to an
// agent. ErrBadResponse covers bodies from which no JSON object could be
// recovered. ErrRejected means the agent answered well-formed JSON with
// success=false. Handlers map all three to generic upstream errors; agent
// internals never reach end users.
var (
	ErrUnreachable = errors.New("agent unreachable")
	ErrBadResponse = errors.New("agent returned malformed response")
	ErrRejected    = errors.New("agent rejected operation")
)

// Client calls the agent endpoint on a given server. Port is normally 9000
// and is configurable for tests.
type Client struct {
	Port           string
	InstallTimeout time.Duration
	OpTimeout      time.Duration
}

// New returns a Client with the given port and timeouts. Zero values fall
// back to the protocol defaults.
func New(port string, installTimeout, opTimeout time.Duration) *Client {
	if port == "" {
		port = "9000"
	}
	if installTimeout <= 0 {
		installTimeout = 120 * time.Second
	}
	if opTimeout <= 0 {
		opTimeout = 10 * time.Second
	}
	return &Client{Port: port, InstallTimeout: installTimeout, OpTimeout: opTimeout}
}

// InstallRequest is the payload of POST /install.
type InstallRequest struct {
	Firstname   string `json:"firstname"`
	Lastname    string `json:"lastname"`
	Email       string `json:"email"`
	ClusterName string `json:"cluster_name"`
	Domain      string `json:"domain"`
	Token       string `json:"token"`
	IPAddress   string `json:"ip_address"`
}

// Login carries the appliance credentials an agent returns on install.
type Login struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// InstallResult is the parsed install response.
type InstallResult struct {
	Success bool   `json:"success"`
	Port    int    `json:"port"`
	Login   *Login `json:"login"`
	Message string `json:"message"`
}

// OpResult is the parsed response of start/stop/status calls.
type OpResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// Install asks the agent on serverIP to provision a cluster. It returns
// ErrUnreachable on transport failure, ErrBadResponse when no JSON object
// can be extracted from the body, and ErrRejected when the agent reports
// success=false. Only a fully successful, parsed response returns nil.
func (c *Client) Install(ctx context.Context, serverIP string, req InstallRequest) (InstallResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return InstallResult{}, err
	}
	raw, err := c.do(ctx, c.InstallTimeout, http.MethodPost, c.url(serverIP, "/install"), bytes.NewReader(body))
	if err != nil {
		return InstallResult{}, err
	}
	var out InstallResult
	if err := parseEmbedded(raw, &out); err != nil {
		return InstallResult{}, err
	}
	if !out.Success {
		return out, ErrRejected
	}
	return out, nil
}

// Start proxies POST /start/{clusterURL}.
func (c *Client) Start(ctx context.Context, serverIP, clusterURL string) (OpResult, error) {
	return c.op(ctx, http.MethodPost, serverIP, "/start/"+clusterURL)
}

// Stop proxies POST /stop/{clusterURL}.
func (c *Client) Stop(ctx context.Context, serverIP, clusterURL string) (OpResult, error) {
	return c.op(ctx, http.MethodPost, serverIP, "/stop/"+clusterURL)
}

// Status proxies GET /status/{clusterURL}.
func (c *Client) Status(ctx context.Context, serverIP, clusterURL string) (OpResult, error) {
	return c.op(ctx, http.MethodGet, serverIP, "/status/"+clusterURL)
}

func (c *Client) op(ctx context.Context, method, serverIP, path string) (OpResult, error) {
	raw, err := c.do(ctx, c.OpTimeout, method, c.url(serverIP, path), nil)
	if err != nil {
		return OpResult{}, err
	}
	var out OpResult
	if err := parseEmbedded(raw, &out); err != nil {
		return OpResult{}, err
	}
	if !out.Success {
		return out, ErrRejected
	}
	return out, nil
}

func (c *Client) url(serverIP, path string) string {
	return fmt.Sprintf("http://%s%s", net.JoinHostPort(serverIP, c.Port), path)
}

func (c *Client) do(ctx context.Context, timeout time.Duration, method, url string, body io.Reader) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, ErrUnreachable
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, ErrUnreachable
	}
	return raw, nil
}

// parseEmbedded unmarshals the first balanced JSON object found in body
// into v. Agents are known to write warm-up noise around their JSON, so
// the body is never assumed to be pure JSON.
func parseEmbedded(body []byte, v any) error {
	span, ok := firstObject(body)
	if !ok {
		return ErrBadResponse
	}
	if err := json.Unmarshal(span, v); err != nil {
		return ErrBadResponse
	}
	return nil
}

// firstObject locates the first balanced {...} span in b. Brace counting
// is string-aware: braces inside JSON strings (including escaped quotes)
// do not affect depth.
func firstObject(b []byte) ([]byte, bool) {
	start := bytes.IndexByte(b, '{')
	if start < 0 {
		return nil, false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(b); i++ {
		ch := b[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return b[start : i+1], true
			}
		}
	}
	return nil, false
}
