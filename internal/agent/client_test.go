package agent

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testClient returns a Client pointed at the httptest server's port.
func testClient(t *testing.T, ts *httptest.Server) (*Client, string) {
	host, port, err := net.SplitHostPort(ts.Listener.Addr().String())
	require.NoError(t, err)
	return New(port, 2*time.Second, 2*time.Second), host
}

func TestClient_Install(t *testing.T) {
	t.Run("parses JSON embedded in warm-up noise", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/install", r.URL.Path)
			var req InstallRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "edge", req.ClusterName)
			_, _ = w.Write([]byte("Warming up...\n{\"success\":true,\"port\":8443,\"login\":{\"username\":\"u\",\"password\":\"p\"}}"))
		}))
		defer ts.Close()
		c, host := testClient(t, ts)

		res, err := c.Install(context.Background(), host, InstallRequest{ClusterName: "edge", Domain: "edge.example.com"})

		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.Equal(t, 8443, res.Port)
		require.NotNil(t, res.Login)
		assert.Equal(t, "u", res.Login.Username)
		assert.Equal(t, "p", res.Login.Password)
	})

	t.Run("explicit failure maps to ErrRejected", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"success":false,"message":"disk full"}`))
		}))
		defer ts.Close()
		c, host := testClient(t, ts)

		res, err := c.Install(context.Background(), host, InstallRequest{})

		assert.ErrorIs(t, err, ErrRejected)
		assert.Equal(t, "disk full", res.Message)
	})

	t.Run("body without JSON maps to ErrBadResponse", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("502 Bad Gateway"))
		}))
		defer ts.Close()
		c, host := testClient(t, ts)

		_, err := c.Install(context.Background(), host, InstallRequest{})

		assert.ErrorIs(t, err, ErrBadResponse)
	})

	t.Run("dead node maps to ErrUnreachable", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		c, host := testClient(t, ts)
		ts.Close() // nothing listening anymore

		_, err := c.Install(context.Background(), host, InstallRequest{})

		assert.ErrorIs(t, err, ErrUnreachable)
	})

	t.Run("wedged node times out as ErrUnreachable", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(2 * time.Second)
		}))
		defer ts.Close()
		host, port, err := net.SplitHostPort(ts.Listener.Addr().String())
		require.NoError(t, err)
		c := New(port, 100*time.Millisecond, 100*time.Millisecond)

		_, err = c.Install(context.Background(), host, InstallRequest{})

		assert.ErrorIs(t, err, ErrUnreachable)
	})
}

func TestClient_Ops(t *testing.T) {
	t.Run("status proxies GET and returns the agent status", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodGet, r.Method)
			assert.Equal(t, "/status/edge.example.com", r.URL.Path)
			_, _ = w.Write([]byte(`{"success":true,"status":"running"}`))
		}))
		defer ts.Close()
		c, host := testClient(t, ts)

		res, err := c.Status(context.Background(), host, "edge.example.com")

		require.NoError(t, err)
		assert.Equal(t, "running", res.Status)
	})

	t.Run("start and stop proxy POST", func(t *testing.T) {
		var gotPaths []string
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			gotPaths = append(gotPaths, r.URL.Path)
			_, _ = w.Write([]byte(`{"success":true,"message":"ok"}`))
		}))
		defer ts.Close()
		c, host := testClient(t, ts)

		_, err := c.Start(context.Background(), host, "edge.example.com")
		require.NoError(t, err)
		_, err = c.Stop(context.Background(), host, "edge.example.com")
		require.NoError(t, err)

		assert.Equal(t, []string{"/start/edge.example.com", "/stop/edge.example.com"}, gotPaths)
	})
}

func TestFirstObject(t *testing.T) {
	t.Run("plain object", func(t *testing.T) {
		span, ok := firstObject([]byte(`{"a":1}`))
		require.True(t, ok)
		assert.Equal(t, `{"a":1}`, string(span))
	})

	t.Run("object surrounded by noise", func(t *testing.T) {
		span, ok := firstObject([]byte("boot log\n{\"a\":1}\ntrailer"))
		require.True(t, ok)
		assert.Equal(t, `{"a":1}`, string(span))
	})

	t.Run("braces inside strings do not close the span", func(t *testing.T) {
		body := `noise {"msg":"brace } inside","esc":"quote \" and {"} tail`
		span, ok := firstObject([]byte(body))
		require.True(t, ok)
		assert.Equal(t, `{"msg":"brace } inside","esc":"quote \" and {"}`, string(span))
	})

	t.Run("nested objects stay balanced", func(t *testing.T) {
		span, ok := firstObject([]byte(`x {"a":{"b":2}} y`))
		require.True(t, ok)
		assert.Equal(t, `{"a":{"b":2}}`, string(span))
	})

	t.Run("no object found", func(t *testing.T) {
		_, ok := firstObject([]byte("plain text"))
		assert.False(t, ok)
	})

	t.Run("unterminated object", func(t *testing.T) {
		_, ok := firstObject([]byte(`{"a":1`))
		assert.False(t, ok)
	})
}
