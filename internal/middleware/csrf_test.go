package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyToken(t *testing.T) {
	cases := []struct {
		name    string
		request string
		cookie  string
		want    bool
	}{
		{"matching tokens", "abc123", "abc123", true},
		{"empty request token", "", "abc123", false},
		{"empty cookie token", "abc123", "", false},
		{"both empty", "", "", false},
		{"length mismatch", "abc", "abc123", false},
		{"same length, different value", "abc124", "abc123", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, VerifyToken(tc.request, tc.cookie))
		})
	}
}

func TestCSRFToken(t *testing.T) {
	t.Run("same-origin request gets a fresh token and cookie", func(t *testing.T) {
		e := echo.New()
		req := httptest.NewRequest(http.MethodGet, "/v1/csrf", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		require.NoError(t, CSRFToken(false)(c))

		assert.Equal(t, http.StatusOK, rec.Code)
		var cookie *http.Cookie
		for _, ck := range rec.Result().Cookies() {
			if ck.Name == CSRFCookieName {
				cookie = ck
			}
		}
		require.NotNil(t, cookie)
		assert.Len(t, cookie.Value, 64)
		assert.True(t, cookie.HttpOnly)
		assert.Contains(t, rec.Body.String(), cookie.Value)
	})

	t.Run("existing token is reused, not rotated", func(t *testing.T) {
		e := echo.New()
		req := httptest.NewRequest(http.MethodGet, "/v1/csrf", nil)
		req.AddCookie(&http.Cookie{Name: CSRFCookieName, Value: "existing-token"})
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		require.NoError(t, CSRFToken(false)(c))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "existing-token")
	})

	t.Run("cross-origin request sees a plain 404", func(t *testing.T) {
		e := echo.New()
		req := httptest.NewRequest(http.MethodGet, "/v1/csrf", nil)
		req.Host = "api.example.com"
		req.Header.Set("Origin", "https://evil.example.net")
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		err := CSRFToken(false)(c)

		var he *echo.HTTPError
		require.ErrorAs(t, err, &he)
		assert.Equal(t, http.StatusNotFound, he.Code)
	})

	t.Run("cross-origin referer is also rejected", func(t *testing.T) {
		e := echo.New()
		req := httptest.NewRequest(http.MethodGet, "/v1/csrf", nil)
		req.Host = "api.example.com"
		req.Header.Set("Referer", "https://evil.example.net/page")
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		err := CSRFToken(false)(c)

		var he *echo.HTTPError
		require.ErrorAs(t, err, &he)
		assert.Equal(t, http.StatusNotFound, he.Code)
	})
}

func TestCSRFVerify(t *testing.T) {
	next := func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	}

	run := func(req *http.Request) *httptest.ResponseRecorder {
		e := echo.New()
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		require.NoError(t, CSRFVerify()(next)(c))
		return rec
	}

	t.Run("reads pass without any token", func(t *testing.T) {
		rec := run(httptest.NewRequest(http.MethodGet, "/v1/services", nil))
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("mutation without cookie is forbidden", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/services", nil)
		req.Header.Set(CSRFHeaderName, "tok")
		rec := run(req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("mutation without header is forbidden", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/services", nil)
		req.AddCookie(&http.Cookie{Name: CSRFCookieName, Value: "tok"})
		rec := run(req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("mutation with mismatched pair is forbidden", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/services", nil)
		req.AddCookie(&http.Cookie{Name: CSRFCookieName, Value: "tok"})
		req.Header.Set(CSRFHeaderName, "other")
		rec := run(req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("mutation with matching pair reaches the handler", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/services", nil)
		req.AddCookie(&http.Cookie{Name: CSRFCookieName, Value: "tok"})
		req.Header.Set(CSRFHeaderName, "tok")
		rec := run(req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})
}
