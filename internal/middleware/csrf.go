package middleware

// csrf.go implements the anti-forgery guard: a double-submit token held in
// an HttpOnly cookie and echoed back by the browser in a request header on
// every mutating call. Issuance is gated by a same-origin check so that a
// cross-origin page cannot obtain a token in the first place.

import (
	"crypto/subtle"
	"net/http"
	"net/url"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/clustershield/clustershield/internal/utils"
)

// CSRFCookieName holds the token cookie; CSRFHeaderName is the request
// header mutating calls must echo it in.
const (
	CSRFCookieName = "csrf_token"
	CSRFHeaderName = "X-CSRF-Token"
)

// CSRFToken returns the handler for the token issuance endpoint. If the
// browser already holds a token it is returned unchanged, otherwise a
// fresh 256-bit random hex token is minted and set. Cross-origin requests
// receive a uniform 404 — the endpoint behaves as if it does not exist, so
// probes learn nothing.
func CSRFToken(secure bool) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !sameOrigin(c.Request()) {
			return echo.NewHTTPError(http.StatusNotFound)
		}

		token := ""
		if cookie, err := c.Cookie(CSRFCookieName); err == nil && cookie.Value != "" {
			token = cookie.Value
		} else {
			t, err := utils.RandomHex(32) // 32 bytes -> 256-bit token
			if err != nil {
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token generation failed"})
			}
			token = t
		}

		c.SetCookie(&http.Cookie{
			Name:     CSRFCookieName,
			Value:    token,
			Path:     "/",
			HttpOnly: true,
			Secure:   secure,
			SameSite: http.SameSiteStrictMode,
			MaxAge:   int((30 * 24 * time.Hour).Seconds()),
		})
		return c.JSON(http.StatusOK, echo.Map{"csrf_token": token})
	}
}

// CSRFVerify returns a middleware enforcing the double-submit check on
// mutating methods. Reads pass through untouched. A missing or mismatched
// pair yields 403 and the handler is never invoked, so no state changes.
func CSRFVerify() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			switch c.Request().Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				return next(c)
			}
			cookie, err := c.Cookie(CSRFCookieName)
			if err != nil || cookie.Value == "" {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			header := c.Request().Header.Get(CSRFHeaderName)
			if !VerifyToken(header, cookie.Value) {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			return next(c)
		}
	}
}

// VerifyToken compares the header and cookie tokens in constant time. The
// length check runs first; equal-length values then go through an
// XOR-accumulating byte comparison so the comparison duration leaks
// nothing about where a mismatch occurs.
func VerifyToken(requestToken, cookieToken string) bool {
	if requestToken == "" || cookieToken == "" {
		return false
	}
	if len(requestToken) != len(cookieToken) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(requestToken), []byte(cookieToken)) == 1
}

// sameOrigin reports whether the request's Origin (or, failing that,
// Referer) names the same host the request was served on. Requests with
// neither header are treated as same-origin: non-browser clients do not
// send them and are not CSRF targets.
func sameOrigin(r *http.Request) bool {
	ref := r.Header.Get("Origin")
	if ref == "" {
		ref = r.Header.Get("Referer")
	}
	if ref == "" {
		return true
	}
	u, err := url.Parse(ref)
	if err != nil {
		return false
	}
	return u.Host == r.Host
}
