package ui

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"net/http"
	"strings"
	"time"

	gomponents "maragu.dev/gomponents"
	html "maragu.dev/gomponents/html"
)

// Double-submit token: the cookie and the form field (or header) must match.
const (
	csrfCookieName = "sdmx_csrf"
	csrfFieldName  = "csrf_token"
	csrfHeaderName = "X-CSRF-Token"
	csrfTokenBytes = 32
	csrfCookieTTL  = 12 * time.Hour
)

type csrfContextKey struct{}

// safeMethods never change state and skip the token check.
var safeMethods = map[string]bool{
	http.MethodGet:     true,
	http.MethodHead:    true,
	http.MethodOptions: true,
}

// EnsureCSRFToken issues the CSRF cookie when the client has none.
func (h *Handler) EnsureCSRFToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := cookieToken(r)
		if token == "" {
			token = newCSRFToken()
			http.SetCookie(w, h.csrfCookie(token))
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), csrfContextKey{}, token)))
	})
}

// RequireCSRF rejects unsafe requests whose token does not match the cookie.
func (h *Handler) RequireCSRF(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if safeMethods[r.Method] {
			next.ServeHTTP(w, r)
			return
		}
		if msg := checkCSRF(r); msg != "" {
			renderHTML(w, http.StatusForbidden, errorPage("Request rejected", msg))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// checkCSRF returns a user-facing reason when r fails the check, or "".
func checkCSRF(r *http.Request) string {
	want := cookieToken(r)
	if want == "" {
		return "Your session cookie is missing. Reload the page and submit the form again."
	}
	got := strings.TrimSpace(r.Header.Get(csrfHeaderName))
	if got == "" {
		_ = r.ParseForm()
		got = strings.TrimSpace(r.PostForm.Get(csrfFieldName))
	}
	if got == "" || subtle.ConstantTimeCompare([]byte(want), []byte(got)) != 1 {
		return "The form token is missing or stale. Reload the page and submit the form again."
	}
	return ""
}

func (h *Handler) csrfCookie(token string) *http.Cookie {
	return &http.Cookie{
		Name:     csrfCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(csrfCookieTTL / time.Second),
		HttpOnly: true,
		Secure:   h.Production,
		SameSite: http.SameSiteLaxMode,
	}
}

// csrfField is the hidden input every POST form carries.
func csrfField(r *http.Request) gomponents.Node {
	token, _ := r.Context().Value(csrfContextKey{}).(string)
	if token == "" {
		token = cookieToken(r)
	}
	return html.Input(html.Type("hidden"), html.Name(csrfFieldName), html.Value(token))
}

func cookieToken(r *http.Request) string {
	c, err := r.Cookie(csrfCookieName)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(c.Value)
}

func newCSRFToken() string {
	b := make([]byte, csrfTokenBytes)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}
