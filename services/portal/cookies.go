package portal

import (
	"net/http"
	"time"
)

// Cookies is the request/response cookie layer an operation runs against.
// Get reads the inbound request; Set queues a Set-Cookie on the response.
type Cookies interface {
	Get(name string) (string, bool)
	Set(cookie *http.Cookie)
}

// HTTPCookies adapts a plain net/http request and response writer.
type HTTPCookies struct {
	Request *http.Request
	Writer  http.ResponseWriter
}

func (h HTTPCookies) Get(name string) (string, bool) {
	c, err := h.Request.Cookie(name)
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}

func (h HTTPCookies) Set(cookie *http.Cookie) {
	http.SetCookie(h.Writer, cookie)
}

func (s *Service) setSessionCookie(cookies Cookies, token string, now time.Time) {
	cookies.Set(&http.Cookie{
		Name:     s.cookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.sessionDuration / time.Second),
		Expires:  now.Add(s.sessionDuration),
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteStrictMode,
	})
}

func (s *Service) clearSessionCookie(cookies Cookies) {
	cookies.Set(&http.Cookie{
		Name:     s.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteStrictMode,
	})
}
