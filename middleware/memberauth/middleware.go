package memberauth

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/tech-arch1tect/gymportal/services/portal"
)

const SessionKey = "_member_session"

type Authenticator interface {
	GetAuthenticatedMember(ctx context.Context, cookies portal.Cookies, gymSlug string) (*portal.MemberSession, error)
}

type echoCookies struct {
	c echo.Context
}

// Cookies adapts an echo request/response pair to portal.Cookies.
func Cookies(c echo.Context) portal.Cookies {
	return echoCookies{c: c}
}

func (e echoCookies) Get(name string) (string, bool) {
	cookie, err := e.c.Cookie(name)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}

func (e echoCookies) Set(cookie *http.Cookie) {
	e.c.SetCookie(cookie)
}

// RequireMember verifies the session cookie against the :slug route
// parameter and stores the session under SessionKey.
func RequireMember(auth Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sess, err := auth.GetAuthenticatedMember(c.Request().Context(), Cookies(c), c.Param("slug"))
			if err != nil {
				return c.JSON(StatusCode(err), map[string]any{
					"success": false,
					"error":   ErrorMessage(err),
				})
			}

			c.Set(SessionKey, sess)
			return next(c)
		}
	}
}

func GetSession(c echo.Context) *portal.MemberSession {
	if sess, ok := c.Get(SessionKey).(*portal.MemberSession); ok {
		return sess
	}
	return nil
}

func StatusCode(err error) int {
	switch portal.KindOf(err) {
	case portal.KindNotFound:
		return http.StatusNotFound
	case portal.KindRateLimited:
		return http.StatusTooManyRequests
	case portal.KindInvalidCredentials, portal.KindNotAuthenticated, portal.KindSessionExpired:
		return http.StatusUnauthorized
	case portal.KindInvalidSession:
		return http.StatusForbidden
	case portal.KindInvalidInput:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// ErrorMessage returns the member-facing message, never the wrapped cause.
func ErrorMessage(err error) string {
	var perr *portal.Error
	if errors.As(err, &perr) && perr.Message != "" {
		return perr.Message
	}
	return portal.MsgUnexpected
}
