package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/tech-arch1tect/gymportal/middleware/memberauth"
	"github.com/tech-arch1tect/gymportal/services/logging"
	"github.com/tech-arch1tect/gymportal/services/portal"
	"go.uber.org/zap"
)

// PortalService is the subset of *portal.Service the handlers call.
type PortalService interface {
	GetGymBySlug(ctx context.Context, slug string) (*portal.GymSummary, error)
	CheckMemberPINStatus(ctx context.Context, email string, gymID uuid.UUID) (*portal.PINStatus, error)
	RequestPortalAccess(ctx context.Context, email string, gymID uuid.UUID) (*portal.AccessResult, error)
	SignInWithPIN(ctx context.Context, cookies portal.Cookies, email, pin, gymSlug string) (*portal.MemberSession, error)
	GetAuthenticatedMember(ctx context.Context, cookies portal.Cookies, gymSlug string) (*portal.MemberSession, error)
	GetAuthenticatedMemberInfo(ctx context.Context, cookies portal.Cookies, gymSlug string) (*portal.MemberInfo, error)
	SignOut(ctx context.Context, cookies portal.Cookies) error
}

type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

type EmailRequest struct {
	Email string `json:"email" doc:"Member email address"`
}

type SignInRequest struct {
	Email string `json:"email" doc:"Member email address"`
	PIN   string `json:"pin" doc:"Four digit portal PIN"`
}

const msgInvalidBody = "Invalid request body"

type PortalHandler struct {
	service PortalService
	logger  *logging.Service
}

func NewPortalHandler(service PortalService, logger *logging.Service) *PortalHandler {
	return &PortalHandler{
		service: service,
		logger:  logger,
	}
}

// GetGym handles GET /api/portal/:slug
func (h *PortalHandler) GetGym(c echo.Context) error {
	gym, err := h.service.GetGymBySlug(c.Request().Context(), c.Param("slug"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, Response{Success: true, Data: gym})
}

// PINStatus handles POST /api/portal/:slug/pin-status
func (h *PortalHandler) PINStatus(c echo.Context) error {
	var req EmailRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c)
	}

	ctx := c.Request().Context()
	gym, err := h.service.GetGymBySlug(ctx, c.Param("slug"))
	if err != nil {
		return h.fail(c, err)
	}

	status, err := h.service.CheckMemberPINStatus(ctx, req.Email, gym.ID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, Response{Success: true, Data: status})
}

// RequestAccess handles POST /api/portal/:slug/request-access
func (h *PortalHandler) RequestAccess(c echo.Context) error {
	var req EmailRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c)
	}

	ctx := c.Request().Context()
	gym, err := h.service.GetGymBySlug(ctx, c.Param("slug"))
	if err != nil {
		return h.fail(c, err)
	}

	result, err := h.service.RequestPortalAccess(ctx, req.Email, gym.ID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    result,
		Message: result.Message,
	})
}

// SignIn handles POST /api/portal/:slug/sign-in
func (h *PortalHandler) SignIn(c echo.Context) error {
	var req SignInRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c)
	}

	slug := c.Param("slug")
	sess, err := h.service.SignInWithPIN(c.Request().Context(), memberauth.Cookies(c), req.Email, req.PIN, slug)
	if err != nil {
		if h.logger != nil && portal.KindOf(err) == portal.KindInvalidCredentials {
			fields := append([]zap.Field{
				zap.String("gym_slug", slug),
				zap.String("ip", c.RealIP()),
			}, clientFields(c.Request().UserAgent())...)
			h.logger.Warn("portal sign-in failed", fields...)
		}
		return h.fail(c, err)
	}

	if h.logger != nil {
		fields := append([]zap.Field{
			zap.String("member_id", sess.MemberID.String()),
			zap.String("gym_id", sess.GymID.String()),
			zap.String("ip", c.RealIP()),
		}, clientFields(c.Request().UserAgent())...)
		h.logger.Info("portal sign-in succeeded", fields...)
	}

	return c.JSON(http.StatusOK, Response{Success: true, Data: sess})
}

// Session handles GET /api/portal/:slug/session. The member middleware has
// already verified the cookie.
func (h *PortalHandler) Session(c echo.Context) error {
	sess := memberauth.GetSession(c)
	if sess == nil {
		return c.JSON(http.StatusUnauthorized, Response{Error: portal.MsgNotAuthenticated})
	}
	return c.JSON(http.StatusOK, Response{Success: true, Data: sess})
}

// Me handles GET /api/portal/:slug/me
func (h *PortalHandler) Me(c echo.Context) error {
	info, err := h.service.GetAuthenticatedMemberInfo(c.Request().Context(), memberauth.Cookies(c), c.Param("slug"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, Response{Success: true, Data: info})
}

// SignOut handles POST /api/portal/sign-out
func (h *PortalHandler) SignOut(c echo.Context) error {
	if err := h.service.SignOut(c.Request().Context(), memberauth.Cookies(c)); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, Response{Success: true, Message: "Signed out"})
}

func (h *PortalHandler) fail(c echo.Context, err error) error {
	status := memberauth.StatusCode(err)
	if status >= http.StatusInternalServerError && h.logger != nil {
		h.logger.Error("portal request failed",
			zap.Error(err),
			zap.String("path", c.Path()))
	}
	return c.JSON(status, Response{Error: memberauth.ErrorMessage(err)})
}

func badRequest(c echo.Context) error {
	return c.JSON(http.StatusBadRequest, Response{Error: msgInvalidBody})
}
