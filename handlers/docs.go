package handlers

import (
	"net/http"

	"github.com/tech-arch1tect/gymportal/config"
	"github.com/tech-arch1tect/gymportal/openapi"
	"github.com/tech-arch1tect/gymportal/services/portal"
)

const (
	portalTag     = "portal"
	sessionScheme = "memberSession"
)

type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error" doc:"Message safe to show to the member"`
}

type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type GymResponse struct {
	Success bool              `json:"success"`
	Data    portal.GymSummary `json:"data"`
}

type PINStatusResponse struct {
	Success bool             `json:"success"`
	Data    portal.PINStatus `json:"data"`
}

type AccessResponse struct {
	Success bool                `json:"success"`
	Data    portal.AccessResult `json:"data"`
	Message string              `json:"message"`
}

type SessionResponse struct {
	Success bool                 `json:"success"`
	Data    portal.MemberSession `json:"data"`
}

type MemberInfoResponse struct {
	Success bool              `json:"success"`
	Data    portal.MemberInfo `json:"data"`
}

// APIDocs describes the portal routes registered by RegisterPortalRoutes.
func APIDocs(cfg *config.Config) *openapi.OpenAPI {
	doc := openapi.New(cfg.App.Name+" API", "1.0.0").
		Description("Member portal sign-in with emailed PINs.").
		Server(cfg.App.URL, cfg.App.Env).
		Tag(portalTag, "Member portal").
		CookieAuth(sessionScheme, cfg.Portal.CookieName, "Encrypted member session")

	p := PortalPrefix

	doc.Document(http.MethodGet, p+"/:slug").
		Summary("Look up a gym").
		OperationID("getGym").
		Tags(portalTag).
		Response(http.StatusOK, GymResponse{}, "Gym found").
		Response(http.StatusNotFound, ErrorResponse{}, "No gym with this slug").
		Build()

	doc.Document(http.MethodPost, p+"/:slug/pin-status").
		Summary("Check whether a member has a PIN").
		OperationID("getPinStatus").
		Tags(portalTag).
		Body(EmailRequest{}, "Member email").
		Response(http.StatusOK, PINStatusResponse{}, "Member found").
		Response(http.StatusBadRequest, ErrorResponse{}, "Missing email").
		Response(http.StatusNotFound, ErrorResponse{}, "Unknown gym or member").
		Build()

	doc.Document(http.MethodPost, p+"/:slug/request-access").
		Summary("Email a new portal PIN").
		Description("Issues a new PIN unless one was sent within the cooldown window.").
		OperationID("requestAccess").
		Tags(portalTag).
		Body(EmailRequest{}, "Member email").
		Response(http.StatusOK, AccessResponse{}, "PIN issued").
		Response(http.StatusBadRequest, ErrorResponse{}, "Missing email").
		Response(http.StatusNotFound, ErrorResponse{}, "Unknown gym or member").
		Response(http.StatusTooManyRequests, ErrorResponse{}, "Cooldown active").
		Build()

	doc.Document(http.MethodPost, p+"/:slug/sign-in").
		Summary("Sign in with email and PIN").
		OperationID("signIn").
		Tags(portalTag).
		Body(SignInRequest{}, "Credentials").
		Response(http.StatusOK, SessionResponse{}, "Signed in, session cookie set").
		ResponseHeaders(http.StatusOK, map[string]string{
			"Set-Cookie": "Member session cookie",
		}).
		Response(http.StatusBadRequest, ErrorResponse{}, "Missing email or PIN").
		Response(http.StatusUnauthorized, ErrorResponse{}, "Invalid email or PIN").
		Response(http.StatusTooManyRequests, ErrorResponse{}, "Too many failed attempts").
		ResponseHeaders(http.StatusTooManyRequests, map[string]string{
			"X-RateLimit-Limit":     "Attempts allowed per window",
			"X-RateLimit-Remaining": "Attempts left in this window",
			"X-RateLimit-Reset":     "Unix time the window resets",
		}).
		Build()

	doc.Document(http.MethodGet, p+"/:slug/session").
		Summary("Verify the member session").
		OperationID("getSession").
		Tags(portalTag).
		Security(sessionScheme).
		Response(http.StatusOK, SessionResponse{}, "Session valid for this gym").
		Response(http.StatusUnauthorized, ErrorResponse{}, "Missing, expired or tampered session").
		Response(http.StatusForbidden, ErrorResponse{}, "Session belongs to another gym").
		Build()

	doc.Document(http.MethodGet, p+"/:slug/me").
		Summary("Signed-in member profile").
		OperationID("getMemberInfo").
		Tags(portalTag).
		Security(sessionScheme).
		Response(http.StatusOK, MemberInfoResponse{}, "Member and gym details").
		Response(http.StatusUnauthorized, ErrorResponse{}, "Missing, expired or tampered session").
		Response(http.StatusForbidden, ErrorResponse{}, "Session belongs to another gym").
		Response(http.StatusNotFound, ErrorResponse{}, "Member no longer exists").
		Build()

	doc.Document(http.MethodPost, p+"/sign-out").
		Summary("Clear the session cookie").
		OperationID("signOut").
		Tags(portalTag).
		Response(http.StatusOK, MessageResponse{}, "Signed out").
		Build()

	return doc
}
