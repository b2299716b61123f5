package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tech-arch1tect/gymportal/config"
	"github.com/tech-arch1tect/gymportal/services/portal"
	"github.com/tech-arch1tect/gymportal/testutils"
)

func buildTestApp(t *testing.T, configure ...func(*config.Config)) (*App, *testutils.MockMailService) {
	t.Helper()

	cfg := createTestConfig()
	for _, fn := range configure {
		fn(cfg)
	}

	mailer := &testutils.MockMailService{}
	mailer.On("SendPortalPIN", mock.Anything, mock.Anything).Return(nil)

	app, err := NewApp().WithConfig(cfg).WithMailer(mailer).Build()
	require.NoError(t, err)

	gym := &portal.Gym{Slug: "downtown-fit", Name: "Downtown Fit"}
	require.NoError(t, app.DB().Create(gym).Error)
	require.NoError(t, app.DB().Create(&portal.Member{
		GymID:    gym.ID,
		Email:    testutils.TestMembers.Sam.Email,
		FullName: testutils.TestMembers.Sam.FullName,
	}).Error)

	return app, mailer
}

func serve(app *App, method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}

	rec := httptest.NewRecorder()
	app.Server().ServeHTTP(rec, req)
	return rec
}

func TestApp_PortalFlow(t *testing.T) {
	app, mailer := buildTestApp(t)

	rec := serve(app, http.MethodPost, "/api/portal/downtown-fit/request-access", `{"email":"sam@example.com"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	pin := mailer.LastPIN()
	require.Len(t, pin, 4)

	rec = serve(app, http.MethodPost, "/api/portal/downtown-fit/sign-in", `{"email":"sam@example.com","pin":"`+pin+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var session *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == app.Config().Portal.CookieName {
			session = c
		}
	}
	require.NotNil(t, session)

	rec = serve(app, http.MethodGet, "/api/portal/downtown-fit/me", "", session)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Success bool              `json:"success"`
		Data    portal.MemberInfo `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "Sam Smith", resp.Data.MemberName)
}

func TestApp_Metrics(t *testing.T) {
	t.Run("enabled", func(t *testing.T) {
		app, _ := buildTestApp(t)

		rec := serve(app, http.MethodPost, "/api/portal/downtown-fit/request-access", `{"email":"sam@example.com"}`)
		require.Equal(t, http.StatusOK, rec.Code)

		rec = serve(app, http.MethodGet, "/metrics", "")
		require.Equal(t, http.StatusOK, rec.Code)

		body := rec.Body.String()
		assert.Contains(t, body, `gymportal_pin_requests_total{outcome="success"} 1`)
		assert.Contains(t, body, `gymportal_pin_emails_total{outcome="success"} 1`)
		assert.Contains(t, body, "gymportal_http_server_request_total")
		assert.NotContains(t, body, `http_route="/metrics"`)
	})

	t.Run("disabled", func(t *testing.T) {
		app, _ := buildTestApp(t, func(cfg *config.Config) {
			cfg.Metrics.Enabled = false
		})

		rec := serve(app, http.MethodGet, "/metrics", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestApp_OpenAPI(t *testing.T) {
	app, _ := buildTestApp(t)

	rec := serve(app, http.MethodGet, "/api/openapi.json", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/api/portal/{slug}/sign-in")
}

func TestApp_StartStop(t *testing.T) {
	app, _ := buildTestApp(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, app.Start(ctx))
	assert.NoError(t, app.Stop(ctx))
}

func TestApp_NilServer(t *testing.T) {
	app := &App{}

	assert.Nil(t, app.Server())
	assert.Nil(t, app.HTTPServer())
	assert.Nil(t, app.DB())
}
