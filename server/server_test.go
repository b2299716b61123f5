package server

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tech-arch1tect/gymportal/config"
	"github.com/tech-arch1tect/gymportal/services/logging"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Host: "localhost",
			Port: "8080",
		},
		Metrics: config.MetricsConfig{Path: "/metrics"},
	}
}

func TestNew(t *testing.T) {
	cfg := testConfig()

	t.Run("with logger", func(t *testing.T) {
		logger := logging.NewWithLogger(zap.NewNop())
		srv := New(cfg, logger)

		require.NotNil(t, srv)
		assert.Same(t, cfg, srv.cfg)
		assert.Same(t, logger, srv.logger)
		assert.NotNil(t, srv.echo)
		assert.Equal(t, "localhost:8080", srv.Addr())
	})

	t.Run("without logger", func(t *testing.T) {
		srv := New(cfg, nil)

		require.NotNil(t, srv)
		assert.Nil(t, srv.logger)
		assert.NotNil(t, srv.echo)
	})
}

func TestServer_Routes(t *testing.T) {
	srv := New(testConfig(), nil)
	handler := func(c echo.Context) error {
		return c.String(http.StatusOK, c.Request().Method)
	}

	srv.Get("/get", handler)
	srv.Post("/post", handler)
	srv.Group("/api").GET("/grouped", handler)

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/get"},
		{http.MethodPost, "/post"},
		{http.MethodGet, "/api/grouped"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			srv.Echo().ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.method, rec.Body.String())
		})
	}
}

func TestServer_RecoversFromPanics(t *testing.T) {
	srv := New(testConfig(), nil)
	srv.Get("/panic", func(c echo.Context) error {
		panic("boom")
	})

	rec := httptest.NewRecorder()
	srv.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"success":false,"error":"Internal Server Error"}`, rec.Body.String())
}

func TestJSONErrorHandler(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	srv := New(testConfig(), logging.NewWithLogger(zap.New(core)))

	srv.Get("/teapot", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusTeapot, "short and stout")
	})
	srv.Get("/plain", func(c echo.Context) error {
		return errors.New("database on fire")
	})

	t.Run("http error keeps its code and message", func(t *testing.T) {
		rec := httptest.NewRecorder()
		srv.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/teapot", nil))

		assert.Equal(t, http.StatusTeapot, rec.Code)
		assert.JSONEq(t, `{"success":false,"error":"short and stout"}`, rec.Body.String())
	})

	t.Run("unknown route", func(t *testing.T) {
		rec := httptest.NewRecorder()
		srv.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.JSONEq(t, `{"success":false,"error":"Not Found"}`, rec.Body.String())
	})

	t.Run("plain error is hidden and logged", func(t *testing.T) {
		rec := httptest.NewRecorder()
		srv.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/plain", nil))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.NotContains(t, rec.Body.String(), "database on fire")
		assert.Equal(t, 1, logs.FilterMessage("unhandled error").Len())
	})
}

func TestConfigureTrustedProxies(t *testing.T) {
	tests := []struct {
		name           string
		trustedProxies []string
		remoteAddr     string
		forwardedFor   string
		expectedIP     string
	}{
		{
			name:         "no proxies uses socket address",
			remoteAddr:   "10.0.0.1:1234",
			forwardedFor: "203.0.113.9",
			expectedIP:   "10.0.0.1",
		},
		{
			name:           "trusted cidr honours forwarded header",
			trustedProxies: []string{"10.0.0.0/8"},
			remoteAddr:     "10.0.0.1:1234",
			forwardedFor:   "203.0.113.9",
			expectedIP:     "203.0.113.9",
		},
		{
			name:           "trusted single ip",
			trustedProxies: []string{"192.0.2.10"},
			remoteAddr:     "192.0.2.10:1234",
			forwardedFor:   "203.0.113.9",
			expectedIP:     "203.0.113.9",
		},
		{
			name:           "untrusted peer is not believed",
			trustedProxies: []string{"192.0.2.10"},
			remoteAddr:     "198.51.100.7:1234",
			forwardedFor:   "203.0.113.9",
			expectedIP:     "198.51.100.7",
		},
		{
			name:           "only invalid entries falls back to socket address",
			trustedProxies: []string{"not-an-ip", " "},
			remoteAddr:     "10.0.0.1:1234",
			forwardedFor:   "203.0.113.9",
			expectedIP:     "10.0.0.1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			configureTrustedProxies(e, tt.trustedProxies, nil)
			require.NotNil(t, e.IPExtractor)

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			req.Header.Set(echo.HeaderXForwardedFor, tt.forwardedFor)

			assert.Equal(t, tt.expectedIP, e.IPExtractor(req))
		})
	}
}

func TestConfigureTrustedProxies_LogsInvalidEntries(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	e := echo.New()

	configureTrustedProxies(e, []string{"10.0.0.0/33", "10.1.2.3"}, logging.NewWithLogger(zap.New(core)))

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "ignoring invalid trusted proxy", logs.All()[0].Message)
}

func TestShortenHandlerName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"module path trimmed", "github.com/user/repo/handler.GetUser", "user/repo/handler.GetUser"},
		{"no slash", "main.handler", "main.handler"},
		{"long name truncated", "a/" + strings.Repeat("x", 100), strings.Repeat("x", 77) + "..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, shortenHandlerName(tt.input))
		})
	}
}
