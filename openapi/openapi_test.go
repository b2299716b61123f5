package openapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type memberRef struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email" doc:"Lower-cased member email"`
	Logo  *string   `json:"logo_url"`
	Note  string    `json:"note,omitempty"`
}

type memberEnvelope struct {
	Success bool      `json:"success"`
	Data    memberRef `json:"data"`
}

func newTestDoc() *OpenAPI {
	doc := New("Portal API", "1.0.0").
		Description("test").
		Server("http://localhost:8080", "local").
		Tag("portal", "member portal").
		CookieAuth("memberSession", "member_portal_session", "session cookie")

	doc.Document(http.MethodGet, "/api/portal/:slug/me").
		Summary("Current member").
		Tags("portal").
		Security("memberSession").
		Response(http.StatusOK, memberEnvelope{}, "ok").
		Response(http.StatusUnauthorized, nil, "not signed in").
		Build()

	doc.Document(http.MethodPost, "/api/portal/:slug/sign-in").
		Body(struct {
			Email string `json:"email"`
			PIN   string `json:"pin"`
		}{}, "credentials").
		Response(http.StatusOK, memberEnvelope{}, "ok").
		Response(http.StatusTooManyRequests, nil, "slow down").
		ResponseHeaders(http.StatusTooManyRequests, map[string]string{"X-RateLimit-Reset": "window end"}).
		Build()

	return doc
}

func TestOpenAPI_Document(t *testing.T) {
	doc := newTestDoc()
	spec := doc.Spec()

	item := spec.Paths.Find("/api/portal/{slug}/me")
	require.NotNil(t, item)
	require.NotNil(t, item.Get)
	assert.Equal(t, "Current member", item.Get.Summary)
	require.Len(t, item.Get.Parameters, 1)
	assert.Equal(t, "slug", item.Get.Parameters[0].Value.Name)
	assert.Equal(t, "path", item.Get.Parameters[0].Value.In)

	signIn := spec.Paths.Find("/api/portal/{slug}/sign-in")
	require.NotNil(t, signIn)
	require.NotNil(t, signIn.Post)
	require.NotNil(t, signIn.Post.RequestBody)
	assert.True(t, signIn.Post.RequestBody.Value.Required)
	tooMany := signIn.Post.Responses.Value("429")
	require.NotNil(t, tooMany)
	assert.Contains(t, tooMany.Value.Headers, "X-RateLimit-Reset")

	require.NoError(t, doc.Validate(context.Background()))
}

func TestOpenAPI_Schemas(t *testing.T) {
	doc := newTestDoc()
	schemas := doc.Spec().Components.Schemas

	require.Contains(t, schemas, "memberRef")
	member := schemas["memberRef"].Value

	assert.Equal(t, "uuid", member.Properties["id"].Value.Format)
	assert.True(t, member.Properties["id"].Value.Type.Is("string"))
	assert.Equal(t, "Lower-cased member email", member.Properties["email"].Value.Description)
	assert.True(t, member.Properties["logo_url"].Value.Nullable)
	assert.ElementsMatch(t, []string{"id", "email"}, member.Required)

	envelope := schemas["memberEnvelope"].Value
	assert.Equal(t, "#/components/schemas/memberRef", envelope.Properties["data"].Ref)
}

func TestOpenAPI_Handlers(t *testing.T) {
	doc := newTestDoc()
	e := echo.New()
	e.GET("/api/openapi.json", doc.JSONHandler())
	e.GET("/api/openapi.yaml", doc.YAMLHandler())

	t.Run("json", func(t *testing.T) {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/openapi.json", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "3.0.3", body["openapi"])
		assert.Contains(t, body["paths"], "/api/portal/{slug}/me")
	})

	t.Run("yaml", func(t *testing.T) {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/openapi.yaml", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/yaml", rec.Header().Get("Content-Type"))
		var body map[string]any
		require.NoError(t, yaml.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "Portal API", body["info"].(map[string]any)["title"])
	})
}

func TestEchoPathToOpenAPI(t *testing.T) {
	assert.Equal(t, "/api/portal/{slug}/me", echoPathToOpenAPI("/api/portal/:slug/me"))
	assert.Equal(t, "/api/portal/sign-out", echoPathToOpenAPI("/api/portal/sign-out"))
}
