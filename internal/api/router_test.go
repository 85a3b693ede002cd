package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baharkarakas/imagegen-backend/internal/auth"
	"github.com/baharkarakas/imagegen-backend/internal/generation"
	"github.com/baharkarakas/imagegen-backend/internal/middleware"
	"github.com/baharkarakas/imagegen-backend/internal/models"
	"github.com/baharkarakas/imagegen-backend/internal/repository/memory"
	"github.com/baharkarakas/imagegen-backend/internal/services"
)

type testAPI struct {
	srv   *httptest.Server
	repos memory.Repositories
	tm    *auth.TokenManager
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	repos := memory.NewRepositories(memory.NewStore())
	tm := auth.NewTokenManager("test-secret", "imagegen-test", time.Hour)
	gen := generation.NewClient(generation.Config{}) // no key: always the placeholder

	h := NewRouter(RouterDeps{
		UserSvc:  services.NewUserService(repos.Users, repos.AuditLogs, tm),
		ImageSvc: services.NewImageService(repos.Images, repos.AuditLogs, gen),
		Guard:    middleware.NewGuard(tm, repos.Users, false),
	})
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return &testAPI{srv: srv, repos: repos, tm: tm}
}

func (a *testAPI) do(t *testing.T, method, path, token string, body any) (*http.Response, []byte) {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, a.srv.URL+path, rd)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := a.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, buf.Bytes()
}

type userBody struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Token    string `json:"token"`
}

func (a *testAPI) register(t *testing.T, name string) userBody {
	t.Helper()
	resp, body := a.do(t, http.MethodPost, "/api/users", "", map[string]string{
		"username": name, "email": name + "@example.com", "password": "password1",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var u userBody
	require.NoError(t, json.Unmarshal(body, &u))
	return u
}

func (a *testAPI) generate(t *testing.T, token, prompt string) models.Image {
	t.Helper()
	resp, body := a.do(t, http.MethodPost, "/api/images/generate", token, map[string]string{"prompt": prompt})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var img models.Image
	require.NoError(t, json.Unmarshal(body, &img))
	return img
}

func messageOf(t *testing.T, body []byte) string {
	t.Helper()
	var m struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(body, &m))
	return m.Message
}

func TestUsersAPI(t *testing.T) {
	a := newTestAPI(t)

	t.Run("Should register and return a token", func(t *testing.T) {
		u := a.register(t, "alice")
		assert.Equal(t, "alice", u.Username)
		assert.Equal(t, models.RoleUser, u.Role)
		sub, err := a.tm.Verify(u.Token)
		require.NoError(t, err)
		assert.Equal(t, u.ID, sub)
	})

	t.Run("Should reject duplicate registration with 400", func(t *testing.T) {
		resp, body := a.do(t, http.MethodPost, "/api/users", "", map[string]string{
			"username": "alice", "email": "new@example.com", "password": "password1",
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "User already exists", messageOf(t, body))
	})

	t.Run("Should validate the body", func(t *testing.T) {
		resp, body := a.do(t, http.MethodPost, "/api/users", "", map[string]string{
			"username": "al", "email": "bad", "password": "1",
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Contains(t, messageOf(t, body), "email")
	})

	t.Run("Should reject an overlong password with 400", func(t *testing.T) {
		resp, body := a.do(t, http.MethodPost, "/api/users", "", map[string]string{
			"username": "longpw", "email": "long@example.com", "password": strings.Repeat("x", 80),
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Contains(t, messageOf(t, body), "password")
	})

	t.Run("Should reject a username that is too short once trimmed", func(t *testing.T) {
		resp, _ := a.do(t, http.MethodPost, "/api/users", "", map[string]string{
			"username": "  ab  ", "email": "ab@example.com", "password": "password1",
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("Should log in", func(t *testing.T) {
		resp, body := a.do(t, http.MethodPost, "/api/users/login", "", map[string]string{
			"email": "alice@example.com", "password": "password1",
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var u userBody
		require.NoError(t, json.Unmarshal(body, &u))
		assert.NotEmpty(t, u.Token)
		assert.NotContains(t, string(body), "password")
	})

	t.Run("Should reject bad credentials with 401", func(t *testing.T) {
		resp, _ := a.do(t, http.MethodPost, "/api/users/login", "", map[string]string{
			"email": "alice@example.com", "password": "wrong-password",
		})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("Should return profile without token field", func(t *testing.T) {
		u := a.register(t, "carol")
		resp, body := a.do(t, http.MethodGet, "/api/users/profile", u.Token, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.NotContains(t, string(body), "token")
		assert.Contains(t, string(body), `"username":"carol"`)
	})

	t.Run("Should require a token for profile", func(t *testing.T) {
		resp, _ := a.do(t, http.MethodGet, "/api/users/profile", "", nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("Should restrict user listing to admins", func(t *testing.T) {
		u := a.register(t, "dave")
		resp, _ := a.do(t, http.MethodGet, "/api/users", u.Token, nil)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)

		admin, err := a.repos.Users.Create(context.Background(), models.User{
			Username: "root", Email: "root@example.com", Role: models.RoleAdmin,
		})
		require.NoError(t, err)
		tok, _, err := a.tm.Issue(admin.ID)
		require.NoError(t, err)
		resp, body := a.do(t, http.MethodGet, "/api/users", tok, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var list []userBody
		require.NoError(t, json.Unmarshal(body, &list))
		assert.GreaterOrEqual(t, len(list), 4)
	})
}

func TestImagesAPI_Scenario(t *testing.T) {
	a := newTestAPI(t)
	alice := a.register(t, "alice")
	bob := a.register(t, "bob")

	img := a.generate(t, alice.Token, "a blue cat wearing a hat")
	assert.Equal(t, []string{"blue", "wearing"}, img.Tags)
	assert.True(t, img.IsFallback)
	assert.True(t, img.Public)
	assert.Equal(t, "alice", img.CreatedBy.Username)
	assert.Equal(t, generation.Fallback("a blue cat wearing a hat").ImageURL, img.ImageURL)

	resp, body := a.do(t, http.MethodDelete, "/api/images/"+img.ID, bob.Token, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode, string(body))

	resp, body = a.do(t, http.MethodDelete, "/api/images/"+img.ID, alice.Token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Image removed", messageOf(t, body))

	resp, _ = a.do(t, http.MethodGet, "/api/images/"+img.ID, alice.Token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestImagesAPI(t *testing.T) {
	a := newTestAPI(t)
	alice := a.register(t, "alice")
	bob := a.register(t, "bob")
	img := a.generate(t, alice.Token, "sunset over quiet mountains")

	private, err := a.repos.Images.Create(context.Background(), models.Image{
		Prompt: "hidden", CreatedBy: models.UserRef{ID: alice.ID}, Public: false,
	})
	require.NoError(t, err)

	t.Run("Should list public images anonymously", func(t *testing.T) {
		resp, body := a.do(t, http.MethodGet, "/api/images", "", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var list []models.Image
		require.NoError(t, json.Unmarshal(body, &list))
		require.Len(t, list, 1)
		assert.Equal(t, img.ID, list[0].ID)
	})

	t.Run("Should list my images including private ones", func(t *testing.T) {
		resp, body := a.do(t, http.MethodGet, "/api/images/myimages", alice.Token, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var list []models.Image
		require.NoError(t, json.Unmarshal(body, &list))
		assert.Len(t, list, 2)

		resp, _ = a.do(t, http.MethodGet, "/api/images/myimages", "", nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("Should enforce private visibility", func(t *testing.T) {
		resp, _ := a.do(t, http.MethodGet, "/api/images/"+private.ID, "", nil)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		resp, _ = a.do(t, http.MethodGet, "/api/images/"+private.ID, bob.Token, nil)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		resp, _ = a.do(t, http.MethodGet, "/api/images/"+private.ID, alice.Token, nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("Should treat an invalid optional token as anonymous", func(t *testing.T) {
		resp, _ := a.do(t, http.MethodGet, "/api/images/"+img.ID, "garbage", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		resp, _ = a.do(t, http.MethodGet, "/api/images/"+private.ID, "garbage", nil)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("Should toggle likes", func(t *testing.T) {
		resp, body := a.do(t, http.MethodPut, "/api/images/"+img.ID+"/like", bob.Token, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.JSONEq(t, `{"likes":["`+bob.ID+`"]}`, string(body))

		resp, body = a.do(t, http.MethodPut, "/api/images/"+img.ID+"/like", bob.Token, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.JSONEq(t, `{"likes":[]}`, string(body))

		resp, _ = a.do(t, http.MethodPut, "/api/images/missing/like", bob.Token, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("Should reject blank prompt", func(t *testing.T) {
		resp, _ := a.do(t, http.MethodPost, "/api/images/generate", alice.Token, map[string]string{"prompt": "   "})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		resp, _ = a.do(t, http.MethodPost, "/api/images/generate", "", map[string]string{"prompt": "cat"})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("Should 404 on unknown image", func(t *testing.T) {
		resp, _ := a.do(t, http.MethodGet, "/api/images/does-not-exist", "", nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestMiscRoutes(t *testing.T) {
	a := newTestAPI(t)

	resp, body := a.do(t, http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "API is running...", string(body))

	resp, _ = a.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))

	resp, body = a.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "http_requests_total")

	resp, body = a.do(t, http.MethodGet, "/api/nothing", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Not Found - /api/nothing", messageOf(t, body))
}
