package handlers_test

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cms/internal/config"
	"cms/internal/database/databasetest"
	"cms/internal/models"
	"cms/internal/server"
	"cms/internal/storage"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type testEnv struct {
	app *fiber.App
	db  *gorm.DB
	svc server.Services
}

// setupApp builds the full application on a private in-memory SQLite database.
func setupApp(t *testing.T) *testEnv {
	t.Helper()
	db := databasetest.New(t)
	svc := server.NewServices(db, storage.NewLocalStore(t.TempDir()), nil, config.JWTConfig{
		Secret:   "test_jwt_secret",
		Duration: time.Hour,
	})
	return &testEnv{app: server.New(svc), db: db, svc: svc}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return e.send(t, req)
}

func (e *testEnv) send(t *testing.T, req *http.Request) (int, []byte) {
	t.Helper()
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, raw
}

// signup registers an account and returns a bearer token for it.
func (e *testEnv) signup(t *testing.T, nickname string) string {
	t.Helper()
	email := nickname + "@example.com"
	status, body := e.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"nickname":  nickname,
		"email":     email,
		"password":  "password123",
		"password2": "password123",
	})
	require.Equal(t, http.StatusCreated, status, string(body))
	return e.login(t, email)
}

func (e *testEnv) login(t *testing.T, email string) string {
	t.Helper()
	status, body := e.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    email,
		"password": "password123",
	})
	require.Equal(t, http.StatusOK, status, string(body))
	var out struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	require.NotEmpty(t, out.Token)
	return out.Token
}

type articleBody struct {
	AuthorNickname string  `json:"author_nickname"`
	Title          string  `json:"title"`
	Slug           string  `json:"slug"`
	Content        string  `json:"content"`
	IsPublic       bool    `json:"is_public"`
	ImageMain      *string `json:"image_main"`
	Tags           []struct {
		Name string `json:"name"`
	} `json:"tags"`
	Categories []struct {
		Name string `json:"name"`
	} `json:"categories"`
}

func (a articleBody) tagNames() []string {
	out := []string{}
	for _, tag := range a.Tags {
		out = append(out, tag.Name)
	}
	return out
}

func decodeArticle(t *testing.T, raw []byte) articleBody {
	t.Helper()
	var a articleBody
	require.NoError(t, json.Unmarshal(raw, &a), string(raw))
	return a
}

func TestHealth(t *testing.T) {
	env := setupApp(t)
	status, body := env.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), "healthy")
}

func TestAuthRoutes(t *testing.T) {
	env := setupApp(t)
	token := env.signup(t, "alice001")

	// Password mismatch
	status, body := env.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"nickname":  "bobby001",
		"email":     "bob@example.com",
		"password":  "password123",
		"password2": "password456",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, string(body), `"password"`)

	// Duplicate email
	status, _ = env.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"nickname":  "another1",
		"email":     "alice001@example.com",
		"password":  "password123",
		"password2": "password123",
	})
	assert.Equal(t, http.StatusConflict, status)

	// Wrong password
	status, _ = env.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    "alice001@example.com",
		"password": "wrongpassword",
	})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body = env.do(t, http.MethodGet, "/api/v1/users/me", token, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `"nickname":"alice001"`)
	assert.NotContains(t, string(body), "password")

	status, _ = env.do(t, http.MethodGet, "/api/v1/users/me", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestArticlesRequireAuthentication(t *testing.T) {
	env := setupApp(t)

	status, _ := env.do(t, http.MethodGet, "/api/v1/articles", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = env.do(t, http.MethodPost, "/api/v1/articles", "", map[string]interface{}{"title": "t", "content": "c"})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body := env.do(t, http.MethodGet, "/api/v1/tags", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `[]`, string(body))
}

func TestArticleLifecycle(t *testing.T) {
	env := setupApp(t)
	token := env.signup(t, "alice001")

	status, body := env.do(t, http.MethodPost, "/api/v1/articles", token, map[string]interface{}{
		"title":      "Hello World",
		"content":    "<p>hi</p><script>alert(1)</script>",
		"is_public":  true,
		"author":     "someone-else",
		"tags":       []map[string]string{{"name": "go"}, {"name": "db"}, {"name": "go"}},
		"categories": []map[string]string{{"name": "news"}},
	})
	require.Equal(t, http.StatusCreated, status, string(body))
	created := decodeArticle(t, body)
	assert.Equal(t, "alice001", created.AuthorNickname)
	assert.Equal(t, "hello-world", created.Slug)
	assert.Equal(t, "<p>hi</p>", created.Content)
	assert.Equal(t, []string{"db", "go"}, created.tagNames())
	require.Len(t, created.Categories, 1)

	// Omitted tags are left untouched and the slug never changes.
	status, body = env.do(t, http.MethodPatch, "/api/v1/articles/hello-world", token, map[string]interface{}{
		"title": "Renamed",
	})
	require.Equal(t, http.StatusOK, status, string(body))
	patched := decodeArticle(t, body)
	assert.Equal(t, "Renamed", patched.Title)
	assert.Equal(t, "hello-world", patched.Slug)
	assert.Equal(t, []string{"db", "go"}, patched.tagNames())

	// An empty list clears the set.
	status, body = env.do(t, http.MethodPatch, "/api/v1/articles/hello-world", token, map[string]interface{}{
		"tags": []interface{}{},
	})
	require.Equal(t, http.StatusOK, status, string(body))
	cleared := decodeArticle(t, body)
	assert.Empty(t, cleared.Tags)
	assert.Len(t, cleared.Categories, 1)

	// Full update requires title and content.
	status, _ = env.do(t, http.MethodPut, "/api/v1/articles/hello-world", token, map[string]interface{}{
		"excerpt": "only an excerpt",
	})
	assert.Equal(t, http.StatusBadRequest, status)

	// Tags stay listed after being detached.
	status, body = env.do(t, http.MethodGet, "/api/v1/tags", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `[{"name":"db"},{"name":"go"}]`, string(body))

	status, _ = env.do(t, http.MethodDelete, "/api/v1/articles/hello-world", token, nil)
	assert.Equal(t, http.StatusNoContent, status)
	status, _ = env.do(t, http.MethodGet, "/api/v1/articles/hello-world", token, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestArticleValidationPersistsNothing(t *testing.T) {
	env := setupApp(t)
	token := env.signup(t, "alice001")

	status, body := env.do(t, http.MethodPost, "/api/v1/articles", token, map[string]interface{}{
		"title":   "Broken",
		"content": "body",
		"tags":    []map[string]string{{"name": "fine"}, {"name": ""}},
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, string(body), "tags[1].name")

	var articles, tags int64
	require.NoError(t, env.db.Model(&models.Article{}).Count(&articles).Error)
	require.NoError(t, env.db.Model(&models.Tag{}).Count(&tags).Error)
	assert.Zero(t, articles)
	assert.Zero(t, tags)
}

func TestArticleAccessRules(t *testing.T) {
	env := setupApp(t)
	alice := env.signup(t, "alice001")
	bob := env.signup(t, "bobby001")
	_, err := env.svc.Auth.CreateSuperuser(context.Background(), "admin@example.com", "administrator", "password123")
	require.NoError(t, err)
	admin := env.login(t, "admin@example.com")

	status, _ := env.do(t, http.MethodPost, "/api/v1/articles", alice, map[string]interface{}{
		"title": "Public Post", "content": "c", "is_public": true,
	})
	require.Equal(t, http.StatusCreated, status)
	status, _ = env.do(t, http.MethodPost, "/api/v1/articles", alice, map[string]interface{}{
		"title": "Secret Draft", "content": "c",
	})
	require.Equal(t, http.StatusCreated, status)

	var list []articleBody
	status, body := env.do(t, http.MethodGet, "/api/v1/articles", bob, nil)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(body, &list))
	require.Len(t, list, 1)
	assert.Equal(t, "public-post", list[0].Slug)

	status, _ = env.do(t, http.MethodGet, "/api/v1/articles/secret-draft", bob, nil)
	assert.Equal(t, http.StatusNotFound, status)
	status, _ = env.do(t, http.MethodPatch, "/api/v1/articles/secret-draft", bob, map[string]interface{}{"title": "x"})
	assert.Equal(t, http.StatusNotFound, status)
	status, _ = env.do(t, http.MethodPatch, "/api/v1/articles/public-post", bob, map[string]interface{}{"title": "x"})
	assert.Equal(t, http.StatusForbidden, status)
	status, _ = env.do(t, http.MethodDelete, "/api/v1/articles/public-post", bob, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, body = env.do(t, http.MethodGet, "/api/v1/articles", admin, nil)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(body, &list))
	assert.Len(t, list, 2)

	status, body = env.do(t, http.MethodPatch, "/api/v1/articles/secret-draft", admin, map[string]interface{}{"is_public": true})
	require.Equal(t, http.StatusOK, status, string(body))
	edited := decodeArticle(t, body)
	assert.True(t, edited.IsPublic)
	assert.Equal(t, "alice001", edited.AuthorNickname)
}

func multipartRequest(t *testing.T, method, path, token string, fields map[string]string, filename string, file []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if filename != "" {
		part, err := w.CreateFormFile("image_main", filename)
		require.NoError(t, err)
		_, err = part.Write(file)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestArticleMultipartUpload(t *testing.T) {
	env := setupApp(t)
	token := env.signup(t, "alice001")

	req := multipartRequest(t, http.MethodPost, "/api/v1/articles", token, map[string]string{
		"title":     "With Image",
		"content":   "body",
		"is_public": "true",
		"tags":      `[{"name":"photo"}]`,
	}, "cover.png", []byte("\x89PNG\r\n\x1a\n"))
	status, body := env.send(t, req)
	require.Equal(t, http.StatusCreated, status, string(body))
	created := decodeArticle(t, body)
	require.NotNil(t, created.ImageMain)
	assert.Contains(t, *created.ImageMain, "uploads/articles/")
	assert.True(t, created.IsPublic)
	assert.Equal(t, []string{"photo"}, created.tagNames())

	// Unsupported extension is rejected before anything is written.
	req = multipartRequest(t, http.MethodPatch, "/api/v1/articles/with-image", token, map[string]string{
		"title": "Changed",
	}, "anim.gif", []byte("GIF89a"))
	status, body = env.send(t, req)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, string(body), "image_main")

	status, body = env.do(t, http.MethodGet, "/api/v1/articles/with-image", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "With Image", decodeArticle(t, body).Title)

	// Malformed tag JSON is a bad body.
	req = multipartRequest(t, http.MethodPatch, "/api/v1/articles/with-image", token, map[string]string{
		"tags": `[{"name":`,
	}, "", nil)
	status, _ = env.send(t, req)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestDeleteAccountRemovesArticles(t *testing.T) {
	env := setupApp(t)
	token := env.signup(t, "alice001")

	status, _ := env.do(t, http.MethodPost, "/api/v1/articles", token, map[string]interface{}{
		"title": "Mine", "content": "c", "tags": []map[string]string{{"name": "t"}},
	})
	require.Equal(t, http.StatusCreated, status)

	status, _ = env.do(t, http.MethodDelete, "/api/v1/users/me", token, nil)
	assert.Equal(t, http.StatusNoContent, status)

	var articles int64
	require.NoError(t, env.db.Model(&models.Article{}).Count(&articles).Error)
	assert.Zero(t, articles)

	status, _ = env.do(t, http.MethodGet, "/api/v1/articles", token, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}
