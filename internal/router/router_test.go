package router

import (
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/steinfletcher/apitest"
	jsonpath "github.com/steinfletcher/apitest-jsonpath"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/F1veStar3/postboard/config"
	"github.com/F1veStar3/postboard/internal/container"
	"github.com/F1veStar3/postboard/internal/infrastructure/cache"
	"github.com/F1veStar3/postboard/pkg/helpers"
)

func init() { gin.SetMode(gin.TestMode) }

type testApp struct {
	handler http.Handler
	store   *memStore
	mr      *miniredis.Miniredis
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := config.Load()
	cfg.PostMaxBytes = 64
	cfg.DebugMetricsEnabled = true
	cfg.HTTPLogEnabled = false

	jwtm, err := helpers.NewJWTManager("router-test-secret", "HS256", 30*time.Minute)
	require.NoError(t, err)

	store := &memStore{}
	c := &container.Container{
		Config:    cfg,
		Logger:    helpers.NewNopLogger(),
		Redis:     rdb,
		JWT:       jwtm,
		Hasher:    helpers.NewPasswordHasher(bcrypt.MinCost),
		Users:     memUserRepo{s: store},
		Posts:     memPostRepo{s: store},
		PostCache: cache.NewPostListCache(rdb, time.Minute),
	}
	return &testApp{handler: NewEngine(c), store: store, mr: mr}
}

type tokenEnvelope struct {
	Data struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	} `json:"data"`
}

func (a *testApp) register(t *testing.T, email, password string) string {
	t.Helper()
	var out tokenEnvelope
	apitest.New().
		Handler(a.handler).
		Post("/api/auth/register").
		JSON(fmt.Sprintf(`{"email":%q,"password":%q}`, email, password)).
		Expect(t).
		Status(http.StatusCreated).
		Assert(jsonpath.Equal("$.data.token_type", "bearer")).
		Assert(jsonpath.Present("$.data.access_token")).
		Assert(jsonpath.Present("$.data.expires_at")).
		End().
		JSON(&out)
	require.NotEmpty(t, out.Data.AccessToken)
	return out.Data.AccessToken
}

func TestAuthFlow(t *testing.T) {
	app := newTestApp(t)
	app.register(t, "a@x.com", "pw1")

	apitest.New().
		Handler(app.handler).
		Post("/api/auth/register").
		JSON(`{"email":"a@x.com","password":"pw2"}`).
		Expect(t).
		Status(http.StatusBadRequest).
		Assert(jsonpath.Equal("$.message", "user already exists")).
		Assert(jsonpath.Equal("$.success", false)).
		End()

	apitest.New().
		Handler(app.handler).
		Post("/api/auth/login").
		JSON(`{"email":"a@x.com","password":"pw2"}`).
		Expect(t).
		Status(http.StatusUnauthorized).
		Assert(jsonpath.Equal("$.message", "invalid email or password")).
		End()

	apitest.New().
		Handler(app.handler).
		Post("/api/auth/login").
		JSON(`{"email":"nobody@x.com","password":"pw1"}`).
		Expect(t).
		Status(http.StatusUnauthorized).
		Assert(jsonpath.Equal("$.message", "invalid email or password")).
		End()

	var login tokenEnvelope
	apitest.New().
		Handler(app.handler).
		Post("/api/auth/login").
		JSON(`{"email":"a@x.com","password":"pw1"}`).
		Expect(t).
		Status(http.StatusOK).
		Assert(jsonpath.Equal("$.data.token_type", "bearer")).
		End().
		JSON(&login)

	apitest.New().
		Handler(app.handler).
		Get("/api/me").
		Header("Authorization", "Bearer "+login.Data.AccessToken).
		Expect(t).
		Status(http.StatusOK).
		Assert(jsonpath.Equal("$.data.email", "a@x.com")).
		Assert(jsonpath.Equal("$.data.id", float64(1))).
		End()
}

func TestRegisterValidation(t *testing.T) {
	app := newTestApp(t)

	apitest.New().
		Handler(app.handler).
		Post("/api/auth/register").
		JSON(`{"email":"not-an-email","password":"pw1"}`).
		Expect(t).
		Status(http.StatusBadRequest).
		Assert(jsonpath.Equal("$.message", "invalid payload")).
		Assert(jsonpath.Present("$.error.email")).
		End()

	apitest.New().
		Handler(app.handler).
		Post("/api/auth/register").
		JSON(fmt.Sprintf(`{"email":"a@x.com","password":%q}`, strings.Repeat("p", 73))).
		Expect(t).
		Status(http.StatusBadRequest).
		Assert(jsonpath.Present("$.error.password")).
		End()

	apitest.New().
		Handler(app.handler).
		Post("/api/auth/register").
		Body(`{"email":`).
		Header("Content-Type", "application/json").
		Expect(t).
		Status(http.StatusBadRequest).
		End()
}

func TestRegisterPasswordLimitIsInBytes(t *testing.T) {
	app := newTestApp(t)

	apitest.New().
		Handler(app.handler).
		Post("/api/auth/register").
		JSON(fmt.Sprintf(`{"email":"a@x.com","password":%q}`, strings.Repeat("é", 40))).
		Expect(t).
		Status(http.StatusBadRequest).
		Assert(jsonpath.Equal("$.message", "invalid payload")).
		Assert(jsonpath.Equal("$.error.password", "must be at most 72 bytes")).
		End()

	app.register(t, "b@x.com", strings.Repeat("é", 36))
}

func TestPostsFlow(t *testing.T) {
	app := newTestApp(t)
	alice := app.register(t, "alice@x.com", "pw1")
	bob := app.register(t, "bob@x.com", "pw1")

	for _, content := range []string{"first", "second"} {
		apitest.New().
			Handler(app.handler).
			Post("/api/posts").
			Header("Authorization", "Bearer "+alice).
			JSON(fmt.Sprintf(`{"content":%q}`, content)).
			Expect(t).
			Status(http.StatusCreated).
			Assert(jsonpath.Present("$.data.post_id")).
			End()
	}

	apitest.New().
		Handler(app.handler).
		Get("/api/posts").
		Header("Authorization", "Bearer "+alice).
		Expect(t).
		Status(http.StatusOK).
		Assert(jsonpath.Len("$.data.posts", 2)).
		Assert(jsonpath.Equal("$.data.posts[0].content", "first")).
		Assert(jsonpath.Equal("$.meta.count", float64(2))).
		End()
	require.True(t, app.mr.Exists("posts:user:1"))

	apitest.New().
		Handler(app.handler).
		Get("/api/posts").
		Header("Authorization", "Bearer "+bob).
		Expect(t).
		Status(http.StatusOK).
		Assert(jsonpath.Len("$.data.posts", 0)).
		End()

	// bob cannot delete alice's post
	apitest.New().
		Handler(app.handler).
		Delete("/api/posts/1").
		Header("Authorization", "Bearer "+bob).
		Expect(t).
		Status(http.StatusNotFound).
		End()

	apitest.New().
		Handler(app.handler).
		Delete("/api/posts/1").
		Header("Authorization", "Bearer "+alice).
		Expect(t).
		Status(http.StatusOK).
		Assert(jsonpath.Equal("$.data.deleted", true)).
		End()
	require.False(t, app.mr.Exists("posts:user:1"))

	apitest.New().
		Handler(app.handler).
		Get("/api/posts").
		Header("Authorization", "Bearer "+alice).
		Expect(t).
		Status(http.StatusOK).
		Assert(jsonpath.Len("$.data.posts", 1)).
		Assert(jsonpath.Equal("$.data.posts[0].content", "second")).
		End()

	apitest.New().
		Handler(app.handler).
		Delete("/api/posts/abc").
		Header("Authorization", "Bearer "+alice).
		Expect(t).
		Status(http.StatusBadRequest).
		End()
}

func TestPostsRejectOversizedContent(t *testing.T) {
	app := newTestApp(t)
	tok := app.register(t, "a@x.com", "pw1")

	apitest.New().
		Handler(app.handler).
		Post("/api/posts").
		Header("Authorization", "Bearer "+tok).
		JSON(fmt.Sprintf(`{"content":%q}`, strings.Repeat("x", 65))).
		Expect(t).
		Status(http.StatusBadRequest).
		Assert(jsonpath.Equal("$.message", "post is too large")).
		End()

	apitest.New().
		Handler(app.handler).
		Post("/api/posts").
		Header("Authorization", "Bearer "+tok).
		JSON(fmt.Sprintf(`{"content":%q}`, strings.Repeat("x", 10_000))).
		Expect(t).
		Status(http.StatusBadRequest).
		Assert(jsonpath.Equal("$.message", "post is too large")).
		End()

	apitest.New().
		Handler(app.handler).
		Post("/api/posts").
		Header("Authorization", "Bearer "+tok).
		JSON(`{"content":""}`).
		Expect(t).
		Status(http.StatusBadRequest).
		Assert(jsonpath.Present("$.error.content")).
		End()
}

func TestSearchWithoutIndexIsEmpty(t *testing.T) {
	app := newTestApp(t)
	tok := app.register(t, "a@x.com", "pw1")

	apitest.New().
		Handler(app.handler).
		Get("/api/posts/search").
		Query("q", "hello").
		Header("Authorization", "Bearer "+tok).
		Expect(t).
		Status(http.StatusOK).
		Assert(jsonpath.Len("$.data.posts", 0)).
		End()

	apitest.New().
		Handler(app.handler).
		Get("/api/posts/search").
		Header("Authorization", "Bearer "+tok).
		Expect(t).
		Status(http.StatusBadRequest).
		Assert(jsonpath.Present("$.error.q")).
		End()
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	app := newTestApp(t)
	jwtm, err := helpers.NewJWTManager("router-test-secret", "HS256", time.Minute)
	require.NoError(t, err)
	expired, _, err := jwtm.IssueWithTTL("a@x.com", -time.Minute)
	require.NoError(t, err)
	app.register(t, "a@x.com", "pw1")

	for _, path := range []string{"/api/posts", "/api/me", "/api/posts/search?q=x"} {
		apitest.New().
			Handler(app.handler).
			Get(path).
			Expect(t).
			Status(http.StatusUnauthorized).
			End()
	}

	apitest.New().
		Handler(app.handler).
		Get("/api/posts").
		Header("Authorization", "Bearer "+expired).
		Expect(t).
		Status(http.StatusUnauthorized).
		Assert(jsonpath.Equal("$.message", "token has expired")).
		End()

	apitest.New().
		Handler(app.handler).
		Post("/api/posts").
		Header("Authorization", "Bearer not.a.token").
		JSON(`{"content":"x"}`).
		Expect(t).
		Status(http.StatusUnauthorized).
		Assert(jsonpath.Equal("$.message", "invalid token")).
		End()
	require.Empty(t, app.store.posts)
}

func TestRegisterIsRateLimited(t *testing.T) {
	app := newTestApp(t)
	for i := 0; i < 5; i++ {
		app.register(t, fmt.Sprintf("u%d@x.com", i), "pw1")
	}
	apitest.New().
		Handler(app.handler).
		Post("/api/auth/register").
		JSON(`{"email":"u5@x.com","password":"pw1"}`).
		Expect(t).
		Status(http.StatusTooManyRequests).
		Header("X-RateLimit-Limit", "5").
		End()
}

func TestDebugVarsPrivateOnly(t *testing.T) {
	app := newTestApp(t)
	app.register(t, "a@x.com", "pw1")

	apitest.New().
		Handler(app.handler).
		Get("/api/debug/vars").
		Header("X-Forwarded-For", "10.0.0.8").
		Expect(t).
		Status(http.StatusOK).
		Assert(jsonpath.Present("$.auth.register_ok")).
		End()

	apitest.New().
		Handler(app.handler).
		Get("/api/debug/vars").
		Header("X-Forwarded-For", "8.8.8.8").
		Expect(t).
		Status(http.StatusForbidden).
		End()
}

func TestHealthAndNoRoute(t *testing.T) {
	app := newTestApp(t)

	apitest.New().
		Handler(app.handler).
		Get("/healthz").
		Expect(t).
		Status(http.StatusOK).
		Body(`{"status":"ok"}`).
		End()

	apitest.New().
		Handler(app.handler).
		Get("/api/nope").
		Expect(t).
		Status(http.StatusNotFound).
		Assert(jsonpath.Equal("$.message", "route not found")).
		End()
}
