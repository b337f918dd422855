package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/F1veStar3/postboard/internal/application"
	"github.com/F1veStar3/postboard/internal/domain/entity"
	"github.com/F1veStar3/postboard/internal/interface/middleware"
	"github.com/F1veStar3/postboard/pkg/helpers"
)

type stubPosts struct{ created []entity.Post }

func (s *stubPosts) Create(_ context.Context, p *entity.Post) error {
	p.ID = int64(len(s.created) + 1)
	s.created = append(s.created, *p)
	return nil
}

func (s *stubPosts) ListByUser(context.Context, int64) ([]entity.Post, error) { return nil, nil }

func (s *stubPosts) DeleteByIDAndUser(context.Context, int64, int64) error { return nil }

func newPostRouter(maxBytes int) (*gin.Engine, *stubPosts) {
	gin.SetMode(gin.TestMode)
	repo := &stubPosts{}
	svc := application.NewPostService(repo, nil, nil, maxBytes, helpers.NewNopLogger())
	h := NewPostHandler(svc, helpers.NewNopLogger())

	r := gin.New()
	r.POST("/posts", func(c *gin.Context) {
		c.Set(middleware.CtxUserKey, &entity.User{ID: 1, Email: "a@x.com"})
	}, h.Create)
	return r, repo
}

func postContent(t *testing.T, r http.Handler, content string) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(map[string]string{"content": content})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/posts", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreatePost_EscapedContentWithinLimit(t *testing.T) {
	r, repo := newPostRouter(1024)

	// each control byte is sent as \u0001, six bytes on the wire
	w := postContent(t, r, strings.Repeat("\x01", 1024))
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	require.Len(t, repo.created, 1)
	assert.Len(t, repo.created[0].Content, 1024)

	w = postContent(t, r, strings.Repeat("\x01", 1025))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"message":"post is too large"`)
	assert.Len(t, repo.created, 1)
}

func TestCreatePost_BodyOverCap(t *testing.T) {
	r, repo := newPostRouter(16)

	w := postContent(t, r, strings.Repeat("x", int(maxPostBodyBytes(16))))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"message":"post is too large"`)
	assert.Empty(t, repo.created)
}
