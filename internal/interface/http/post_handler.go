package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/F1veStar3/postboard/internal/application"
	"github.com/F1veStar3/postboard/internal/domain/entity"
	"github.com/F1veStar3/postboard/internal/interface/middleware"
	"github.com/F1veStar3/postboard/pkg/response"
	"github.com/F1veStar3/postboard/pkg/validation"
)

type PostHandler struct {
	Svc    *application.PostService
	Logger *logrus.Logger
}

func NewPostHandler(svc *application.PostService, logger *logrus.Logger) *PostHandler {
	return &PostHandler{Svc: svc, Logger: logger}
}

type createPostRequest struct {
	Content string `json:"content" binding:"required"`
}

type searchPostsQuery struct {
	Q    string `form:"q" binding:"required,max=256"`
	Size int    `form:"size" binding:"omitempty,gte=1,lte=50"`
}

type postView struct {
	ID        int64     `json:"id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

func toPostViews(posts []entity.Post) []postView {
	out := make([]postView, 0, len(posts))
	for _, p := range posts {
		out = append(out, postView{ID: p.ID, Content: p.Content, CreatedAt: p.CreatedAt})
	}
	return out
}

// maxPostBodyBytes caps the raw request body. A content byte can take six
// bytes once JSON-escaped (\u00XX); the service enforces the real limit.
func maxPostBodyBytes(maxContent int) int64 {
	return int64(maxContent)*6 + 1024
}

// Create POST /api/posts
func (h *PostHandler) Create(c *gin.Context) {
	u := middleware.CurrentUser(c)
	if h.Svc.MaxBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxPostBodyBytes(h.Svc.MaxBytes))
	}
	var req createPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if isBodyTooLarge(err) {
			response.Error[any](c, http.StatusBadRequest, "post is too large", maxBytesMessage(h.Svc.MaxBytes))
			return
		}
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	p, err := h.Svc.Create(c.Request.Context(), u.ID, req.Content)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"post_id": p.ID}, "post created", nil)
}

// List GET /api/posts
func (h *PostHandler) List(c *gin.Context) {
	u := middleware.CurrentUser(c)
	posts, err := h.Svc.List(c.Request.Context(), u.ID)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"posts": toPostViews(posts)}, "ok", map[string]any{"count": len(posts)})
}

// Search GET /api/posts/search?q=&size=
func (h *PostHandler) Search(c *gin.Context) {
	u := middleware.CurrentUser(c)
	var q searchPostsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid query", validation.ToDetails(err))
		return
	}
	posts, err := h.Svc.Search(c.Request.Context(), u.ID, q.Q, q.Size)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"posts": toPostViews(posts)}, "ok", map[string]any{"count": len(posts)})
}

// Delete DELETE /api/posts/:id
func (h *PostHandler) Delete(c *gin.Context) {
	u := middleware.CurrentUser(c)
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error[any](c, http.StatusBadRequest, "invalid post id", nil)
		return
	}
	if err := h.Svc.Delete(c.Request.Context(), u.ID, id); err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true}, "post deleted", nil)
}
