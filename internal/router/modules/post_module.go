package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	handlers "github.com/F1veStar3/postboard/internal/interface/http"
	"github.com/F1veStar3/postboard/internal/interface/middleware"
)

// PostModule serves the caller's posts. Every route sits behind the gate.
type PostModule struct {
	Handler *handlers.PostHandler
	Gate    gin.HandlerFunc
	RDB     redis.Cmdable
}

func NewPostModule(h *handlers.PostHandler, gate gin.HandlerFunc, rdb redis.Cmdable) *PostModule {
	return &PostModule{Handler: h, Gate: gate, RDB: rdb}
}

func (m *PostModule) Register(rg *gin.RouterGroup) {
	posts := rg.Group("/posts")
	posts.Use(m.Gate)
	posts.Use(middleware.RateLimit(m.RDB, 120, time.Minute, middleware.KeyByUserID(), nil))
	{
		posts.POST("", m.Handler.Create)
		posts.GET("", m.Handler.List)
		posts.GET("/search", m.Handler.Search)
		posts.DELETE("/:id", m.Handler.Delete)
	}
}
