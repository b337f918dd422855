package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	handlers "github.com/F1veStar3/postboard/internal/interface/http"
	"github.com/F1veStar3/postboard/internal/interface/middleware"
)

// AuthModule serves registration, login and the current identity.
// Public: POST /api/auth/register, POST /api/auth/login
// Protected: GET /api/me
type AuthModule struct {
	Handler *handlers.AuthHandler
	Gate    gin.HandlerFunc
	RDB     redis.Cmdable
}

func NewAuthModule(h *handlers.AuthHandler, gate gin.HandlerFunc, rdb redis.Cmdable) *AuthModule {
	return &AuthModule{Handler: h, Gate: gate, RDB: rdb}
}

func (m *AuthModule) Register(rg *gin.RouterGroup) {
	registerLimiter := middleware.RateLimit(m.RDB, 5, time.Minute, middleware.KeyByIPAndPath(), nil)
	loginLimiter := middleware.RateLimit(m.RDB, 10, time.Minute, middleware.KeyByIPAndPath(), nil)

	rg.POST("/auth/register", registerLimiter, m.Handler.Register)
	rg.POST("/auth/login", loginLimiter, m.Handler.Login)

	auth := rg.Group("/")
	auth.Use(m.Gate)
	auth.Use(middleware.RateLimit(m.RDB, 120, time.Minute, middleware.KeyByUserID(), nil))
	{
		auth.GET("/me", m.Handler.Me)
	}
}
