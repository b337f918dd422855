package router

import (
	"github.com/F1veStar3/postboard/internal/application"
	"github.com/F1veStar3/postboard/internal/container"
	handlers "github.com/F1veStar3/postboard/internal/interface/http"
	"github.com/F1veStar3/postboard/internal/interface/middleware"
	"github.com/F1veStar3/postboard/internal/router/modules"
)

type AuthModuleDeps struct {
	Service *application.AuthService
	Handler *handlers.AuthHandler
}

type PostModuleDeps struct {
	Service *application.PostService
	Handler *handlers.PostHandler
}

func buildAuthDeps(c *container.Container) AuthModuleDeps {
	service := application.NewAuthService(
		c.Users,
		c.Hasher,
		c.JWT,
		c.EmailQueue(),
		c.Config.AppName,
		c.Logger,
	)
	return AuthModuleDeps{Service: service, Handler: handlers.NewAuthHandler(service, c.Logger)}
}

func buildPostDeps(c *container.Container) PostModuleDeps {
	service := application.NewPostService(
		c.Posts,
		c.PostListCache(),
		c.PostSearchIndex(),
		c.Config.PostMaxBytes,
		c.Logger,
	)
	return PostModuleDeps{Service: service, Handler: handlers.NewPostHandler(service, c.Logger)}
}

// InitModules wires every feature module from the container and adds it to the registry.
// Call once during startup, before RegisterAll.
func InitModules(r *Registry, c *container.Container) {
	gate := middleware.Auth(c.JWT, c.Users, c.Config.AuthLookupTimeout, c.Logger)
	rdb := c.RedisCmd()

	authDeps := buildAuthDeps(c)
	postDeps := buildPostDeps(c)

	r.Add(modules.NewAuthModule(authDeps.Handler, gate, rdb))
	r.Add(modules.NewPostModule(postDeps.Handler, gate, rdb))
	if c.Config.DebugMetricsEnabled {
		r.Add(modules.NewDebugModule(rdb))
	}
}
