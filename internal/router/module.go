package router

import "github.com/gin-gonic/gin"

// Module is a feature area (auth, posts, debug) that mounts its own routes,
// limiters and gate on the /api group.
type Module interface {
	Register(rg *gin.RouterGroup)
}
