package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/F1veStar3/postboard/internal/domain/entity"
	"github.com/F1veStar3/postboard/pkg/helpers"
	"github.com/F1veStar3/postboard/pkg/response"
)

const (
	CtxUserKey   = "currentUser"
	CtxUserIDKey = "userID"
)

// DefaultLookupTimeout bounds the identity lookup when Auth is given a non-positive timeout.
const DefaultLookupTimeout = 3 * time.Second

// TokenVerifier is implemented by *helpers.JWTManager.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// IdentityLookup resolves a token subject to the account it names.
type IdentityLookup interface {
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
}

// Auth requires a valid "Authorization: Bearer <token>" header whose subject names
// an existing user. Every failure ends the request with 401.
func Auth(verifier TokenVerifier, users IdentityLookup, timeout time.Duration, logger *logrus.Logger) gin.HandlerFunc {
	if timeout <= 0 {
		timeout = DefaultLookupTimeout
	}
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.Header("WWW-Authenticate", "Bearer")
			response.Abort(c, http.StatusUnauthorized, "missing bearer token", nil)
			return
		}

		subject, err := verifier.Verify(token)
		if err != nil {
			c.Header("WWW-Authenticate", `Bearer error="invalid_token"`)
			msg := helpers.ErrInvalidToken.Error()
			if errors.Is(err, helpers.ErrExpiredToken) {
				msg = helpers.ErrExpiredToken.Error()
			}
			response.Abort(c, http.StatusUnauthorized, msg, nil)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()
		u, err := users.GetByEmail(ctx, subject)
		if err != nil || u == nil {
			if logger != nil && err != nil {
				logger.WithError(err).WithField("request_id", c.GetString("request_id")).Debug("auth identity lookup failed")
			}
			c.Header("WWW-Authenticate", `Bearer error="invalid_token"`)
			response.Abort(c, http.StatusUnauthorized, "could not validate credentials", nil)
			return
		}

		c.Set(CtxUserKey, u)
		c.Set(CtxUserIDKey, u.ID)
		c.Next()
	}
}

// CurrentUser returns the user stored by Auth, or nil outside a protected route.
func CurrentUser(c *gin.Context) *entity.User {
	v, ok := c.Get(CtxUserKey)
	if !ok {
		return nil
	}
	u, _ := v.(*entity.User)
	return u
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
