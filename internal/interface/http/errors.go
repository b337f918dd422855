package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/F1veStar3/postboard/internal/application"
	"github.com/F1veStar3/postboard/pkg/helpers"
	"github.com/F1veStar3/postboard/pkg/response"
)

// writeError maps service errors to a status and envelope. Unknown errors
// are logged and surface as 500 without detail.
func writeError(c *gin.Context, logger *logrus.Logger, err error) {
	switch {
	case errors.Is(err, application.ErrInvalidCredentials):
		response.Error[any](c, http.StatusUnauthorized, "invalid email or password", nil)
	case errors.Is(err, application.ErrDuplicateIdentity):
		response.Error[any](c, http.StatusBadRequest, "user already exists", nil)
	case errors.Is(err, helpers.ErrExpiredToken):
		response.Error[any](c, http.StatusUnauthorized, helpers.ErrExpiredToken.Error(), nil)
	case errors.Is(err, helpers.ErrInvalidToken):
		response.Error[any](c, http.StatusUnauthorized, helpers.ErrInvalidToken.Error(), nil)
	case errors.Is(err, bcrypt.ErrPasswordTooLong):
		response.Error[any](c, http.StatusBadRequest, "invalid payload", map[string]string{"password": "must be at most 72 bytes"})
	case errors.Is(err, application.ErrPostTooLarge):
		response.Error[any](c, http.StatusBadRequest, "post is too large", err.Error())
	case errors.Is(err, application.ErrPostNotFound):
		response.Error[any](c, http.StatusNotFound, "post not found", nil)
	default:
		helpers.LogError(logger, "request failed", err, logrus.Fields{
			"request_id": c.GetString("request_id"),
			"path":       c.FullPath(),
		})
		response.Error[any](c, http.StatusInternalServerError, "internal server error", nil)
	}
}

func maxBytesMessage(n int) string {
	if n >= 1<<20 && n%(1<<20) == 0 {
		return fmt.Sprintf("maximum post size is %dMB", n>>20)
	}
	return fmt.Sprintf("maximum post size is %d bytes", n)
}

func isBodyTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}
