package middleware

import (
	"crypto/subtle"

	"github.com/gin-gonic/gin"

	appErrors "github.com/rollbook/rollbook-api/pkg/errors"
	"github.com/rollbook/rollbook-api/pkg/response"
)

// AccessCodeHeader carries the shared code for the public report endpoints.
const AccessCodeHeader = "X-Access-Code"

// AccessCode gates unauthenticated report routes behind a shared code. With
// an empty configured code the routes are closed entirely.
func AccessCode(code string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if code == "" {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "public reports are disabled"))
			c.Abort()
			return
		}
		supplied := c.GetHeader(AccessCodeHeader)
		if supplied == "" {
			supplied = c.Query("access_code")
		}
		if subtle.ConstantTimeCompare([]byte(supplied), []byte(code)) != 1 {
			response.Error(c, appErrors.ErrInvalidAccessCode)
			c.Abort()
			return
		}
		c.Next()
	}
}
