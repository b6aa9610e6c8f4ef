package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/rollbook/rollbook-api/internal/models"
)

func newRBACRouter(claims *models.JWTClaims, allowed ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/users/:id", func(c *gin.Context) {
		if claims != nil {
			c.Set(ContextUserKey, claims)
		}
		c.Next()
	}, RBAC(allowed...), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func doRBAC(router *gin.Engine, path string) int {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w.Code
}

func TestRBACAllowsMatchingRole(t *testing.T) {
	router := newRBACRouter(&models.JWTClaims{UserID: "u-1", Role: models.RoleAdmin}, "ADMIN")
	assert.Equal(t, http.StatusOK, doRBAC(router, "/users/u-2"))
}

func TestRBACBlocksOtherRoles(t *testing.T) {
	router := newRBACRouter(&models.JWTClaims{UserID: "u-1", Role: models.RoleFaculty}, "ADMIN")
	assert.Equal(t, http.StatusForbidden, doRBAC(router, "/users/u-2"))
}

func TestRBACSelfMatchesOwnID(t *testing.T) {
	router := newRBACRouter(&models.JWTClaims{UserID: "u-1", Role: models.RoleFaculty}, "ADMIN", "SELF")
	assert.Equal(t, http.StatusOK, doRBAC(router, "/users/u-1"))
	assert.Equal(t, http.StatusForbidden, doRBAC(router, "/users/u-2"))
}

func TestRBACMissingClaimsUnauthorized(t *testing.T) {
	router := newRBACRouter(nil, "ADMIN")
	assert.Equal(t, http.StatusUnauthorized, doRBAC(router, "/users/u-1"))
}
