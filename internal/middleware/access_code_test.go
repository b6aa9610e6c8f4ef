package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newAccessCodeRouter(code string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/public/ping", AccessCode(code), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func TestAccessCodeHeaderMatch(t *testing.T) {
	router := newAccessCodeRouter("open-sesame")

	req := httptest.NewRequest(http.MethodGet, "/public/ping", nil)
	req.Header.Set(AccessCodeHeader, "open-sesame")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAccessCodeQueryFallback(t *testing.T) {
	router := newAccessCodeRouter("open-sesame")

	req := httptest.NewRequest(http.MethodGet, "/public/ping?access_code=open-sesame", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAccessCodeWrongCodeForbidden(t *testing.T) {
	router := newAccessCodeRouter("open-sesame")

	req := httptest.NewRequest(http.MethodGet, "/public/ping", nil)
	req.Header.Set(AccessCodeHeader, "guess")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAccessCodeEmptyConfigClosesRoute(t *testing.T) {
	router := newAccessCodeRouter("")

	req := httptest.NewRequest(http.MethodGet, "/public/ping", nil)
	req.Header.Set(AccessCodeHeader, "")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
