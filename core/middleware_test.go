package core

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func originTestEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(OriginMiddleware(Config{AllowedOrigins: []string{"https://app.example/"}}))
	r.POST("/x", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func TestOriginMiddlewarePreflight(t *testing.T) {
	r := originTestEngine()

	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "https://APP.example")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://APP.example", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Expose-Headers"), "X-Slide-Count")
}

func TestOriginMiddlewareReferer(t *testing.T) {
	r := originTestEngine()

	req := httptest.NewRequest(http.MethodPost, "/x", nil)
	req.Header.Set("Referer", "https://evil.example/page")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/x", nil)
	req.Header.Set("Referer", "https://app.example/upload")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSameSiteFromString(t *testing.T) {
	assert.Equal(t, http.SameSiteLaxMode, sameSiteFromString("Lax"))
	assert.Equal(t, http.SameSiteNoneMode, sameSiteFromString("none"))
	assert.Equal(t, http.SameSiteStrictMode, sameSiteFromString(""))
}
