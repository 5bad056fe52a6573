package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func serve(router *gin.Engine, method, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestInternalTokenAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/internal", InternalTokenAuth("ops-token", zap.NewNop()), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	assert.Equal(t, http.StatusUnauthorized, serve(router, http.MethodGet, "/internal", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, serve(router, http.MethodGet, "/internal", map[string]string{"Authorization": "ops-token"}).Code)
	assert.Equal(t, http.StatusForbidden, serve(router, http.MethodGet, "/internal", map[string]string{"Authorization": "Bearer nope"}).Code)
	assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/internal", map[string]string{"Authorization": "Bearer ops-token"}).Code)
}

func TestInternalTokenAuth_DisabledWithoutToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/internal", InternalTokenAuth("", zap.NewNop()), func(c *gin.Context) {
		t.Fatal("handler should not be reached")
	})

	w := serve(router, http.MethodGet, "/internal", map[string]string{"Authorization": "Bearer "})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRateLimit_PerSession(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(SessionIDKey, c.GetHeader("X-Session"))
		c.Next()
	})
	router.POST("/pay", RateLimit(6, zap.NewNop()), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	a := map[string]string{"X-Session": "a"}
	assert.Equal(t, http.StatusOK, serve(router, http.MethodPost, "/pay", a).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(router, http.MethodPost, "/pay", a).Code)
	assert.Equal(t, http.StatusOK, serve(router, http.MethodPost, "/pay", map[string]string{"X-Session": "b"}).Code)
}

func TestCORS(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(CORS(CORSConfig{
		FrontendURL: "https://hotel.example/reservation",
		Origins:     []string{"https://partner.example/"},
	}))
	router.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := serve(router, http.MethodOptions, "/x", map[string]string{"Origin": "https://hotel.example"})
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://hotel.example", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "PATCH")

	w = serve(router, http.MethodGet, "/x", map[string]string{"Origin": "https://partner.example"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://partner.example", w.Header().Get("Access-Control-Allow-Origin"))

	w = serve(router, http.MethodGet, "/x", map[string]string{"Origin": "https://evil.example"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	w = serve(router, http.MethodOptions, "/x", map[string]string{"Origin": "https://evil.example"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = serve(router, http.MethodOptions, "/x", map[string]string{"Origin": "http://localhost:5173"})
	assert.Equal(t, http.StatusForbidden, w.Code, "dev origins are off unless asked for")
}

func TestCORS_DevOrigins(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(CORS(CORSConfig{AllowDev: true}))
	router.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := serve(router, http.MethodOptions, "/x", map[string]string{"Origin": "http://localhost:5173"})
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestErrorLogger_RecoversPanic(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(ErrorLogger(zap.NewNop()))
	router.GET("/boom", func(c *gin.Context) { panic("boom") })

	w := serve(router, http.MethodGet, "/boom", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "INTERNAL_SERVER_ERROR")
	assert.NotContains(t, w.Body.String(), "goroutine")
}
