package response

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ok", func(c *gin.Context) { Success(c, http.StatusOK, gin.H{"id": "1"}) })
	r.GET("/bad", func(c *gin.Context) {
		ErrorWithDetails(c, http.StatusUnprocessableEntity, "CARD_INVALID", "Card is invalid", map[string]string{"cardNumber": "Invalid card number"})
	})
	r.GET("/abort", func(c *gin.Context) { Abort(c, http.StatusTooManyRequests, "RATE_LIMITED", "slow down") }, func(c *gin.Context) {
		t.Fatal("chain should stop")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	assert.JSONEq(t, `{"success":true,"data":{"id":"1"}}`, w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/bad", nil))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.JSONEq(t, `{"success":false,"error":{"code":"CARD_INVALID","message":"Card is invalid","details":{"cardNumber":"Invalid card number"}}}`, w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/abort", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.JSONEq(t, `{"success":false,"error":{"code":"RATE_LIMITED","message":"slow down"}}`, w.Body.String())
}
