package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"mtglog/app/logger"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newEngine(secret string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestLogger(logger.NewNop()))
	r.POST("/p", BearerAuth(secret, logger.NewNop()), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return r
}

func do(r http.Handler, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/p", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestBearerAuth(t *testing.T) {
	r := newEngine("s3cret")

	assert.Equal(t, http.StatusOK, do(r, "Bearer s3cret").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "Bearer nope").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "").Code)

	w := do(r, "Bearer nope")
	assert.JSONEq(t, `{"error":"unauthorized"}`, w.Body.String())
}

func TestBearerAuthMisconfigured(t *testing.T) {
	r := newEngine("")
	assert.Equal(t, http.StatusInternalServerError, do(r, "Bearer anything").Code)
}

func TestRequestLoggerEchoesRequestID(t *testing.T) {
	r := newEngine("s3cret")

	w := do(r, "Bearer s3cret")
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodPost, "/p", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	req.Header.Set("Authorization", "Bearer s3cret")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, "req-42", rec.Header().Get(RequestIDHeader))
}
