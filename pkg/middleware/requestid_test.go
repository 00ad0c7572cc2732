package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// TestRequestID はRequestIDミドルウェアを検証する。
func TestRequestID(t *testing.T) {
	t.Parallel()

	newRouter := func(captured *string) *gin.Engine {
		router := gin.New()
		router.Use(RequestID())
		router.GET("/test", func(c *gin.Context) {
			*captured = GetRequestID(c)
			c.Status(http.StatusNoContent)
		})
		return router
	}

	t.Run("ヘッダーが無い場合UUIDが生成されること", func(t *testing.T) {
		t.Parallel()

		var captured string
		w := httptest.NewRecorder()
		newRouter(&captured).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

		if _, err := uuid.Parse(captured); err != nil {
			t.Errorf("リクエストID %q がUUIDではない: %v", captured, err)
		}
		if got := w.Header().Get(HeaderRequestID); got != captured {
			t.Errorf("X-Request-ID = %q, want %q", got, captured)
		}
	})

	t.Run("受信したリクエストIDが引き継がれること", func(t *testing.T) {
		t.Parallel()

		var captured string
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set(HeaderRequestID, "upstream-id-1")
		w := httptest.NewRecorder()
		newRouter(&captured).ServeHTTP(w, req)

		if captured != "upstream-id-1" {
			t.Errorf("リクエストID = %q, want %q", captured, "upstream-id-1")
		}
	})

	t.Run("長すぎるリクエストIDは置き換えられること", func(t *testing.T) {
		t.Parallel()

		var captured string
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set(HeaderRequestID, strings.Repeat("a", maxRequestIDLength+1))
		w := httptest.NewRecorder()
		newRouter(&captured).ServeHTTP(w, req)

		if _, err := uuid.Parse(captured); err != nil {
			t.Errorf("リクエストID %q がUUIDではない: %v", captured, err)
		}
	})
}
