package middleware

import (
	"errors"
	"log"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
)

// Recovery はハンドラのパニックを500応答に変えるGinミドルウェアを返す。
// プロキシ中の応答が既に書き出されている場合は本文を追記せず中断だけ行う。
// http.ErrAbortHandler はnet/httpに接続を切らせるためそのまま再送出する。
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			if err, ok := r.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				panic(r)
			}

			log.Printf("[PANIC] request_id=%s %s %s: %v\n%s",
				GetRequestID(c), c.Request.Method, c.Request.URL.Path, r, debug.Stack())
			if c.Writer.Written() {
				c.Abort()
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": "内部サーバーエラーが発生しました",
			})
		}()
		c.Next()
	}
}
