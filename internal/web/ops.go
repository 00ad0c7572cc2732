package web

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nao1215/gearboard/pkg/httpclient"
	"github.com/nao1215/gearboard/pkg/middleware"
)

// readyTimeout は準備状態の確認全体のタイムアウト。
const readyTimeout = 3 * time.Second

// newOpsRouter は運用リスナーのルーターを構築する。
// ここのルートはルートゲートを通らない。
func (s *Server) newOpsRouter() *gin.Engine {
	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "web"})
	})
	router.GET("/ready", s.handleReady())
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))
	return router
}

// handleReady はデータベースと上流サービスが応答するかを確認するハンドラを返す。
func (s *Server) handleReady() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), readyTimeout)
		defer cancel()
		ctx = httpclient.WithRequestID(ctx, middleware.GetRequestID(c))

		checks := gin.H{}
		ready := true
		record := func(name string, err error) {
			if err != nil {
				checks[name] = err.Error()
				ready = false
				return
			}
			checks[name] = "ok"
		}

		record("database", s.store.Ping(ctx))
		record("guild_api", checkUpstream(ctx, s.guildAPI))
		record("renderer", checkUpstream(ctx, s.renderer))

		status := http.StatusOK
		if !ready {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"ready": ready, "checks": checks})
	}
}

// checkUpstream は上流サービスの /health が2xxを返すかを確認する。
func checkUpstream(ctx context.Context, client *httpclient.Client) error {
	return client.GetJSON(ctx, "/health", nil)
}
