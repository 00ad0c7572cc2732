package middleware

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nao1215/gearboard/internal/routegate"
)

// DecisionRecorder はルートゲートの判定を記録する。
type DecisionRecorder interface {
	RecordDecision(d routegate.Decision)
}

// RouteGate はルートアクセスゲートの判定に従ってリクエストを通すかリダイレクトするGinミドルウェアを返す。
// gateがnilの場合、ゲートは無効で全リクエストを通す。recはnilでもよい。
func RouteGate(gate *routegate.Gate, rec DecisionRecorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		d := gate.Decide(routegate.FromHTTPRequest(c.Request))
		if rec != nil {
			rec.RecordDecision(d)
		}

		switch d.Kind {
		case routegate.RedirectToLogin, routegate.Redirect:
			log.Printf("[RouteGate] request_id=%s %s %s -> %s (%s)",
				GetRequestID(c), c.Request.Method, c.Request.URL.Path, d.Location, d.Kind)
			c.Redirect(http.StatusTemporaryRedirect, d.Location)
			c.Abort()
		default:
			c.Next()
		}
	}
}
