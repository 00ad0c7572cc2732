package web

import (
	"io"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/gearboard/pkg/middleware"
)

// プロキシ先の識別子。メトリクスのラベルとして使う。
const (
	targetGuildAPI = "guild_api"
	targetRenderer = "renderer"
)

// forwardHeaders は上流に転送するリクエストヘッダー。
var forwardHeaders = []string{
	"Accept",
	"Accept-Language",
	"Authorization",
	"Content-Type",
	"Cookie",
	"If-None-Match",
	"User-Agent",
	middleware.HeaderRequestID,
}

// hopHeaders は接続ごとのヘッダーで、レスポンスとして返してはならない。
var hopHeaders = map[string]struct{}{
	"Connection":          {},
	"Keep-Alive":          {},
	"Proxy-Authenticate":  {},
	"Proxy-Authorization": {},
	"Te":                  {},
	"Trailer":             {},
	"Transfer-Encoding":   {},
	"Upgrade":             {},
}

// handleProxy はリクエストのパスとクエリをそのまま baseURL へ転送するハンドラを返す。
func (s *Server) handleProxy(target, baseURL string) gin.HandlerFunc {
	return func(c *gin.Context) {
		proxyURL := strings.TrimSuffix(baseURL, "/") + c.Request.URL.EscapedPath()
		if c.Request.URL.RawQuery != "" {
			proxyURL += "?" + c.Request.URL.RawQuery
		}
		s.doProxy(c, target, proxyURL)
	}
}

// doProxy はリクエストを上流サービスに転送し、レスポンスをストリームで返す。
// 上流のリダイレクトは追わずにそのままクライアントへ返す。
func (s *Server) doProxy(c *gin.Context, target, url string) {
	start := time.Now()

	var body io.Reader
	if c.Request.ContentLength != 0 {
		body = c.Request.Body
	}
	req, err := http.NewRequestWithContext(c.Request.Context(), c.Request.Method, url, body)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "プロキシリクエストの作成に失敗しました"})
		return
	}
	req.ContentLength = c.Request.ContentLength

	for _, h := range forwardHeaders {
		for _, v := range c.Request.Header.Values(h) {
			req.Header.Add(h, v)
		}
	}
	if id := middleware.GetRequestID(c); id != "" {
		req.Header.Set(middleware.HeaderRequestID, id)
	}
	setForwardedHeaders(req, c.Request)

	resp, err := s.proxyClient.Do(req)
	if err != nil {
		s.metrics.RecordProxy(target, 0, time.Since(start))
		log.Printf("[Proxy] 上流との通信に失敗: target=%s url=%s error=%v", target, url, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "上流サービスとの通信に失敗しました"})
		return
	}
	defer resp.Body.Close()

	header := c.Writer.Header()
	for k, values := range resp.Header {
		if _, hop := hopHeaders[k]; hop {
			continue
		}
		for _, v := range values {
			header.Add(k, v)
		}
	}
	c.Status(resp.StatusCode)
	c.Writer.WriteHeaderNow()
	if _, err := io.Copy(c.Writer, resp.Body); err != nil {
		log.Printf("[Proxy] レスポンスの転送に失敗: target=%s url=%s error=%v", target, url, err)
	}
	s.metrics.RecordProxy(target, resp.StatusCode, time.Since(start))
}

// setForwardedHeaders は元のクライアント情報を X-Forwarded-* ヘッダーに載せる。
func setForwardedHeaders(out, in *http.Request) {
	if host, _, err := net.SplitHostPort(in.RemoteAddr); err == nil {
		if prior := in.Header.Get("X-Forwarded-For"); prior != "" {
			host = prior + ", " + host
		}
		out.Header.Set("X-Forwarded-For", host)
	}
	out.Header.Set("X-Forwarded-Host", in.Host)
	proto := "http"
	if in.TLS != nil {
		proto = "https"
	}
	out.Header.Set("X-Forwarded-Proto", proto)
}
