package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// newHealthUpstream は /health に指定したステータスで応答するモック上流を生成する。
func newHealthUpstream(t *testing.T, status int) *httptest.Server {
	t.Helper()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	t.Cleanup(ts.Close)
	return ts
}

// serveOps はリクエストを運用リスナーに流してレスポンスを返す。
func serveOps(s *Server, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.OpsHandler().ServeHTTP(w, req)
	return w
}

// TestOps は運用リスナーのエンドポイントを検証する。
func TestOps(t *testing.T) {
	t.Parallel()

	t.Run("ヘルスチェックが200を返すこと", func(t *testing.T) {
		t.Parallel()

		s := newTestServer(t, testConfig(t, "http://127.0.0.1:1", "http://127.0.0.1:1"))
		w := serveOps(s, httptest.NewRequest(http.MethodGet, "/health", nil))

		if w.Code != http.StatusOK {
			t.Fatalf("ステータスコード = %d, want %d", w.Code, http.StatusOK)
		}
		var body map[string]string
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("レスポンスのパースに失敗: %v", err)
		}
		if body["status"] != "ok" || body["service"] != "web" {
			t.Errorf("body = %v", body)
		}
	})

	t.Run("上流がすべて応答すれば準備完了になること", func(t *testing.T) {
		t.Parallel()

		api := newHealthUpstream(t, http.StatusOK)
		renderer := newHealthUpstream(t, http.StatusOK)
		s := newTestServer(t, testConfig(t, api.URL, renderer.URL))

		w := serveOps(s, httptest.NewRequest(http.MethodGet, "/ready", nil))

		if w.Code != http.StatusOK {
			t.Fatalf("ステータスコード = %d, want %d, body = %s", w.Code, http.StatusOK, w.Body.String())
		}
	})

	t.Run("準備状態の確認でリクエストIDが上流に伝播されること", func(t *testing.T) {
		t.Parallel()

		ids := make(chan string, 2)
		upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ids <- r.Header.Get("X-Request-ID")
			w.WriteHeader(http.StatusOK)
		}))
		t.Cleanup(upstream.Close)
		s := newTestServer(t, testConfig(t, upstream.URL, upstream.URL))

		req := httptest.NewRequest(http.MethodGet, "/ready", nil)
		req.Header.Set("X-Request-ID", "ready-check-1")
		w := serveOps(s, req)

		if w.Code != http.StatusOK {
			t.Fatalf("ステータスコード = %d, want %d, body = %s", w.Code, http.StatusOK, w.Body.String())
		}
		if got := w.Header().Get("X-Request-ID"); got != "ready-check-1" {
			t.Errorf("レスポンスのX-Request-ID = %q, want %q", got, "ready-check-1")
		}
		for i := 0; i < 2; i++ {
			if got := <-ids; got != "ready-check-1" {
				t.Errorf("上流のX-Request-ID = %q, want %q", got, "ready-check-1")
			}
		}
	})

	t.Run("上流が異常なら503と原因が返ること", func(t *testing.T) {
		t.Parallel()

		api := newHealthUpstream(t, http.StatusOK)
		renderer := newHealthUpstream(t, http.StatusServiceUnavailable)
		s := newTestServer(t, testConfig(t, api.URL, renderer.URL))

		w := serveOps(s, httptest.NewRequest(http.MethodGet, "/ready", nil))

		if w.Code != http.StatusServiceUnavailable {
			t.Fatalf("ステータスコード = %d, want %d", w.Code, http.StatusServiceUnavailable)
		}
		var body struct {
			Ready  bool              `json:"ready"`
			Checks map[string]string `json:"checks"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("レスポンスのパースに失敗: %v", err)
		}
		if body.Ready {
			t.Error("ready = true, want false")
		}
		if body.Checks["guild_api"] != "ok" || body.Checks["database"] != "ok" {
			t.Errorf("checks = %v", body.Checks)
		}
		if body.Checks["renderer"] == "ok" {
			t.Error("rendererがokになっている")
		}
	})

	t.Run("メトリクスにゲートの判定とプロキシ結果が記録されること", func(t *testing.T) {
		t.Parallel()

		renderer, _ := newUpstream(t, "renderer")
		s := newTestServer(t, testConfig(t, "http://127.0.0.1:1", renderer.URL))

		serve(s, httptest.NewRequest(http.MethodGet, "/roster", nil))
		req := httptest.NewRequest(http.MethodGet, "/roster", nil)
		req.AddCookie(&http.Cookie{Name: "jwt", Value: "x"})
		serve(s, req)

		w := serveOps(s, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("ステータスコード = %d, want %d", w.Code, http.StatusOK)
		}

		body := w.Body.String()
		for _, want := range []string{
			`gearboard_route_gate_decisions_total{class="protected",kind="redirect_to_login"} 1`,
			`gearboard_route_gate_decisions_total{class="protected",kind="forward"} 1`,
			`gearboard_proxy_requests_total{status_class="2xx",target="renderer"} 1`,
			`go_goroutines`,
		} {
			if !strings.Contains(body, want) {
				t.Errorf("メトリクスに %q が含まれていない", want)
			}
		}
	})

	t.Run("運用リスナーはルートゲートを通らないこと", func(t *testing.T) {
		t.Parallel()

		s := newTestServer(t, testConfig(t, "http://127.0.0.1:1", "http://127.0.0.1:1"))
		w := serveOps(s, httptest.NewRequest(http.MethodGet, "/metrics", nil))

		if w.Code != http.StatusOK {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusOK)
		}
	})
}
