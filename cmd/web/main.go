// webサービスのエントリポイント。
// ギア進捗トラッカーのフロントエンドを配信し、全ページの前でルートアクセスゲートを適用する。
package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/gearboard/internal/config"
	"github.com/nao1215/gearboard/internal/web"
)

// shutdownTimeout はグレースフルシャットダウンの待ち時間。
const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("設定の読み込みに失敗: %v", err)
	}

	server, err := web.NewServer(ctx, cfg)
	if err != nil {
		log.Fatalf("webサーバーの初期化に失敗: %v", err)
	}
	defer server.Close()

	public := &http.Server{
		Addr:              net.JoinHostPort("", cfg.Port),
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	ops := &http.Server{
		Addr:              cfg.OpsAddr,
		Handler:           server.OpsHandler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	if !cfg.RouteGate.Enabled {
		log.Printf("[RouteGate] ルートアクセスゲートは無効です")
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, srv := range []*http.Server{public, ops} {
		srv := srv
		g.Go(func() error {
			log.Printf("webサービスを起動します: %s", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return errors.Join(public.Shutdown(shutdownCtx), ops.Shutdown(shutdownCtx))
	})

	if err := g.Wait(); err != nil {
		log.Fatalf("webサービスが異常終了しました: %v", err)
	}
	log.Printf("webサービスを停止しました")
}
