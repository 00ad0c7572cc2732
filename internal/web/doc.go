// Package web はギア進捗トラッカーのフロントエンドを配信するHTTPサーバーを提供する。
//
// 全リクエストはまずルートアクセスゲートを通る。静的アセットはディスクから、
// /api 配下はギルドAPIへ、それ以外のページはページ描画サーバーへ転送する。
// ログアウトと開発用ログインはこのサービス自身が処理する。
// ヘルスチェックとメトリクスは別の運用リスナーで提供する。
package web
