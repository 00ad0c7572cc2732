// Package httpclient は上流サービスとのJSON HTTP通信を行うクライアントを提供する。
//
// webサービスが上流API（ギルドAPI、ページ描画サーバー）の状態を
// 確認する際に使用する。リクエストIDをコンテキストから伝播する。
package httpclient
