// Package routegate はページ遷移リクエストに対するルートアクセスゲートを提供する。
//
// リクエストパスをバイパス・公開・保護の3種に分類し、保護ルートでは
// 認証Cookieの「存在」のみを確認して、転送するかログインページへ
// リダイレクトするかを決定する。トークンの検証は下流のAPIに委ねる。
// 判定は純粋関数であり、Gateは生成後に変更されないため並行利用できる。
package routegate
