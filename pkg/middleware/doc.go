// Package middleware はwebサービスで使用する共通のGinミドルウェアを提供する。
//
// ルートアクセスゲートのGinアダプタ、JWTの発行と検証、リクエストID、
// パニックリカバリ、CORS設定を含む。
package middleware
