package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// TokenType はJWTの種別。アクセストークンとリフレッシュトークンを区別する。
type TokenType string

const (
	// TokenAccess は短命なアクセストークン。
	TokenAccess TokenType = "access"
	// TokenRefresh はアクセストークンを再発行するためのリフレッシュトークン。
	TokenRefresh TokenType = "refresh"
)

const (
	// AccessTokenTTL はアクセストークンの有効期間。
	AccessTokenTTL = 15 * time.Minute
	// RefreshTokenTTL はリフレッシュトークンの有効期間。
	RefreshTokenTTL = 7 * 24 * time.Hour

	// AccessTokenCookie はアクセストークンを格納するCookie名。
	AccessTokenCookie = "access_token"
	// RefreshTokenCookie はリフレッシュトークンを格納するCookie名。
	RefreshTokenCookie = "refresh_token"

	// tokenIssuer はトークンの発行者。
	tokenIssuer = "gearboard-web"
)

// ErrTokenType はトークンの種別が期待と異なる場合に返される。
var ErrTokenType = errors.New("トークンの種別が不正です")

// JWTClaims はJWTトークンのクレーム（ペイロード）を表す。
type JWTClaims struct {
	jwt.RegisteredClaims
	// UserID は認証済みユーザーの一意識別子。
	UserID string `json:"user_id"`
	// BattleTag はBattle.netのバトルタグ。
	BattleTag string `json:"battletag"`
	// TokenType はアクセストークンかリフレッシュトークンか。
	TokenType TokenType `json:"token_type"`
}

// headerKeyUserID は上流にユーザーIDを伝播するためのHTTPヘッダーキー。
const headerKeyUserID = "X-User-ID"

// GenerateJWT はユーザー情報から指定種別のJWTトークンを生成する。
func GenerateJWT(secret, userID, battleTag string, tokenType TokenType) (string, error) {
	ttl := AccessTokenTTL
	if tokenType == TokenRefresh {
		ttl = RefreshTokenTTL
	}

	now := time.Now()
	claims := JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
		},
		UserID:    userID,
		BattleTag: battleTag,
		TokenType: tokenType,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("JWTトークンの署名に失敗: %w", err)
	}
	return signed, nil
}

// ParseJWT はトークンを検証し、期待する種別であればクレームを返す。
func ParseJWT(secret, tokenString string, want TokenType) (*JWTClaims, error) {
	claims := &JWTClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(_ *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("トークンの検証に失敗: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("トークンが無効です")
	}
	if claims.TokenType != want {
		return nil, ErrTokenType
	}
	return claims, nil
}

// JWTAuth はアクセストークンを検証するGinミドルウェアを返す。
// Authorizationヘッダーを優先し、無い場合は access_token Cookie を使う。
// 検証に成功した場合、コンテキストに "user_id" と "battletag" を設定する。
func JWTAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c)
		if !ok {
			return
		}

		claims, err := ParseJWT(secret, tokenString, TokenAccess)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "トークンが無効です",
			})
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("battletag", claims.BattleTag)
		c.Header(headerKeyUserID, claims.UserID)
		c.Next()
	}
}

// bearerToken はリクエストからアクセストークンを取り出す。
// 取り出せない場合は401を返してfalseを返す。
func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		cookie, err := c.Cookie(AccessTokenCookie)
		if err != nil || cookie == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "認証されていません",
			})
			return "", false
		}
		return cookie, true
	}

	tokenString, found := strings.CutPrefix(authHeader, "Bearer ")
	if !found {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": "Bearer トークン形式が不正です",
		})
		return "", false
	}
	return tokenString, true
}

// GetUserID はGinコンテキストからユーザーIDを取得する。
// JWTAuthミドルウェアが事前に適用されている必要がある。
func GetUserID(c *gin.Context) string {
	return c.GetString("user_id")
}
