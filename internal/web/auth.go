package web

import (
	"errors"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nao1215/gearboard/pkg/middleware"
)

// 開発用ユーザーの識別情報。
const (
	devProvider       = "dev"
	devProviderUserID = "dev-user"
	devBattleTag      = "Developer#0000"
)

// handleDevLogin は開発用ユーザーでログインし、認証Cookieを発行するハンドラを返す。
// redirect パラメータがローカルパスならそこへ 303 で戻し、それ以外はJSONを返す。
func (s *Server) handleDevLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		user, err := s.store.GetUserByProvider(ctx, devProvider, devProviderUserID)
		switch {
		case errors.Is(err, ErrUserNotFound):
			user = User{
				ID:             uuid.New().String(),
				Provider:       devProvider,
				ProviderUserID: devProviderUserID,
				BattleTag:      devBattleTag,
			}
			if err := s.store.CreateUser(ctx, user); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "ユーザー作成に失敗しました"})
				log.Printf("開発ユーザー作成エラー: %v", err)
				return
			}
		case err != nil:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "ユーザー取得に失敗しました"})
			log.Printf("開発ユーザー取得エラー: %v", err)
			return
		default:
			if err := s.store.UpdateLastLogin(ctx, user.ID); err != nil {
				log.Printf("最終ログイン日時の更新エラー: %v", err)
			}
		}

		access, err := middleware.GenerateJWT(s.cfg.JWTSecret, user.ID, user.BattleTag, middleware.TokenAccess)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "トークン生成に失敗しました"})
			log.Printf("JWT生成エラー: %v", err)
			return
		}
		refresh, err := middleware.GenerateJWT(s.cfg.JWTSecret, user.ID, user.BattleTag, middleware.TokenRefresh)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "トークン生成に失敗しました"})
			log.Printf("JWT生成エラー: %v", err)
			return
		}

		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(middleware.AccessTokenCookie, access,
			int(middleware.AccessTokenTTL.Seconds()), "/", "", s.cfg.CookieSecure, true)
		c.SetCookie(middleware.RefreshTokenCookie, refresh,
			int(middleware.RefreshTokenTTL.Seconds()), "/", "", s.cfg.CookieSecure, true)

		if to := c.Query("redirect"); isLocalPath(to) {
			c.Redirect(http.StatusSeeOther, to)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"user_id":   user.ID,
			"battletag": user.BattleTag,
		})
	}
}

// handleSession は認証済みユーザーの情報を返すハンドラを返す。
func (s *Server) handleSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "ユーザーIDが取得できません"})
			return
		}

		user, err := s.store.GetUserByID(c.Request.Context(), userID)
		if errors.Is(err, ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "ユーザーが見つかりません"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "ユーザー取得に失敗しました"})
			log.Printf("セッション取得エラー: %v", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"id":        user.ID,
			"battletag": user.BattleTag,
			"provider":  user.Provider,
		})
	}
}

// handleLogout は認証Cookieの別名をすべて削除してホームへ戻すハンドラを返す。
func (s *Server) handleLogout() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.SetSameSite(http.SameSiteLaxMode)
		for _, name := range s.credentialCookies {
			c.SetCookie(name, "", -1, "/", "", s.cfg.CookieSecure, true)
		}
		c.Redirect(http.StatusSeeOther, "/")
	}
}

// isLocalPath は同一オリジン内のパスかを返す。
// "//host" や "/\host" はブラウザが別オリジンとして解釈するため拒否する。
// ブラウザはタブや改行を取り除いてから解釈するため、制御文字を含むものも拒否する。
func isLocalPath(p string) bool {
	if !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") || strings.HasPrefix(p, `/\`) {
		return false
	}
	if strings.ContainsFunc(p, isControl) {
		return false
	}
	u, err := url.Parse(p)
	return err == nil && u.Scheme == "" && u.Host == ""
}

func isControl(r rune) bool {
	return r < 0x20 || r == 0x7f
}
