package web

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/nao1215/gearboard/pkg/migration"
)

//go:embed migrations
var migrationsFS embed.FS

// ErrUserNotFound はユーザーが存在しない場合に返される。
var ErrUserNotFound = errors.New("ユーザーが見つかりません")

// User はログインしたことのあるユーザー。
type User struct {
	// ID はユーザーの一意識別子。
	ID string
	// Provider は認証プロバイダ名（"bnet" や "dev"）。
	Provider string
	// ProviderUserID はプロバイダ側のユーザーID。
	ProviderUserID string
	// BattleTag はBattle.netのバトルタグ。
	BattleTag string
	// CreatedAt は作成日時。
	CreatedAt time.Time
	// LastLoginAt は最終ログイン日時。
	LastLoginAt time.Time
}

// Store はユーザー情報をSQLiteに保存する。
type Store struct {
	db *sql.DB
}

// NewStore はマイグレーションを適用してStoreを生成する。
func NewStore(ctx context.Context, db *sql.DB) (*Store, error) {
	if _, err := migration.Run(ctx, db, migrationsFS, "migrations"); err != nil {
		return nil, fmt.Errorf("スキーマ初期化に失敗: %w", err)
	}
	return &Store{db: db}, nil
}

// Ping はデータベースへの接続を確認する。
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

const userColumns = `id, provider, provider_user_id, battletag, created_at, last_login_at`

// GetUserByID はIDでユーザーを取得する。
func (s *Store) GetUserByID(ctx context.Context, id string) (User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

// GetUserByProvider はプロバイダとプロバイダ側IDでユーザーを取得する。
func (s *Store) GetUserByProvider(ctx context.Context, provider, providerUserID string) (User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE provider = ? AND provider_user_id = ?`,
		provider, providerUserID)
	return scanUser(row)
}

// CreateUser はユーザーを作成する。
func (s *Store) CreateUser(ctx context.Context, u User) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, provider, provider_user_id, battletag) VALUES (?, ?, ?, ?)`,
		u.ID, u.Provider, u.ProviderUserID, u.BattleTag)
	if err != nil {
		return fmt.Errorf("ユーザーの作成に失敗: %w", err)
	}
	return nil
}

// UpdateLastLogin は最終ログイン日時を現在時刻に更新する。
func (s *Store) UpdateLastLogin(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET last_login_at = datetime('now') WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("最終ログイン日時の更新に失敗: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrUserNotFound
	}
	return nil
}

func scanUser(row *sql.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Provider, &u.ProviderUserID, &u.BattleTag, &u.CreatedAt, &u.LastLoginAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("ユーザーの取得に失敗: %w", err)
	}
	return u, nil
}
