package migration

import (
	"context"
	"database/sql"
	"slices"
	"testing"
	"testing/fstest"

	_ "modernc.org/sqlite"
)

// openTestDB はテスト用のインメモリSQLiteを開く。
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("インメモリDB接続に失敗: %v", err)
	}
	// インメモリDBは接続ごとに別物になるため1接続に固定する
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

// TestRun はRun関数を検証する。
func TestRun(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"migrations/000002_add_index.up.sql":      {Data: []byte("CREATE INDEX idx_users_name ON users(name);")},
		"migrations/000001_create_users.up.sql":   {Data: []byte("CREATE TABLE users (id TEXT PRIMARY KEY, name TEXT NOT NULL);")},
		"migrations/000001_create_users.down.sql": {Data: []byte("DROP TABLE users;")},
		"migrations/README.md":                    {Data: []byte("ignored")},
	}

	t.Run("バージョン順に適用されること", func(t *testing.T) {
		t.Parallel()

		db := openTestDB(t)
		applied, err := Run(context.Background(), db, fsys, "migrations")
		if err != nil {
			t.Fatalf("Run()でエラーが発生: %v", err)
		}
		if !slices.Equal(applied, []int{1, 2}) {
			t.Errorf("applied = %v, want [1 2]", applied)
		}

		if _, err := db.Exec("INSERT INTO users (id, name) VALUES ('1', 'Thrall')"); err != nil {
			t.Errorf("マイグレーション後のINSERTに失敗: %v", err)
		}
	})

	t.Run("2回目の実行では何も適用されないこと", func(t *testing.T) {
		t.Parallel()

		db := openTestDB(t)
		if _, err := Run(context.Background(), db, fsys, "migrations"); err != nil {
			t.Fatalf("1回目のRun()でエラーが発生: %v", err)
		}
		applied, err := Run(context.Background(), db, fsys, "migrations")
		if err != nil {
			t.Fatalf("2回目のRun()でエラーが発生: %v", err)
		}
		if len(applied) != 0 {
			t.Errorf("applied = %v, want empty", applied)
		}
	})

	t.Run("不正なSQLでエラーが返りバージョンが記録されないこと", func(t *testing.T) {
		t.Parallel()

		broken := fstest.MapFS{
			"m/000001_broken.up.sql": {Data: []byte("CREATE TABLE (")},
		}
		db := openTestDB(t)
		if _, err := Run(context.Background(), db, broken, "m"); err == nil {
			t.Fatal("不正なSQLでエラーが返るべき")
		}

		var count int
		if err := db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
			t.Fatalf("件数の取得に失敗: %v", err)
		}
		if count != 0 {
			t.Errorf("schema_migrations の件数 = %d, want 0", count)
		}
	})

	t.Run("重複したバージョンでエラーが返ること", func(t *testing.T) {
		t.Parallel()

		dup := fstest.MapFS{
			"m/000001_a.up.sql": {Data: []byte("SELECT 1;")},
			"m/000001_b.up.sql": {Data: []byte("SELECT 1;")},
		}
		if _, err := Run(context.Background(), openTestDB(t), dup, "m"); err == nil {
			t.Fatal("重複したバージョンでエラーが返るべき")
		}
	})
}
