package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/freeindiatools/freetools/internal/model"
	"github.com/freeindiatools/freetools/internal/session"
	"github.com/freeindiatools/freetools/internal/tool"
)

// PostgresProfileRepo はPostgreSQLを使用したユーザープロファイルリポジトリ。
// session.ProfileStoreとtool.ProfileRepositoryの両方を実装する。
type PostgresProfileRepo struct {
	db *sql.DB
}

// NewPostgresProfileRepo はPostgresProfileRepoを生成する。
func NewPostgresProfileRepo(db *sql.DB) *PostgresProfileRepo {
	return &PostgresProfileRepo{db: db}
}

// Get は指定IDのプロファイルを取得する。見つからない場合はnilを返す。
func (r *PostgresProfileRepo) Get(ctx context.Context, id string) (*model.User, error) {
	user := &model.User{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, name, photo_url, role, submitted_tools, favorites, created_at
		 FROM users WHERE id = $1`,
		id,
	).Scan(
		&user.ID, &user.Email, &user.Name, &user.PhotoURL, &user.Role,
		&user.SubmittedTools, pq.Array(&user.Favorites), &user.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find profile: %w", err)
	}

	if user.Favorites == nil {
		user.Favorites = []string{}
	}
	return user, nil
}

// Set は指定IDのプロファイルを保存する。既存のレコードは上書きされる。
func (r *PostgresProfileRepo) Set(ctx context.Context, id string, user *model.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, email, name, photo_url, role, submitted_tools, favorites, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (id) DO UPDATE SET
		   email = EXCLUDED.email,
		   name = EXCLUDED.name,
		   photo_url = EXCLUDED.photo_url,
		   role = EXCLUDED.role,
		   submitted_tools = EXCLUDED.submitted_tools,
		   favorites = EXCLUDED.favorites`,
		id, user.Email, user.Name, user.PhotoURL, user.Role,
		user.SubmittedTools, pq.Array(user.Favorites), user.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert profile: %w", err)
	}
	return nil
}

// IncrementSubmittedTools は投稿数カウンタを1増やす。
func (r *PostgresProfileRepo) IncrementSubmittedTools(ctx context.Context, userID string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET submitted_tools = submitted_tools + 1 WHERE id = $1`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("failed to increment submitted tools: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("profile not found: %s", userID)
	}
	return nil
}

// AddFavorite はお気に入りにツールIDを追加する。既に含まれる場合は何もしない。
func (r *PostgresProfileRepo) AddFavorite(ctx context.Context, userID, toolID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET favorites = array_append(favorites, $2)
		 WHERE id = $1 AND NOT ($2 = ANY(favorites))`,
		userID, toolID,
	)
	if err != nil {
		return fmt.Errorf("failed to add favorite: %w", err)
	}
	return nil
}

// RemoveFavorite はお気に入りからツールIDを取り除く。
func (r *PostgresProfileRepo) RemoveFavorite(ctx context.Context, userID, toolID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET favorites = array_remove(favorites, $2) WHERE id = $1`,
		userID, toolID,
	)
	if err != nil {
		return fmt.Errorf("failed to remove favorite: %w", err)
	}
	return nil
}

// ListFavorites はお気に入りのツールID一覧を返す。
func (r *PostgresProfileRepo) ListFavorites(ctx context.Context, userID string) ([]string, error) {
	var favorites []string
	err := r.db.QueryRowContext(ctx,
		`SELECT favorites FROM users WHERE id = $1`,
		userID,
	).Scan(pq.Array(&favorites))

	if err == sql.ErrNoRows {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list favorites: %w", err)
	}

	if favorites == nil {
		favorites = []string{}
	}
	return favorites, nil
}

// compile-time interface checks
var _ session.ProfileStore = (*PostgresProfileRepo)(nil)
var _ tool.ProfileRepository = (*PostgresProfileRepo)(nil)
