// Package repository はデータ永続化のPostgreSQL実装を提供する。
// インターフェースは利用側のパッケージ（identity, session, tool）が定義する。
package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/freeindiatools/freetools/internal/identity"
)

// PostgresCredentialRepo はPostgreSQLを使用した資格情報リポジトリ。
type PostgresCredentialRepo struct {
	db *sql.DB
}

// NewPostgresCredentialRepo はPostgresCredentialRepoを生成する。
func NewPostgresCredentialRepo(db *sql.DB) *PostgresCredentialRepo {
	return &PostgresCredentialRepo{db: db}
}

// FindByEmail はメールアドレスで資格情報を検索する。見つからない場合はnilを返す。
func (r *PostgresCredentialRepo) FindByEmail(ctx context.Context, email string) (*identity.Credential, error) {
	cred := &identity.Credential{}
	err := r.db.QueryRowContext(ctx,
		`SELECT uid, email, password_hash, display_name, photo_url, created_at
		 FROM credentials WHERE email = $1`,
		email,
	).Scan(&cred.UID, &cred.Email, &cred.PasswordHash, &cred.DisplayName, &cred.PhotoURL, &cred.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find credential by email: %w", err)
	}

	return cred, nil
}

// Create は資格情報を作成する。
func (r *PostgresCredentialRepo) Create(ctx context.Context, cred *identity.Credential) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO credentials (uid, email, password_hash, display_name, photo_url, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		cred.UID, cred.Email, cred.PasswordHash, cred.DisplayName, cred.PhotoURL, cred.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert credential: %w", err)
	}
	return nil
}

// UpdateDisplayName は指定UIDの表示名を更新する。
func (r *PostgresCredentialRepo) UpdateDisplayName(ctx context.Context, uid, name string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE credentials SET display_name = $2 WHERE uid = $1`,
		uid, name,
	)
	if err != nil {
		return fmt.Errorf("failed to update display name: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("credential not found: %s", uid)
	}
	return nil
}

// compile-time interface check
var _ identity.CredentialRepository = (*PostgresCredentialRepo)(nil)
