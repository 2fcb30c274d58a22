package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/freeindiatools/freetools/internal/model"
	"github.com/freeindiatools/freetools/internal/tool"
)

// PostgresToolRepo はPostgreSQLを使用したツールリポジトリ。
type PostgresToolRepo struct {
	db *sql.DB
}

// NewPostgresToolRepo はPostgresToolRepoを生成する。
func NewPostgresToolRepo(db *sql.DB) *PostgresToolRepo {
	return &PostgresToolRepo{db: db}
}

// toolColumns はツールのSELECT句のカラムリスト。
const toolColumns = `id, slug, name, description, url, category,
       image_type, image_size, site_title, favicon_url,
       submitted_by, status, created_at, updated_at`

// scanTool は1行分のツールを読み取る。
func scanTool(row interface{ Scan(...any) error }) (*model.Tool, error) {
	t := &model.Tool{}
	err := row.Scan(
		&t.ID, &t.Slug, &t.Name, &t.Description, &t.URL, &t.Category,
		&t.ImageType, &t.ImageSize, &t.SiteTitle, &t.FaviconURL,
		&t.SubmittedBy, &t.Status, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// escapeLike はLIKEパターンのメタ文字をエスケープする。
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}

// Create はツールを作成する。
func (r *PostgresToolRepo) Create(ctx context.Context, t *model.Tool) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO tools (id, slug, name, description, url, category,
		                    image_type, image_size, site_title, favicon_url,
		                    submitted_by, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		t.ID, t.Slug, t.Name, t.Description, t.URL, t.Category,
		t.ImageType, t.ImageSize, t.SiteTitle, t.FaviconURL,
		t.SubmittedBy, t.Status, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert tool: %w", err)
	}
	return nil
}

// FindByID は指定IDのツールを取得する。見つからない場合はnilを返す。
func (r *PostgresToolRepo) FindByID(ctx context.Context, id string) (*model.Tool, error) {
	t, err := scanTool(r.db.QueryRowContext(ctx,
		`SELECT `+toolColumns+` FROM tools WHERE id = $1`, id))

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find tool by ID: %w", err)
	}
	return t, nil
}

// FindBySlug は指定スラッグのツールを取得する。見つからない場合はnilを返す。
func (r *PostgresToolRepo) FindBySlug(ctx context.Context, slug string) (*model.Tool, error) {
	t, err := scanTool(r.db.QueryRowContext(ctx,
		`SELECT `+toolColumns+` FROM tools WHERE slug = $1`, slug))

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find tool by slug: %w", err)
	}
	return t, nil
}

// FindByURL は指定URLのツールを検索する。見つからない場合はnilを返す。
func (r *PostgresToolRepo) FindByURL(ctx context.Context, rawURL string) (*model.Tool, error) {
	t, err := scanTool(r.db.QueryRowContext(ctx,
		`SELECT `+toolColumns+` FROM tools WHERE url = $1`, rawURL))

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find tool by URL: %w", err)
	}
	return t, nil
}

// List はフィルタ条件に一致するツールを新しい順に返す。
// Statusが空の場合はapprovedとfeaturedのみを対象とする（公開ディレクトリの既定）。
func (r *PostgresToolRepo) List(ctx context.Context, filter tool.ListFilter) ([]*model.Tool, error) {
	query := `SELECT ` + toolColumns + ` FROM tools WHERE 1=1`
	args := []any{}

	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	} else {
		args = append(args, model.ToolStatusApproved, model.ToolStatusFeatured)
		query += fmt.Sprintf(" AND status IN ($%d, $%d)", len(args)-1, len(args))
	}

	if filter.Category != "" {
		args = append(args, filter.Category)
		query += fmt.Sprintf(" AND category = $%d", len(args))
	}

	if filter.Query != "" {
		args = append(args, "%"+escapeLike(filter.Query)+"%")
		query += fmt.Sprintf(" AND (name ILIKE $%d OR description ILIKE $%d)", len(args), len(args))
	}

	args = append(args, filter.Limit, filter.Offset)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tools: %w", err)
	}
	defer rows.Close()

	var tools []*model.Tool
	for rows.Next() {
		t, err := scanTool(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tool: %w", err)
		}
		tools = append(tools, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tools: %w", err)
	}
	return tools, nil
}

// UpdateStatus は指定IDのツールの公開状態を更新する。
func (r *PostgresToolRepo) UpdateStatus(ctx context.Context, id string, status model.ToolStatus) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE tools SET status = $2, updated_at = $3 WHERE id = $1`,
		id, status, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to update tool status: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("tool not found: %s", id)
	}
	return nil
}

// compile-time interface check
var _ tool.Repository = (*PostgresToolRepo)(nil)
