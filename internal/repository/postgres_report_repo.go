package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/freeindiatools/freetools/internal/model"
	"github.com/freeindiatools/freetools/internal/tool"
)

// PostgresReportRepo はPostgreSQLを使用した通報リポジトリ。
type PostgresReportRepo struct {
	db *sql.DB
}

// NewPostgresReportRepo はPostgresReportRepoを生成する。
func NewPostgresReportRepo(db *sql.DB) *PostgresReportRepo {
	return &PostgresReportRepo{db: db}
}

// Create は通報を作成する。
func (r *PostgresReportRepo) Create(ctx context.Context, report *model.Report) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO reports (id, tool_id, user_id, reason, description, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		report.ID, report.ToolID, report.UserID, report.Reason, report.Description, report.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert report: %w", err)
	}
	return nil
}

// CountByToolID は指定ツールへの通報件数を返す。
func (r *PostgresReportRepo) CountByToolID(ctx context.Context, toolID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reports WHERE tool_id = $1`,
		toolID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count reports: %w", err)
	}
	return count, nil
}

// compile-time interface check
var _ tool.ReportRepository = (*PostgresReportRepo)(nil)
