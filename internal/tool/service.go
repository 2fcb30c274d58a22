package tool

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"

	"github.com/freeindiatools/freetools/internal/model"
	"github.com/freeindiatools/freetools/internal/validation"
)

// Repository はツールデータの永続化インターフェース。
type Repository interface {
	// Create はツールを作成する。
	Create(ctx context.Context, tool *model.Tool) error
	// FindByID は指定IDのツールを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Tool, error)
	// FindBySlug は指定スラッグのツールを取得する。見つからない場合はnilを返す。
	FindBySlug(ctx context.Context, s string) (*model.Tool, error)
	// FindByURL は指定URLのツールを検索する。見つからない場合はnilを返す。
	FindByURL(ctx context.Context, rawURL string) (*model.Tool, error)
	// List はフィルタ条件に一致するツールを新しい順に返す。
	List(ctx context.Context, filter ListFilter) ([]*model.Tool, error)
	// UpdateStatus は指定IDのツールの公開状態を更新する。
	UpdateStatus(ctx context.Context, id string, status model.ToolStatus) error
}

// ReportRepository は通報データの永続化インターフェース。
type ReportRepository interface {
	// Create は通報を作成する。
	Create(ctx context.Context, report *model.Report) error
	// CountByToolID は指定ツールへの通報件数を返す。
	CountByToolID(ctx context.Context, toolID string) (int, error)
}

// ProfileRepository はツール操作が必要とするプロファイル更新のインターフェース。
type ProfileRepository interface {
	// IncrementSubmittedTools は投稿数カウンタを1増やす。
	IncrementSubmittedTools(ctx context.Context, userID string) error
	// AddFavorite はお気に入りにツールIDを追加する。既に含まれる場合は何もしない。
	AddFavorite(ctx context.Context, userID, toolID string) error
	// RemoveFavorite はお気に入りからツールIDを取り除く。
	RemoveFavorite(ctx context.Context, userID, toolID string) error
	// ListFavorites はお気に入りのツールID一覧を返す。
	ListFavorites(ctx context.Context, userID string) ([]string, error)
}

// Sanitizer は投稿テキストのサニタイズのインターフェース。
// security.ContentSanitizerServiceを抽象化してテスタビリティを向上させる。
type Sanitizer interface {
	SanitizeText(raw string) string
}

// ListFilter はツール一覧のフィルタ条件。
type ListFilter struct {
	// Category は空の場合すべてのカテゴリを対象とする。
	Category string
	// Status は空の場合approvedとfeaturedのみを対象とする。
	Status model.ToolStatus
	// Query は空でない場合、名前と説明に対する部分一致検索を行う。
	Query string
	// Limit は最大取得件数。0以下の場合は既定値になる。
	Limit  int
	Offset int
}

// defaultListLimit はツール一覧の既定の取得件数。
const defaultListLimit = 20

// maxListLimit はツール一覧の最大取得件数。
const maxListLimit = 100

// Service はツールディレクトリの操作を提供する。
type Service struct {
	repo      Repository
	reports   ReportRepository
	profiles  ProfileRepository
	guard     URLGuard
	sanitizer Sanitizer
	fetcher   MetadataFetcherService
}

// NewService はServiceを生成する。
// fetcherはnil可（メタデータ取得なしで動作する）。
func NewService(
	repo Repository,
	reports ReportRepository,
	profiles ProfileRepository,
	guard URLGuard,
	sanitizer Sanitizer,
	fetcher MetadataFetcherService,
) *Service {
	return &Service{
		repo:      repo,
		reports:   reports,
		profiles:  profiles,
		guard:     guard,
		sanitizer: sanitizer,
		fetcher:   fetcher,
	}
}

// Submit はツール投稿を受け付ける。
// バリデーション、サニタイズ、URLの安全性検証、重複チェックを順に行い、
// pending状態で保存する。投稿者の投稿数カウンタを1増やす。
func (s *Service) Submit(ctx context.Context, userID string, sub validation.ToolSubmission) (*model.Tool, error) {
	result := validation.ValidateToolSubmission(sub)
	if !result.Valid {
		return nil, model.NewValidationFailedError(result.Errors)
	}

	name := s.sanitizer.SanitizeText(sub.Name)
	description := s.sanitizer.SanitizeText(sub.Description)

	// サニタイズでタグが除去された結果、フォーム検証を通らない長さになることがある
	if !validation.MinLength(name, 3) {
		return nil, model.NewValidationFailedError(map[string]string{
			"name": "Tool name must be at least 3 characters",
		})
	}
	if !validation.MinLength(description, 20) {
		return nil, model.NewValidationFailedError(map[string]string{
			"description": "Description must be at least 20 characters",
		})
	}

	if !model.IsValidCategory(sub.Category) {
		return nil, model.NewValidationFailedError(map[string]string{
			"category": "Please select a category",
		})
	}

	if err := s.guard.ValidateURL(sub.URL); err != nil {
		slog.Warn("tool submission blocked by URL guard", "url", sub.URL, "error", err)
		return nil, model.NewUnsafeURLError()
	}

	existing, err := s.repo.FindByURL(ctx, sub.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to check duplicate URL: %w", err)
	}
	if existing != nil {
		return nil, model.NewDuplicateToolError()
	}

	toolSlug, err := s.uniqueSlug(ctx, name)
	if err != nil {
		return nil, err
	}

	// メタデータ取得は補助情報のため、失敗しても投稿は受け付ける
	var meta SiteMetadata
	if s.fetcher != nil {
		meta = s.fetcher.Fetch(ctx, sub.URL)
	}

	now := time.Now()
	tool := &model.Tool{
		ID:          uuid.New().String(),
		Slug:        toolSlug,
		Name:        name,
		Description: description,
		URL:         sub.URL,
		Category:    sub.Category,
		SiteTitle:   meta.Title,
		FaviconURL:  meta.FaviconURL,
		SubmittedBy: userID,
		Status:      model.ToolStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if sub.Image != nil {
		tool.ImageType = sub.Image.ContentType
		tool.ImageSize = sub.Image.Size
	}

	if err := s.repo.Create(ctx, tool); err != nil {
		return nil, fmt.Errorf("failed to create tool: %w", err)
	}

	// カウンタは表示用の非正規化値。更新失敗で投稿自体を巻き戻さない。
	if err := s.profiles.IncrementSubmittedTools(ctx, userID); err != nil {
		slog.Warn("failed to increment submitted tools counter", "user_id", userID, "error", err)
	}

	slog.Info("tool submitted", "slug", tool.Slug, "user_id", userID, "category", tool.Category)
	return tool, nil
}

// uniqueSlug はツール名からスラッグを生成する。
// 衝突する場合はランダムなサフィックスを付けて一意にする。
func (s *Service) uniqueSlug(ctx context.Context, name string) (string, error) {
	base := slug.Make(name)
	if base == "" {
		base = "tool"
	}

	existing, err := s.repo.FindBySlug(ctx, base)
	if err != nil {
		return "", fmt.Errorf("failed to check slug: %w", err)
	}
	if existing == nil {
		return base, nil
	}

	return base + "-" + uuid.New().String()[:8], nil
}

// List はフィルタ条件に一致するツールを返す。
// 取得件数は既定値と上限の範囲に丸められる。
func (s *Service) List(ctx context.Context, filter ListFilter) ([]*model.Tool, error) {
	if filter.Category != "" && !model.IsValidCategory(filter.Category) {
		return nil, model.NewValidationFailedError(map[string]string{
			"category": "Please select a category",
		})
	}
	if filter.Status != "" && !model.IsValidToolStatus(filter.Status) {
		return nil, model.NewValidationFailedError(map[string]string{
			"status": "Unknown tool status",
		})
	}
	if filter.Query != "" {
		if r := validation.ValidateSearchQuery(filter.Query); !r.Valid {
			return nil, model.NewValidationFailedError(map[string]string{
				"q": r.Error,
			})
		}
		filter.Query = strings.TrimSpace(filter.Query)
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	tools, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list tools: %w", err)
	}
	return tools, nil
}

// ModeratedTool は審査画面向けのツールと通報件数の組。
type ModeratedTool struct {
	Tool        *model.Tool
	ReportCount int
}

// ListForModeration は管理者向けにツール一覧を通報件数付きで返す。
// フィルタの扱いはListと同じだが、審査キューの用途を想定している。
func (s *Service) ListForModeration(ctx context.Context, filter ListFilter) ([]ModeratedTool, error) {
	tools, err := s.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	out := make([]ModeratedTool, 0, len(tools))
	for _, t := range tools {
		count, err := s.reports.CountByToolID(ctx, t.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to count reports: %w", err)
		}
		out = append(out, ModeratedTool{Tool: t, ReportCount: count})
	}
	return out, nil
}

// GetBySlug は指定スラッグのツールを取得する。
func (s *Service) GetBySlug(ctx context.Context, toolSlug string) (*model.Tool, error) {
	tool, err := s.repo.FindBySlug(ctx, toolSlug)
	if err != nil {
		return nil, fmt.Errorf("failed to find tool: %w", err)
	}
	if tool == nil {
		return nil, model.NewToolNotFoundError(toolSlug)
	}
	return tool, nil
}

// UpdateStatus はツールの公開状態を変更する。管理者向けの操作。
func (s *Service) UpdateStatus(ctx context.Context, id string, status model.ToolStatus) error {
	if !model.IsValidToolStatus(status) {
		return model.NewValidationFailedError(map[string]string{
			"status": "Unknown tool status",
		})
	}

	tool, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to find tool: %w", err)
	}
	if tool == nil {
		return model.NewToolNotFoundError(id)
	}

	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return fmt.Errorf("failed to update tool status: %w", err)
	}

	slog.Info("tool status updated", "tool_id", id, "status", string(status))
	return nil
}

// AddFavorite はツールをお気に入りに追加する。
func (s *Service) AddFavorite(ctx context.Context, userID, toolID string) error {
	tool, err := s.repo.FindByID(ctx, toolID)
	if err != nil {
		return fmt.Errorf("failed to find tool: %w", err)
	}
	if tool == nil {
		return model.NewToolNotFoundError(toolID)
	}

	if err := s.profiles.AddFavorite(ctx, userID, toolID); err != nil {
		return fmt.Errorf("failed to add favorite: %w", err)
	}
	return nil
}

// RemoveFavorite はツールをお気に入りから取り除く。
func (s *Service) RemoveFavorite(ctx context.Context, userID, toolID string) error {
	if err := s.profiles.RemoveFavorite(ctx, userID, toolID); err != nil {
		return fmt.Errorf("failed to remove favorite: %w", err)
	}
	return nil
}

// ListFavorites はお気に入りのツールを返す。
// お気に入りに残っているが削除済みのツールはスキップする。
func (s *Service) ListFavorites(ctx context.Context, userID string) ([]*model.Tool, error) {
	ids, err := s.profiles.ListFavorites(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list favorites: %w", err)
	}

	tools := make([]*model.Tool, 0, len(ids))
	for _, id := range ids {
		tool, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to find favorite tool: %w", err)
		}
		if tool != nil {
			tools = append(tools, tool)
		}
	}
	return tools, nil
}

// Report はツールへの通報を受け付ける。
// 通報されたツールはreported状態へ移行し、再審査の対象になる。
func (s *Service) Report(ctx context.Context, userID, toolID, reason, description string) (*model.Report, error) {
	result := validation.ValidateReport(reason, description)
	if !result.Valid {
		return nil, model.NewValidationFailedError(result.Errors)
	}

	tool, err := s.repo.FindByID(ctx, toolID)
	if err != nil {
		return nil, fmt.Errorf("failed to find tool: %w", err)
	}
	if tool == nil {
		return nil, model.NewToolNotFoundError(toolID)
	}

	report := &model.Report{
		ID:          uuid.New().String(),
		ToolID:      toolID,
		UserID:      userID,
		Reason:      reason,
		Description: s.sanitizer.SanitizeText(description),
		CreatedAt:   time.Now(),
	}
	if err := s.reports.Create(ctx, report); err != nil {
		return nil, fmt.Errorf("failed to create report: %w", err)
	}

	if tool.Status != model.ToolStatusReported {
		if err := s.repo.UpdateStatus(ctx, toolID, model.ToolStatusReported); err != nil {
			return nil, fmt.Errorf("failed to mark tool as reported: %w", err)
		}
	}

	slog.Info("tool reported", "tool_id", toolID, "user_id", userID, "reason", reason)
	return report, nil
}

// Categories は選択可能なカテゴリの一覧を返す。
func (s *Service) Categories() []model.Category {
	return model.Categories
}
