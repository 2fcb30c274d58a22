package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/freeindiatools/freetools/internal/format"
	"github.com/freeindiatools/freetools/internal/middleware"
	"github.com/freeindiatools/freetools/internal/model"
	"github.com/freeindiatools/freetools/internal/tool"
	"github.com/freeindiatools/freetools/internal/validation"
)

// ToolServiceInterface はツールハンドラーが必要とするサービスのインターフェース。
type ToolServiceInterface interface {
	Submit(ctx context.Context, userID string, sub validation.ToolSubmission) (*model.Tool, error)
	List(ctx context.Context, filter tool.ListFilter) ([]*model.Tool, error)
	ListForModeration(ctx context.Context, filter tool.ListFilter) ([]tool.ModeratedTool, error)
	GetBySlug(ctx context.Context, slug string) (*model.Tool, error)
	UpdateStatus(ctx context.Context, id string, status model.ToolStatus) error
	AddFavorite(ctx context.Context, userID, toolID string) error
	RemoveFavorite(ctx context.Context, userID, toolID string) error
	ListFavorites(ctx context.Context, userID string) ([]*model.Tool, error)
	Report(ctx context.Context, userID, toolID, reason, description string) (*model.Report, error)
	Categories() []model.Category
}

// ToolMetrics はツールイベントのメトリクス記録インターフェース。nil可。
type ToolMetrics interface {
	RecordToolSubmission(category string)
	RecordValidationFailure(form string)
}

// ToolHandler はツール関連のHTTPハンドラー。
type ToolHandler struct {
	service ToolServiceInterface
	metrics ToolMetrics
}

// NewToolHandler はToolHandlerを生成する。
func NewToolHandler(service ToolServiceInterface, metrics ToolMetrics) *ToolHandler {
	return &ToolHandler{service: service, metrics: metrics}
}

// summaryLength は一覧表示用サマリーの最大文字数。
const summaryLength = 160

// toolResponse はツールのレスポンスボディ。
type toolResponse struct {
	ID          string `json:"id"`
	Slug        string `json:"slug"`
	Name        string `json:"name"`
	Description string `json:"description"`
	// Summary は一覧カード表示向けに切り詰めた説明文。
	Summary  string `json:"summary"`
	URL      string `json:"url"`
	Domain   string `json:"domain"`
	Category string `json:"category"`
	SiteTitle   string `json:"siteTitle,omitempty"`
	FaviconURL  string `json:"faviconUrl,omitempty"`
	ImageType   string `json:"imageType,omitempty"`
	// ImageSizeLabel はUI表示用の人間可読サイズ（例: 1.5 MB）
	ImageSizeLabel string `json:"imageSizeLabel,omitempty"`
	Status         string `json:"status"`
	CreatedAt      string `json:"createdAt"`
}

func toToolResponse(t *model.Tool) toolResponse {
	resp := toolResponse{
		ID:          t.ID,
		Slug:        t.Slug,
		Name:        t.Name,
		Description: t.Description,
		Summary:     format.Truncate(t.Description, summaryLength),
		URL:         t.URL,
		Domain:      format.Domain(t.URL),
		Category:    t.Category,
		SiteTitle:   t.SiteTitle,
		FaviconURL:  t.FaviconURL,
		ImageType:   t.ImageType,
		Status:      string(t.Status),
		CreatedAt:   t.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
	if t.ImageSize > 0 {
		resp.ImageSizeLabel = format.FileSize(t.ImageSize)
	}
	return resp
}

func toToolResponses(tools []*model.Tool) []toolResponse {
	out := make([]toolResponse, 0, len(tools))
	for _, t := range tools {
		out = append(out, toToolResponse(t))
	}
	return out
}

// listFilterFromQuery はクエリパラメータからフィルタ条件を組み立てる。
// 不正なパラメータの場合はバリデーションエラーを返す。
func listFilterFromQuery(r *http.Request) (tool.ListFilter, error) {
	filter := tool.ListFilter{
		Category: r.URL.Query().Get("category"),
		Query:    r.URL.Query().Get("q"),
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || !validation.InRange(v, 1, 100) {
			return filter, model.NewValidationFailedError(map[string]string{
				"limit": "limit must be a number between 1 and 100",
			})
		}
		filter.Limit = n
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return filter, model.NewValidationFailedError(map[string]string{
				"offset": "offset must be a non-negative number",
			})
		}
		filter.Offset = n
	}
	return filter, nil
}

// ListTools は公開ツール一覧を返す。
// GET /api/tools?category=design&limit=20&offset=0
func (h *ToolHandler) ListTools(w http.ResponseWriter, r *http.Request) {
	filter, err := listFilterFromQuery(r)
	if err != nil {
		middleware.WriteAPIError(w, err)
		return
	}

	tools, err := h.service.List(r.Context(), filter)
	if err != nil {
		middleware.WriteAPIError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"tools": toToolResponses(tools)})
}

// GetTool はスラグでツールを返す。
// GET /api/tools/{slug}
func (h *ToolHandler) GetTool(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	t, err := h.service.GetBySlug(r.Context(), slug)
	if err != nil {
		middleware.WriteAPIError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toToolResponse(t))
}

// ListCategories はカテゴリ一覧を返す。
// GET /api/categories
func (h *ToolHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	type categoryResponse struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	cats := h.service.Categories()
	out := make([]categoryResponse, 0, len(cats))
	for _, c := range cats {
		out = append(out, categoryResponse{ID: c.ID, Name: c.Name})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"categories": out})
}

// submitToolRequest はツール投稿のリクエストボディ。
type submitToolRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	URL         string `json:"url"`
	Category    string `json:"category"`
	Image       *struct {
		ContentType string `json:"contentType"`
		Size        int64  `json:"size"`
	} `json:"image,omitempty"`
}

// SubmitTool は新規ツールを投稿する。審査待ち状態で登録される。
// POST /api/tools
func (h *ToolHandler) SubmitTool(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req submitToolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewValidationFailedError(map[string]string{
			"body": "Invalid request body",
		}))
		return
	}

	sub := validation.ToolSubmission{
		Name:        req.Name,
		Description: req.Description,
		URL:         req.URL,
		Category:    req.Category,
	}
	if req.Image != nil {
		sub.Image = &validation.ImageMeta{
			ContentType: req.Image.ContentType,
			Size:        req.Image.Size,
		}
	}

	t, err := h.service.Submit(r.Context(), userID, sub)
	if err != nil {
		var apiErr *model.APIError
		if h.metrics != nil && errors.As(err, &apiErr) && apiErr.Code == model.ErrCodeValidationFailed {
			h.metrics.RecordValidationFailure("tool_submission")
		}
		middleware.WriteAPIError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordToolSubmission(t.Category)
	}
	slog.Info("tool submitted",
		slog.String("tool_id", t.ID),
		slog.String("slug", t.Slug),
		slog.String("user_id", userID),
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toToolResponse(t))
}

// AddFavorite はツールをお気に入りに追加する。
// PUT /api/tools/{id}/favorite
func (h *ToolHandler) AddFavorite(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	if err := h.service.AddFavorite(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		middleware.WriteAPIError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"success": true})
}

// RemoveFavorite はツールをお気に入りから外す。
// DELETE /api/tools/{id}/favorite
func (h *ToolHandler) RemoveFavorite(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	if err := h.service.RemoveFavorite(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		middleware.WriteAPIError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"success": true})
}

// ListFavorites は現在ユーザーのお気に入りツールを返す。
// GET /api/me/favorites
func (h *ToolHandler) ListFavorites(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	tools, err := h.service.ListFavorites(r.Context(), userID)
	if err != nil {
		middleware.WriteAPIError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"tools": toToolResponses(tools)})
}

// reportRequest は通報のリクエストボディ。
type reportRequest struct {
	Reason      string `json:"reason"`
	Description string `json:"description"`
}

// ReportTool はツールを通報する。
// POST /api/tools/{id}/report
func (h *ToolHandler) ReportTool(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req reportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewValidationFailedError(map[string]string{
			"body": "Invalid request body",
		}))
		return
	}

	rep, err := h.service.Report(r.Context(), userID, chi.URLParam(r, "id"), req.Reason, req.Description)
	if err != nil {
		middleware.WriteAPIError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{
		"success":  true,
		"reportId": rep.ID,
	})
}

// moderatedToolResponse は審査キューのレスポンスボディ。
type moderatedToolResponse struct {
	toolResponse
	ReportCount int `json:"reportCount"`
}

// AdminListTools は審査対象のツール一覧を通報件数付きで返す。管理者専用。
// statusを省略した場合は審査待ち（pending）のツールを返す。
// GET /api/admin/tools?status=pending
func (h *ToolHandler) AdminListTools(w http.ResponseWriter, r *http.Request) {
	filter, err := listFilterFromQuery(r)
	if err != nil {
		middleware.WriteAPIError(w, err)
		return
	}
	filter.Status = model.ToolStatus(r.URL.Query().Get("status"))
	if filter.Status == "" {
		filter.Status = model.ToolStatusPending
	}

	moderated, err := h.service.ListForModeration(r.Context(), filter)
	if err != nil {
		middleware.WriteAPIError(w, err)
		return
	}

	out := make([]moderatedToolResponse, 0, len(moderated))
	for _, m := range moderated {
		out = append(out, moderatedToolResponse{
			toolResponse: toToolResponse(m.Tool),
			ReportCount:  m.ReportCount,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"tools": out})
}

// updateStatusRequest は管理者によるステータス変更のリクエストボディ。
type updateStatusRequest struct {
	Status string `json:"status"`
}

// UpdateToolStatus はツールの公開ステータスを変更する。管理者専用。
// PATCH /api/admin/tools/{id}/status
func (h *ToolHandler) UpdateToolStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewValidationFailedError(map[string]string{
			"body": "Invalid request body",
		}))
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.service.UpdateStatus(r.Context(), id, model.ToolStatus(req.Status)); err != nil {
		middleware.WriteAPIError(w, err)
		return
	}

	slog.Info("tool status updated",
		slog.String("tool_id", id),
		slog.String("status", req.Status),
	)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"success": true})
}
