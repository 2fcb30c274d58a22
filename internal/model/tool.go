// Package model はドメインモデルを定義する。
package model

import "time"

// ToolStatus はツールの公開状態を表す。
type ToolStatus string

const (
	// ToolStatusPending は審査待ちのツールを示す。
	ToolStatusPending ToolStatus = "pending"
	// ToolStatusApproved は公開承認済みのツールを示す。
	ToolStatusApproved ToolStatus = "approved"
	// ToolStatusRejected は審査で却下されたツールを示す。
	ToolStatusRejected ToolStatus = "rejected"
	// ToolStatusFeatured はトップページ掲載対象のツールを示す。
	ToolStatusFeatured ToolStatus = "featured"
	// ToolStatusReported は通報により再審査中のツールを示す。
	ToolStatusReported ToolStatus = "reported"
)

// Tool はディレクトリに登録されたツールを表す。
type Tool struct {
	ID          string
	Slug        string
	Name        string
	Description string
	URL         string
	Category    string
	ImageType   string // 任意の画像のMIMEタイプ（メタデータのみ保持）
	ImageSize   int64  // 任意の画像のバイトサイズ
	SiteTitle   string // 登録URLのページから取得した<title>
	FaviconURL  string
	SubmittedBy string // 投稿者のプロファイルID
	Status      ToolStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Report はツールへの通報を表す。
type Report struct {
	ID          string
	ToolID      string
	UserID      string
	Reason      string
	Description string
	CreatedAt   time.Time
}

// Category はツールのカテゴリを表す。
type Category struct {
	ID   string
	Name string
}

// Categories はディレクトリで選択可能なカテゴリの一覧。
// 順序はUIの表示順に一致する。
var Categories = []Category{
	{ID: "ai", Name: "AI Tools"},
	{ID: "design", Name: "Design"},
	{ID: "productivity", Name: "Productivity"},
	{ID: "marketing", Name: "Marketing"},
	{ID: "developer", Name: "Developer Tools"},
	{ID: "writing", Name: "Writing"},
	{ID: "video", Name: "Video"},
	{ID: "audio", Name: "Audio"},
	{ID: "photo", Name: "Photo Editing"},
	{ID: "business", Name: "Business"},
	{ID: "education", Name: "Education"},
	{ID: "social", Name: "Social Media"},
	{ID: "seo", Name: "SEO Tools"},
	{ID: "analytics", Name: "Analytics"},
	{ID: "other", Name: "Other"},
}

// IsValidToolStatus はステータス値が定義済みかどうかを返す。
func IsValidToolStatus(s ToolStatus) bool {
	switch s {
	case ToolStatusPending, ToolStatusApproved, ToolStatusRejected,
		ToolStatusFeatured, ToolStatusReported:
		return true
	}
	return false
}

// IsValidCategory はカテゴリIDが定義済みかどうかを返す。
func IsValidCategory(id string) bool {
	for _, c := range Categories {
		if c.ID == id {
			return true
		}
	}
	return false
}
