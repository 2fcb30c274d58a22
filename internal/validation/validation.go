// Package validation はフォーム入力の純粋なバリデーション関数を提供する。
//
// すべての関数は同期・副作用なしで、エラーを返す代わりに構造化された結果を返す。
// 呼び出し側は例外処理なしでフィールド別のインラインエラーを表示できる。
// 同一入力に対して常に同一の結果を返す（冪等）。
package validation

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// MaxImageSize は登録画像の最大バイトサイズ（5MB）。
const MaxImageSize = 5 * 1024 * 1024

// allowedImageTypes は登録画像として許可されるMIMEタイプ。
var allowedImageTypes = []string{"image/jpeg", "image/png", "image/webp", "image/gif"}

// emailPattern は許容的なメールアドレス判定パターン。
// 「@をちょうど1つ含み、その後にドットがある」程度の判定であり、
// RFC 5322完全準拠は意図していない。珍しいアドレスの偽陰性は許容する。
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Result は単一値チェックの結果を表す。
type Result struct {
	Valid bool
	Error string
}

// FormResult はフォーム全体のチェック結果を表す。
// Errorsはフィールド名からメッセージへのマップ。
type FormResult struct {
	Valid  bool
	Errors map[string]string
}

// formResult はエラーマップからFormResultを組み立てる。
func formResult(errs map[string]string) FormResult {
	return FormResult{Valid: len(errs) == 0, Errors: errs}
}

// IsValidEmail はメールアドレス形式かどうかを返す。
func IsValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// IsValidURL は絶対URLかつスキームがhttpまたはhttpsの場合にtrueを返す。
// ftp://、mailto:、相対パス、スキームなしのホストは拒否する。
func IsValidURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Host != ""
}

// IsRequired は値が空白のみでないことを返す。
func IsRequired(s string) bool {
	return strings.TrimSpace(s) != ""
}

// MinLength は値がmin文字以上かどうかを返す。空文字列は常にfalse。
func MinLength(s string, min int) bool {
	return s != "" && len([]rune(s)) >= min
}

// MaxLength は値がmax文字以下かどうかを返す。空文字列は常にfalse。
func MaxLength(s string, max int) bool {
	return s != "" && len([]rune(s)) <= max
}

// InRange は数値文字列が[min, max]の範囲内かどうかを返す。
func InRange(s string, min, max float64) bool {
	n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return false
	}
	return n >= min && n <= max
}

// PasswordResult はパスワードポリシーチェックの結果を表す。
// Errorsには違反したすべてのルールのメッセージが含まれる（短絡しない）。
type PasswordResult struct {
	Valid  bool
	Errors []string
}

// ValidatePassword はサインアップ時のパスワードポリシーを検査する。
// 違反したルールをすべて列挙して返す。
func ValidatePassword(password string) PasswordResult {
	var errs []string

	if len(password) < 8 {
		errs = append(errs, "Password must be at least 8 characters long")
	}
	if !strings.ContainsFunc(password, func(r rune) bool { return r >= 'A' && r <= 'Z' }) {
		errs = append(errs, "Password must contain at least one uppercase letter")
	}
	if !strings.ContainsFunc(password, func(r rune) bool { return r >= 'a' && r <= 'z' }) {
		errs = append(errs, "Password must contain at least one lowercase letter")
	}
	if !strings.ContainsFunc(password, func(r rune) bool { return r >= '0' && r <= '9' }) {
		errs = append(errs, "Password must contain at least one number")
	}
	if !strings.ContainsAny(password, "!@#$%^&*") {
		errs = append(errs, "Password must contain at least one special character (!@#$%^&*)")
	}

	return PasswordResult{Valid: len(errs) == 0, Errors: errs}
}

// Strength はパスワード品質のスコアリング結果を表す。
// ValidatePasswordとは独立しており、何もゲートしない（UIフィードバック用）。
type Strength struct {
	Score int    // 0〜5
	Label string // Weak / Fair / Good / Strong
	Color string
}

// PasswordStrength は満たした基準の数（長さ8以上、長さ12以上、大小文字混在、
// 数字、特殊文字）を0〜5のスコアとして数え、4段階のバンドに割り当てる。
// スコア2以下はWeak、3はFair、4はGood、5はStrong。
func PasswordStrength(password string) Strength {
	score := 0

	if len(password) >= 8 {
		score++
	}
	if len(password) >= 12 {
		score++
	}
	hasLower := strings.ContainsFunc(password, func(r rune) bool { return r >= 'a' && r <= 'z' })
	hasUpper := strings.ContainsFunc(password, func(r rune) bool { return r >= 'A' && r <= 'Z' })
	if hasLower && hasUpper {
		score++
	}
	if strings.ContainsFunc(password, func(r rune) bool { return r >= '0' && r <= '9' }) {
		score++
	}
	if strings.ContainsAny(password, "!@#$%^&*") {
		score++
	}

	switch {
	case score <= 2:
		return Strength{Score: score, Label: "Weak", Color: "red"}
	case score == 3:
		return Strength{Score: score, Label: "Fair", Color: "yellow"}
	case score == 4:
		return Strength{Score: score, Label: "Good", Color: "blue"}
	default:
		return Strength{Score: score, Label: "Strong", Color: "green"}
	}
}

// ImageMeta は登録画像のメタデータを表す。
// 実ファイルのアップロードは扱わず、MIMEタイプとサイズのみを検証対象とする。
type ImageMeta struct {
	ContentType string
	Size        int64
}

// ValidateImage は画像メタデータを検証する。
// MIMEタイプとサイズの両方を検査し、先に失敗した方のメッセージを返す。
func ValidateImage(img ImageMeta) Result {
	allowed := false
	for _, t := range allowedImageTypes {
		if img.ContentType == t {
			allowed = true
			break
		}
	}
	if !allowed {
		return Result{Valid: false, Error: "Invalid file type. Only JPEG, PNG, WebP, and GIF are allowed."}
	}

	if img.Size > MaxImageSize {
		return Result{Valid: false, Error: fmt.Sprintf("File size must be less than %dMB", MaxImageSize/(1024*1024))}
	}

	return Result{Valid: true}
}

// ToolSubmission はツール登録フォームの入力を表す。
type ToolSubmission struct {
	Name        string
	Description string
	URL         string
	Category    string
	Image       *ImageMeta // 任意
}

// ValidateToolSubmission はツール登録フォームを検証する。
// 全フィールドを検査し、エラーを集約して返す（フォームレベルでは短絡しない）。
func ValidateToolSubmission(data ToolSubmission) FormResult {
	errs := map[string]string{}

	// Tool Name
	if !IsRequired(data.Name) {
		errs["name"] = "Tool name is required"
	} else if !MinLength(data.Name, 3) {
		errs["name"] = "Tool name must be at least 3 characters"
	} else if !MaxLength(data.Name, 100) {
		errs["name"] = "Tool name must be less than 100 characters"
	}

	// Description
	if !IsRequired(data.Description) {
		errs["description"] = "Description is required"
	} else if !MinLength(data.Description, 20) {
		errs["description"] = "Description must be at least 20 characters"
	} else if !MaxLength(data.Description, 500) {
		errs["description"] = "Description must be less than 500 characters"
	}

	// URL
	if !IsRequired(data.URL) {
		errs["url"] = "Tool URL is required"
	} else if !IsValidURL(data.URL) {
		errs["url"] = "Please enter a valid URL (must start with http:// or https://)"
	}

	// Category
	if !IsRequired(data.Category) {
		errs["category"] = "Please select a category"
	}

	// Image（任意。指定された場合のみ検証する）
	if data.Image != nil {
		if r := ValidateImage(*data.Image); !r.Valid {
			errs["image"] = r.Error
		}
	}

	return formResult(errs)
}

// ValidateLogin はログインフォームを検証する。
func ValidateLogin(email, password string) FormResult {
	errs := map[string]string{}

	if !IsRequired(email) {
		errs["email"] = "Email is required"
	} else if !IsValidEmail(email) {
		errs["email"] = "Please enter a valid email"
	}

	if !IsRequired(password) {
		errs["password"] = "Password is required"
	}

	return formResult(errs)
}

// ValidateSignup はサインアップフォームを検証する。
// パスワードについてはValidatePasswordの最初の違反メッセージのみを表示する。
func ValidateSignup(name, email, password, confirmPassword string) FormResult {
	errs := map[string]string{}

	// Name
	if !IsRequired(name) {
		errs["name"] = "Name is required"
	} else if !MinLength(name, 2) {
		errs["name"] = "Name must be at least 2 characters"
	}

	// Email
	if !IsRequired(email) {
		errs["email"] = "Email is required"
	} else if !IsValidEmail(email) {
		errs["email"] = "Please enter a valid email"
	}

	// Password
	if !IsRequired(password) {
		errs["password"] = "Password is required"
	} else if r := ValidatePassword(password); !r.Valid {
		errs["password"] = r.Errors[0]
	}

	// Confirm Password
	if !IsRequired(confirmPassword) {
		errs["confirmPassword"] = "Please confirm your password"
	} else if password != confirmPassword {
		errs["confirmPassword"] = "Passwords do not match"
	}

	return formResult(errs)
}

// ValidateSearchQuery は検索クエリを検証する。
func ValidateSearchQuery(query string) Result {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return Result{Valid: false, Error: "Search query cannot be empty"}
	}
	if len([]rune(trimmed)) < 2 {
		return Result{Valid: false, Error: "Search query must be at least 2 characters"}
	}
	if len([]rune(query)) > 100 {
		return Result{Valid: false, Error: "Search query is too long"}
	}
	return Result{Valid: true}
}

// ValidateReport はツール通報フォームを検証する。
func ValidateReport(reason, description string) FormResult {
	errs := map[string]string{}

	if !IsRequired(reason) {
		errs["reason"] = "Please select a reason"
	}

	if !IsRequired(description) {
		errs["description"] = "Please provide details"
	} else if !MinLength(description, 10) {
		errs["description"] = "Description must be at least 10 characters"
	} else if !MaxLength(description, 500) {
		errs["description"] = "Description must be less than 500 characters"
	}

	return formResult(errs)
}
