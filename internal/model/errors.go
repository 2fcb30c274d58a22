// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string            // エラーコード
	Message  string            // エラーメッセージ
	Category string            // カテゴリ: auth, validation, tool, system
	Action   string            // ユーザー向け対処方法
	Fields   map[string]string // バリデーション失敗時のフィールド別メッセージ
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeValidationFailed   = "VALIDATION_FAILED"
	ErrCodeInvalidURL         = "INVALID_URL"
	ErrCodeUnsafeURL          = "UNSAFE_URL"
	ErrCodeToolNotFound       = "TOOL_NOT_FOUND"
	ErrCodeDuplicateTool      = "DUPLICATE_TOOL"
	ErrCodeUserNotFound       = "USER_NOT_FOUND"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeDuplicateEmail     = "DUPLICATE_EMAIL"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeForbidden          = "FORBIDDEN"
)

// NewValidationFailedError はフィールド別メッセージ付きのバリデーションエラーを生成する。
func NewValidationFailedError(fields map[string]string) *APIError {
	return &APIError{
		Code:     ErrCodeValidationFailed,
		Message:  "Some fields are invalid.",
		Category: "validation",
		Action:   "Fix the highlighted fields and try again.",
		Fields:   fields,
	}
}

// NewInvalidURLError は無効なURLエラーを生成する。
func NewInvalidURLError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidURL,
		Message:  fmt.Sprintf("Invalid URL: %s", reason),
		Category: "validation",
		Action:   "Enter a valid URL starting with http:// or https://.",
	}
}

// NewUnsafeURLError はセキュリティポリシーによりブロックされたURLのエラーを生成する。
func NewUnsafeURLError() *APIError {
	return &APIError{
		Code:     ErrCodeUnsafeURL,
		Message:  "Access to the given URL is blocked by security policy.",
		Category: "validation",
		Action:   "Submit a publicly reachable website URL. Private and local addresses are not allowed.",
	}
}

// NewToolNotFoundError はツール未検出エラーを生成する。
func NewToolNotFoundError(slug string) *APIError {
	return &APIError{
		Code:     ErrCodeToolNotFound,
		Message:  fmt.Sprintf("Tool not found: %s", slug),
		Category: "tool",
		Action:   "Check the tool link and try again.",
	}
}

// NewDuplicateToolError は同一URLのツールが登録済みの場合のエラーを生成する。
func NewDuplicateToolError() *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateTool,
		Message:  "This tool has already been submitted.",
		Category: "tool",
		Action:   "Search the directory for the existing listing.",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "User not found.",
		Category: "auth",
		Action:   "Sign in again.",
	}
}

// NewInvalidCredentialsError は認証失敗エラーを生成する。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "Incorrect email or password.",
		Category: "auth",
		Action:   "Check your email and password and try again.",
	}
}

// NewDuplicateEmailError はメールアドレスが登録済みの場合のエラーを生成する。
func NewDuplicateEmailError() *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateEmail,
		Message:  "An account with this email already exists.",
		Category: "auth",
		Action:   "Log in instead, or use a different email address.",
	}
}

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "You must be signed in.",
		Category: "auth",
		Action:   "Log in and try again.",
	}
}

// NewForbiddenError は権限不足エラーを生成する。
func NewForbiddenError() *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  "You do not have permission to perform this action.",
		Category: "auth",
		Action:   "Contact an administrator if you believe this is a mistake.",
	}
}
