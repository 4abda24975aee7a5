// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// ハンドラー層でHTTPステータスコードへマッピングされる。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, book, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthenticated = "UNAUTHENTICATED"
	ErrCodeForbidden       = "FORBIDDEN"
	ErrCodeNotFound        = "NOT_FOUND"
	ErrCodeValidation      = "VALIDATION_ERROR"
	ErrCodeConflict        = "CONFLICT"
	ErrCodeUpstream        = "UPSTREAM_FAILURE"
)

// NewMissingCredentialsError はAuthorizationヘッダー欠落時のエラーを生成する。
// トークンが無効な場合とはメッセージで区別する。
func NewMissingCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthenticated,
		Message:  "Authentication required. Please log in.",
		Category: "auth",
		Action:   "Send an Authorization: Bearer <token> header.",
	}
}

// NewInvalidTokenError はトークンが無効・期限切れの場合のエラーを生成する。
func NewInvalidTokenError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthenticated,
		Message:  "Invalid or expired token",
		Category: "auth",
		Action:   "Log in again to obtain a new access token.",
	}
}

// NewInvalidCredentialsError はログイン失敗時のエラーを生成する。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthenticated,
		Message:  "Invalid email or password",
		Category: "auth",
		Action:   "Check your email address and password.",
	}
}

// NewEmailNotVerifiedError はメール未確認ユーザーのログイン拒否エラーを生成する。
func NewEmailNotVerifiedError() *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  "Please verify your email address before logging in. Check your inbox for the verification link.",
		Category: "auth",
		Action:   "Open the verification link sent to your GMU email.",
	}
}

// NewInvalidRefreshTokenError はリフレッシュトークンが無効な場合のエラーを生成する。
func NewInvalidRefreshTokenError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthenticated,
		Message:  "Invalid or expired refresh token",
		Category: "auth",
		Action:   "Log in again to obtain a new session.",
	}
}

// NewDuplicateEmailError はサインアップ時のメールアドレス重複エラーを生成する。
func NewDuplicateEmailError() *APIError {
	return &APIError{
		Code:     ErrCodeConflict,
		Message:  "This email is already registered",
		Category: "auth",
		Action:   "Log in with the existing account or use a different email.",
	}
}

// NewSignupRejectedError は認証基盤がサインアップを拒否した場合のエラーを生成する。
func NewSignupRejectedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  fmt.Sprintf("Signup failed: %s", reason),
		Category: "auth",
		Action:   "Fix the signup payload and retry.",
	}
}

// NewOwnershipError は出品の所有権違反エラーを生成する。
// messageには拒否された操作の説明を指定する。
func NewOwnershipError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  message,
		Category: "book",
		Action:   "You can only modify listings that belong to your account.",
	}
}

// NewBookNotFoundError は出品未検出エラーを生成する。
func NewBookNotFoundError(bookID string) *APIError {
	return &APIError{
		Code:     ErrCodeNotFound,
		Message:  fmt.Sprintf("Book not found: %s", bookID),
		Category: "book",
		Action:   "Check the book ID.",
	}
}

// NewValidationError は入力検証エラーを生成する。
// fieldには最初に違反したフィールド名を指定する。
func NewValidationError(field, reason string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  fmt.Sprintf("%s: %s", field, reason),
		Category: "validation",
		Action:   "Fix the request payload and retry.",
	}
}

// NewUpstreamError は外部サービス起因の未分類エラーを生成する。
// 診断のため元のエラーメッセージを保持する。
func NewUpstreamError(operation string, cause error) *APIError {
	return &APIError{
		Code:     ErrCodeUpstream,
		Message:  fmt.Sprintf("%s failed: %v", operation, cause),
		Category: "system",
		Action:   "Wait a moment and retry.",
	}
}
