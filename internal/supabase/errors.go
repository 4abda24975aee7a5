// Package supabase はホスティングされたSupabaseプラットフォームのRESTクライアントを提供する。
// 認証API（GoTrue互換）のAuthClientとデータAPI（PostgREST互換）のBookClientを含む。
package supabase

import "fmt"

// APIStatusError はSupabase APIが返した非2xxレスポンスを表す。
// 呼び出し元はStatusCodeとErrorCodeで失敗種別を分類する。
type APIStatusError struct {
	StatusCode int    // HTTPステータスコード
	ErrorCode  string // APIのエラーコード（GoTrueのerror_code等、無い場合は空）
	Msg        string // APIのエラーメッセージ
}

// Error はerrorインターフェースを実装する。
func (e *APIStatusError) Error() string {
	if e.ErrorCode != "" {
		return fmt.Sprintf("supabase api status %d (%s): %s", e.StatusCode, e.ErrorCode, e.Msg)
	}
	return fmt.Sprintf("supabase api status %d: %s", e.StatusCode, e.Msg)
}

// IsClientError はステータスコードが4xxかどうかを返す。
func (e *APIStatusError) IsClientError() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}
