// Package model はドメインモデルを定義する。
package model

// Identity はベアラートークンから解決した認証済みユーザーを表す。
// ホスティングされた認証基盤からリクエストごとに取得し、ローカルには永続化しない。
type Identity struct {
	UserID string
	Email  string
	// Token は解決に使用したアクセストークン。/auth/me での再取得に使う。
	Token string
}

// Session はログイン・リフレッシュ時に認証基盤が発行するトークンペアを表す。
// このサービスでは中身を検査せず、そのままクライアントへ受け渡す。
type Session struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int
}

// AuthUser は認証基盤が返すユーザーオブジェクトを表す。
type AuthUser struct {
	ID             string
	Email          string
	FullName       string
	EmailConfirmed bool
	CreatedAt      string
}
