package middleware

import "net/http"

// NewCORSMiddleware は許可リストに基づくCORSミドルウェアを返す。
// credentials送信と共存するため、ワイルドカード(*)は使用せず
// マッチしたオリジンをそのままエコーする。
// 許可ヘッダーはプリフライトで要求されたものをエコーする。
// OPTIONSプリフライトリクエストには204で応答する。
func NewCORSMiddleware(allowedOrigins []string) func(next http.Handler) http.Handler {
	originSet := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		originSet[o] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if _, ok := originSet[origin]; ok {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Set("Access-Control-Max-Age", "86400")
				w.Header().Add("Vary", "Origin")

				allowHeaders := r.Header.Get("Access-Control-Request-Headers")
				if allowHeaders == "" {
					allowHeaders = "Authorization, Content-Type"
				}
				w.Header().Set("Access-Control-Allow-Headers", allowHeaders)
			}

			// OPTIONSプリフライトリクエストには204で応答
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
