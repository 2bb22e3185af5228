package middleware

import "net/http"

// SecurityHeadersConfig はセキュリティヘッダーの設定を保持する。
type SecurityHeadersConfig struct {
	HSTS bool // HTTPS配信時のみ有効にする
}

// NewSecurityHeadersMiddleware はJSON APIとして安全なレスポンスヘッダーを付与するミドルウェアを返す。
// トークンやユーザー情報を含むレスポンスが中間キャッシュに残らないようCache-Controlも設定する。
func NewSecurityHeadersMiddleware(cfg SecurityHeadersConfig) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "no-referrer")
			h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
			h.Set("Cache-Control", "no-store")
			if cfg.HSTS {
				h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}
			next.ServeHTTP(w, r)
		})
	}
}
