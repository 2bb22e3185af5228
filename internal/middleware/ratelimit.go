package middleware

import (
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hitoshi/shortpost/internal/model"
	"golang.org/x/time/rate"
)

const (
	LimitTypeAuth = "auth"
	LimitTypeAPI  = "api"

	MessageAuthRateLimited = "Too many authentication attempts, please try again later"
	MessageAPIRateLimited  = "Too many requests, please try again later"
)

// RateLimiterConfig はレート制限の設定を保持する。
// 各制限はWindowあたりの許容リクエスト数で指定する。
type RateLimiterConfig struct {
	AuthLimit       int           // 登録・ログインの許容回数（クライアント単位）
	APILimit        int           // 投稿作成の許容回数（クライアント単位）
	Window          time.Duration // 制限の時間窓
	CleanupInterval time.Duration // 期限切れエントリのクリーンアップ間隔

	// TrustProxy がtrueの場合のみX-Forwarded-Forの先頭アドレスをクライアントとみなす。
	// リバースプロキシ配下でのみ有効にすること。
	TrustProxy bool
}

// DefaultRateLimiterConfig はデフォルトのレート制限設定を返す。
// 認証 5 req/15min/client、投稿作成 100 req/15min/client
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		AuthLimit:       5,
		APILimit:        100,
		Window:          15 * time.Minute,
		CleanupInterval: 5 * time.Minute,
	}
}

// RateLimitRecorder はレート制限による拒否をメトリクスとして記録する。
type RateLimitRecorder interface {
	RecordRateLimited(limitType string)
}

// clientLimiter はクライアントごとのレートリミッターとアクセス時刻を保持する。
type clientLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// limiterSet は1種類の制限についてクライアントごとのリミッターを管理する。
// 時間窓あたりlimit回をバーストとして許容し、window/limitごとに1回分補充する。
type limiterSet struct {
	limitType string
	message   string
	limit     int
	every     rate.Limit

	mu       sync.RWMutex
	limiters map[string]*clientLimiter
}

func newLimiterSet(limitType, message string, limit int, window time.Duration) *limiterSet {
	if limit < 1 {
		limit = 1
	}
	return &limiterSet{
		limitType: limitType,
		message:   message,
		limit:     limit,
		every:     rate.Every(window / time.Duration(limit)),
		limiters:  make(map[string]*clientLimiter),
	}
}

// getOrCreate はクライアントのリミッターを取得または作成する。
func (s *limiterSet) getOrCreate(key string) *rate.Limiter {
	s.mu.RLock()
	cl, exists := s.limiters[key]
	s.mu.RUnlock()

	if exists {
		s.mu.Lock()
		cl.lastAccess = time.Now()
		s.mu.Unlock()
		return cl.limiter
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// ダブルチェック
	if cl, exists := s.limiters[key]; exists {
		cl.lastAccess = time.Now()
		return cl.limiter
	}

	limiter := rate.NewLimiter(s.every, s.limit)
	s.limiters[key] = &clientLimiter{
		limiter:    limiter,
		lastAccess: time.Now(),
	}

	return limiter
}

func (s *limiterSet) count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.limiters)
}

func (s *limiterSet) evictOlderThan(ttl time.Duration, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, cl := range s.limiters {
		if now.Sub(cl.lastAccess) > ttl {
			delete(s.limiters, key)
		}
	}
}

// RateLimiter はクライアントIPごとのレート制限を管理する。
// 認証エンドポイント用と投稿作成用の2種類を提供する。
type RateLimiter struct {
	config   RateLimiterConfig
	recorder RateLimitRecorder

	authSet *limiterSet
	apiSet  *limiterSet

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewRateLimiter は新しいRateLimiterを生成する。recorderはnil可。
// バックグラウンドで期限切れエントリのクリーンアップを開始する。
func NewRateLimiter(config RateLimiterConfig, recorder RateLimitRecorder) *RateLimiter {
	if config.Window <= 0 {
		config.Window = DefaultRateLimiterConfig().Window
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = DefaultRateLimiterConfig().CleanupInterval
	}

	rl := &RateLimiter{
		config:   config,
		recorder: recorder,
		authSet:  newLimiterSet(LimitTypeAuth, MessageAuthRateLimited, config.AuthLimit, config.Window),
		apiSet:   newLimiterSet(LimitTypeAPI, MessageAPIRateLimited, config.APILimit, config.Window),
		stopCh:   make(chan struct{}),
	}

	go rl.cleanupLoop()

	return rl
}

// Stop はクリーンアップのバックグラウンドゴルーチンを停止する。
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

// AuthMiddleware は登録・ログイン用のレート制限ミドルウェアを返す。
func (rl *RateLimiter) AuthMiddleware() func(next http.Handler) http.Handler {
	return rl.middleware(rl.authSet)
}

// APIMiddleware は投稿作成用のレート制限ミドルウェアを返す。
// 認証用の制限とは独立に動作する。
func (rl *RateLimiter) APIMiddleware() func(next http.Handler) http.Handler {
	return rl.middleware(rl.apiSet)
}

// AuthLimiterCount は現在管理されている認証用リミッターのエントリ数を返す。
// テストおよびメトリクス用。
func (rl *RateLimiter) AuthLimiterCount() int {
	return rl.authSet.count()
}

// APILimiterCount は現在管理されている投稿作成用リミッターのエントリ数を返す。
// テストおよびメトリクス用。
func (rl *RateLimiter) APILimiterCount() int {
	return rl.apiSet.count()
}

func (rl *RateLimiter) middleware(set *limiterSet) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientIP := rl.clientKey(r)
			limiter := set.getOrCreate(clientIP)

			if !limiter.Allow() {
				if rl.recorder != nil {
					rl.recorder.RecordRateLimited(set.limitType)
				}
				slog.Warn("rate limit exceeded",
					slog.String("client_ip", clientIP),
					slog.String("limit_type", set.limitType),
				)
				writeRateLimitResponse(w, set)
				return
			}

			remaining := int(math.Floor(limiter.Tokens()))
			if remaining < 0 {
				remaining = 0
			}
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(set.limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))

			next.ServeHTTP(w, r)
		})
	}
}

// cleanupLoop はバックグラウンドで期限切れエントリを定期的にクリーンアップする。
func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stopCh:
			return
		}
	}
}

// cleanup は最終アクセスから時間窓を超えたエントリを削除する。
// 時間窓が経過したリミッターは満タンに戻っているため、削除しても制限は緩まない。
func (rl *RateLimiter) cleanup() {
	ttl := rl.config.Window
	if minTTL := rl.config.CleanupInterval * 2; ttl < minTTL {
		ttl = minTTL
	}

	now := time.Now()
	rl.authSet.evictOlderThan(ttl, now)
	rl.apiSet.evictOlderThan(ttl, now)
}

// clientKey はレート制限のキーとなるクライアントIPを返す。
func (rl *RateLimiter) clientKey(r *http.Request) string {
	if rl.config.TrustProxy {
		return ForwardedClientIP(r)
	}
	return ClientIP(r)
}

// ClientIP はRemoteAddrのホスト部を返す。
// X-Forwarded-Forはクライアントが自由に設定できるため参照しない。
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// ForwardedClientIP はX-Forwarded-Forの先頭アドレスを返す。
// ヘッダーが無い・先頭が空の場合はClientIPにフォールバックする。
// 信頼できるプロキシがヘッダーを付け直す構成でのみ使うこと。
func ForwardedClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	return ClientIP(r)
}

// writeRateLimitResponse は429 Too Many Requestsレスポンスを書き込む。
// Retry-Afterヘッダーには1回分が補充されるまでの秒数を設定する。
func writeRateLimitResponse(w http.ResponseWriter, set *limiterSet) {
	retryAfterSec := int(math.Ceil(1.0 / float64(set.every)))
	if retryAfterSec < 1 {
		retryAfterSec = 1
	}

	w.Header().Set("Retry-After", strconv.Itoa(retryAfterSec))
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(set.limit))
	w.Header().Set("X-RateLimit-Remaining", "0")
	WriteErrorResponse(w, http.StatusTooManyRequests, model.NewRateLimitError(set.message))
}
