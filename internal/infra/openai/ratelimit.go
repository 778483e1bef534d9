package openai

import (
	"golang.org/x/time/rate"
)

// DefaultRequestBurst はレート制限時のデフォルトのバーストサイズ
const DefaultRequestBurst = 5

// NewRateLimiter は OpenAI API 呼び出し用のトークンバケットを作成する
// requestsPerSecond が0以下の場合は制限しない
func NewRateLimiter(requestsPerSecond float64, burst int) *rate.Limiter {
	if requestsPerSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	if burst <= 0 {
		burst = DefaultRequestBurst
	}
	return rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
}
