package middleware

import (
	"context"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiterConfig 限流配置
type RateLimiterConfig struct {
	Rate            rate.Limit    // 每秒补充的令牌数
	Burst           int           // 突发上限
	CleanupInterval time.Duration // 过期条目清理间隔
}

type visitor struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// RateLimiter 按 key（通常是客户端 IP）限流
type RateLimiter struct {
	config RateLimiterConfig

	mu       sync.Mutex
	visitors map[string]*visitor
	now      func() time.Time
}

// NewRateLimiter 创建限流器，清理由 Run 负责
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = 5 * time.Minute
	}
	return &RateLimiter{
		config:   config,
		visitors: make(map[string]*visitor),
		now:      time.Now,
	}
}

// Allow 消耗 key 的一个令牌
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	v, ok := rl.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.config.Rate, rl.config.Burst)}
		rl.visitors[key] = v
	}
	v.lastAccess = now
	return v.limiter.AllowN(now, 1)
}

// RetryAfter 补充一个令牌所需的秒数
func (rl *RateLimiter) RetryAfter() int {
	if rl.config.Rate <= 0 {
		return 1
	}
	seconds := int(math.Ceil(1.0 / float64(rl.config.Rate)))
	if seconds < 1 {
		seconds = 1
	}
	return seconds
}

// Len 当前跟踪的 key 数量
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.visitors)
}

// Run 定期清理长时间未访问的条目，直到 ctx 结束
func (rl *RateLimiter) Run(ctx context.Context) error {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-ctx.Done():
			return nil
		}
	}
}

// cleanup 删除超过两个清理周期未访问的条目
func (rl *RateLimiter) cleanup() {
	ttl := rl.config.CleanupInterval * 2
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	for key, v := range rl.visitors {
		if now.Sub(v.lastAccess) > ttl {
			delete(rl.visitors, key)
		}
	}
}
