package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// rateLimitPrefix is the Redis key prefix for IP rate limits.
	rateLimitPrefix = "ratelimit:"
	// rateLimitMinTTL is the shortest lifetime of a bucket key.
	rateLimitMinTTL = 10 * time.Second
)

// RateLimitResult contains the result of a rate limit check.
type RateLimitResult struct {
	Allowed    bool
	Limit      int
	Remaining  int64
	ResetAt    time.Time
	RetryAfter time.Duration
}

// tokenBucketScript is a Lua script implementing the token bucket algorithm.
// It's atomic and handles token refill and consumption in a single operation.
var tokenBucketScript = redis.NewScript(`
	local key = KEYS[1]
	local rate = tonumber(ARGV[1])      -- tokens per second
	local burst = tonumber(ARGV[2])     -- max tokens (bucket capacity)
	local now = tonumber(ARGV[3])       -- current time in seconds
	local ttl = tonumber(ARGV[4])       -- TTL in seconds

	-- Get current state
	local data = redis.call('HMGET', key, 'tokens', 'last_update')
	local tokens = tonumber(data[1]) or burst
	local last_update = tonumber(data[2]) or now

	-- Refill tokens based on elapsed time
	local elapsed = math.max(0, now - last_update)
	tokens = math.min(burst, tokens + (elapsed * rate))

	-- Check if request is allowed
	local allowed = 0
	local retry_after = 0

	if tokens >= 1 then
		tokens = tokens - 1
		allowed = 1
	else
		-- Calculate when 1 token will be available
		retry_after = math.ceil((1 - tokens) / rate)
	end

	-- Update state
	redis.call('HSET', key, 'tokens', tokens, 'last_update', now)
	redis.call('EXPIRE', key, ttl)

	return {allowed, retry_after, math.floor(tokens)}
`)

// CheckIPRateLimit checks and updates the token bucket of ip within scope.
// IP is hashed to avoid storing raw IP addresses.
//
// On Redis errors the request is allowed and the error is returned so the
// caller can log it.
func (c *Cache) CheckIPRateLimit(ctx context.Context, scope, ip string, ratePerSecond float64, burst int) (*RateLimitResult, error) {
	if ratePerSecond <= 0 || burst <= 0 {
		return &RateLimitResult{
			Allowed:   true,
			Limit:     burst,
			Remaining: int64(burst),
			ResetAt:   time.Now(),
		}, nil
	}

	key := rateLimitKey(scope, ip)
	ttl := bucketTTL(ratePerSecond, burst)
	now := time.Now()

	result, err := tokenBucketScript.Run(ctx, c.client,
		[]string{key},
		ratePerSecond, burst, now.Unix(), int(ttl.Seconds()),
	).Int64Slice()
	if err != nil {
		return &RateLimitResult{
			Allowed:   true,
			Limit:     burst,
			Remaining: int64(burst),
			ResetAt:   now.Add(time.Minute),
		}, fmt.Errorf("failed to run rate limit script: %w", err)
	}

	allowed := result[0] == 1
	retryAfterSec := result[1]
	remaining := result[2]

	return &RateLimitResult{
		Allowed:    allowed,
		Limit:      burst,
		Remaining:  remaining,
		ResetAt:    now.Add(time.Duration(float64(time.Second) / ratePerSecond)),
		RetryAfter: time.Duration(retryAfterSec) * time.Second,
	}, nil
}

// rateLimitKey builds the bucket key for ip within scope.
func rateLimitKey(scope, ip string) string {
	return rateLimitPrefix + scope + ":" + hashIP(ip)
}

// bucketTTL is the time a full refill takes, plus one second, but never
// less than rateLimitMinTTL.
func bucketTTL(ratePerSecond float64, burst int) time.Duration {
	refill := time.Duration(math.Ceil(float64(burst)/ratePerSecond)+1) * time.Second
	if refill < rateLimitMinTTL {
		return rateLimitMinTTL
	}
	return refill
}

// hashIP creates a truncated SHA256 hash of an IP address.
// This provides privacy while maintaining uniqueness.
func hashIP(ip string) string {
	hash := sha256.Sum256([]byte(ip))
	return hex.EncodeToString(hash[:8]) // 16 hex chars
}
