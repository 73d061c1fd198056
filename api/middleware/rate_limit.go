package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/angelmondragon/supplyhub-backend/api/responses"
	pkgerrors "github.com/angelmondragon/supplyhub-backend/pkg/errors"
	"github.com/angelmondragon/supplyhub-backend/pkg/logger"
)

type rateLimiterStore interface {
	IncrWithTTL(context.Context, string, time.Duration) (int64, error)
}

// RateLimitPolicy throttles a traffic surface per client IP and per caller
// key (for webhooks, the shop domain header).
type RateLimitPolicy struct {
	name      string
	window    time.Duration
	ipLimit   int
	keyLimit  int
	keyHeader string
}

// NewRateLimitPolicy builds a policy with the supplied window and limits. A zero
// limit disables that counter.
func NewRateLimitPolicy(name string, window time.Duration, ipLimit, keyLimit int, keyHeader string) RateLimitPolicy {
	return RateLimitPolicy{
		name:      strings.ToLower(strings.TrimSpace(name)),
		window:    window,
		ipLimit:   ipLimit,
		keyLimit:  keyLimit,
		keyHeader: keyHeader,
	}
}

func (p RateLimitPolicy) enabled() bool {
	return p.window > 0 && (p.ipLimit > 0 || (p.keyLimit > 0 && p.keyHeader != ""))
}

func (p RateLimitPolicy) normalizedName() string {
	if p.name == "" {
		return "default"
	}
	return p.name
}

func (p RateLimitPolicy) counterKey(scope, value string) string {
	if value == "" {
		return ""
	}
	return fmt.Sprintf("rl:%s:%s:%s", scope, p.normalizedName(), value)
}

// RateLimit enforces fixed-window counters for the policy.
func RateLimit(policy RateLimitPolicy, store rateLimiterStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.enabled() || store == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if policy.ipLimit > 0 {
				ip := clientIP(r)
				if !checkLimit(ctx, logg, w, store, policy, "ip", ip, policy.ipLimit) {
					return
				}
			}
			if policy.keyLimit > 0 && policy.keyHeader != "" {
				key := strings.ToLower(strings.TrimSpace(r.Header.Get(policy.keyHeader)))
				if !checkLimit(ctx, logg, w, store, policy, "key", key, policy.keyLimit) {
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// checkLimit counts one hit and writes the error response when the caller is
// over the limit or the store fails.
func checkLimit(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, store rateLimiterStore, policy RateLimitPolicy, scope, value string, limit int) bool {
	key := policy.counterKey(scope, value)
	if key == "" {
		return true
	}
	count, err := store.IncrWithTTL(ctx, key, policy.window)
	if err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
		return false
	}
	if count <= int64(limit) {
		return true
	}
	if logg != nil {
		logCtx := logg.WithFields(ctx, map[string]any{
			"scope":          scope,
			"policy":         policy.normalizedName(),
			"caller":         value,
			"attempts":       count,
			"limit":          limit,
			"window_seconds": int(policy.window.Seconds()),
		})
		logg.Warn(logCtx, "rate_limit.blocked")
	}
	responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "rate limit exceeded"))
	return false
}

func clientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	if header := r.Header.Get("X-Forwarded-For"); header != "" {
		for _, part := range strings.Split(header, ",") {
			if ip := strings.TrimSpace(part); ip != "" {
				return ip
			}
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}
