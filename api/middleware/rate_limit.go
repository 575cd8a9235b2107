package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kaokai/furniture-backend/api/responses"
	pkgerrors "github.com/kaokai/furniture-backend/pkg/errors"
	"github.com/kaokai/furniture-backend/pkg/logger"
)

const maxLimitedBody = 64 << 10

type RateLimiterStore interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// LimitRule counts requests per bucket in fixed windows. Key returns the
// bucket for a request; an empty bucket exempts the request from the rule.
type LimitRule struct {
	Name     string
	Limit    int
	Window   time.Duration
	Key      func(r *http.Request, body []byte) string
	readBody bool
}

func (l LimitRule) active() bool {
	return l.Limit > 0 && l.Window > 0 && l.Key != nil
}

// PerClientIP buckets by the connecting address. Run it behind chi's
// RealIP so proxies are accounted for.
func PerClientIP(name string, limit int, window time.Duration) LimitRule {
	return LimitRule{Name: name + ":ip", Limit: limit, Window: window, Key: func(r *http.Request, _ []byte) string {
		if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
			return host
		}
		return r.RemoteAddr
	}}
}

// PerEmail buckets by the "email" field of a JSON body, hashed so
// addresses never land in redis keys.
func PerEmail(name string, limit int, window time.Duration) LimitRule {
	return LimitRule{Name: name + ":email", Limit: limit, Window: window, readBody: true, Key: func(_ *http.Request, body []byte) string {
		var payload struct {
			Email string `json:"email"`
		}
		if json.Unmarshal(body, &payload) != nil {
			return ""
		}
		email := strings.ToLower(strings.TrimSpace(payload.Email))
		if email == "" {
			return ""
		}
		sum := sha256.Sum256([]byte(email))
		return hex.EncodeToString(sum[:])
	}}
}

// RateLimit rejects with 429 and Retry-After once any rule's bucket is
// over its limit. Inactive rules are dropped; with none left it is a no-op.
func RateLimit(store RateLimiterStore, logg *logger.Logger, rules ...LimitRule) func(http.Handler) http.Handler {
	var active []LimitRule
	needBody := false
	for _, rule := range rules {
		if rule.active() {
			active = append(active, rule)
			needBody = needBody || rule.readBody
		}
	}
	return func(next http.Handler) http.Handler {
		if store == nil || len(active) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			var body []byte
			if needBody && r.Body != nil {
				var err error
				body, err = io.ReadAll(io.LimitReader(r.Body, maxLimitedBody))
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request"))
					return
				}
				r.Body = io.NopCloser(bytes.NewReader(body))
			}

			for _, rule := range active {
				bucket := rule.Key(r, body)
				if bucket == "" {
					continue
				}
				allowed, count, err := store.FixedWindowAllow(ctx, rule.Name+":"+bucket, int64(rule.Limit), rule.Window)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
					return
				}
				if !allowed {
					rejectLimited(ctx, logg, w, rule, count)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func rejectLimited(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, rule LimitRule, count int64) {
	if logg != nil {
		logg.Warn(logg.WithFields(ctx, map[string]any{
			"rule":     rule.Name,
			"attempts": count,
			"limit":    rule.Limit,
		}), "rate_limit.blocked")
	}
	w.Header().Set("Retry-After", strconv.Itoa(int(rule.Window/time.Second)))
	responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many attempts, try again later"))
}
