package ratelimit

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"genai-gateway/middleware/ratelimit/application"
	"genai-gateway/middleware/ratelimit/domain"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type KeyFunc func(r *http.Request) string

// RejectFunc escreve a resposta de uma requisição bloqueada.
type RejectFunc func(w http.ResponseWriter, r *http.Request, dec domain.Decision)

// DefaultKeyHeaders é a ordem de headers consultada para identificar o cliente.
var DefaultKeyHeaders = []string{"X-Forwarded-For", "X-Nf-Client-Connection-Ip", "Client-Ip"}

type Options struct {
	Store domain.WindowStore
	Stats domain.StatsStore
	KeyFn KeyFunc
	// KeyHeaders é consultado em ordem; vazio usa DefaultKeyHeaders.
	KeyHeaders []string
	// UseRemoteAddr usa o host de RemoteAddr antes de cair em "unknown".
	UseRemoteAddr       bool
	RetryAfter          time.Duration
	AddRateLimitHeaders bool
	Clock               func() time.Time
	Reject              RejectFunc
	Logger              *zap.Logger
	// LogEvery limita logs de bloqueio a no máximo um por intervalo.
	LogEvery time.Duration
}

type keyContextKey struct{}

// KeyFromContext retorna a chave calculada pelo Middleware para esta requisição.
func KeyFromContext(ctx context.Context) domain.Key {
	if k, ok := ctx.Value(keyContextKey{}).(domain.Key); ok {
		return k
	}
	return ""
}

func DefaultKeyFunc(headers []string, useRemoteAddr bool) KeyFunc {
	if len(headers) == 0 {
		headers = DefaultKeyHeaders
	}
	return func(r *http.Request) string {
		for _, h := range headers {
			v := strings.TrimSpace(r.Header.Get(h))
			if v == "" {
				continue
			}
			// X-Forwarded-For: o primeiro IP é o cliente original
			if strings.EqualFold(h, "X-Forwarded-For") {
				if first := strings.TrimSpace(strings.Split(v, ",")[0]); first != "" {
					return first
				}
				continue
			}
			return v
		}

		if useRemoteAddr {
			host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
			if err == nil && host != "" {
				return host
			}
			if r.RemoteAddr != "" {
				return r.RemoteAddr
			}
		}
		return string(domain.UnknownKey)
	}
}

func Middleware(opts Options) func(next http.Handler) http.Handler {
	if opts.KeyFn == nil {
		opts.KeyFn = DefaultKeyFunc(opts.KeyHeaders, opts.UseRemoteAddr)
	}
	if opts.Reject == nil {
		opts.Reject = func(w http.ResponseWriter, _ *http.Request, _ domain.Decision) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.LogEvery <= 0 {
		opts.LogEvery = time.Second
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}

	svc := application.Service{
		Store:      opts.Store,
		RetryAfter: opts.RetryAfter,
		Clock:      clock,
	}
	sampled := &rate.Sometimes{Interval: opts.LogEvery}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := domain.Key(opts.KeyFn(r))

			if opts.AddRateLimitHeaders {
				w.Header().Set("X-RateLimit-Key", string(key))
				if wi, ok := opts.Store.(domain.WindowInfo); ok {
					w.Header().Set("X-RateLimit-Limit", strconv.Itoa(wi.Limit()))
					w.Header().Set("X-RateLimit-Window", strconv.Itoa(int(wi.Window().Seconds())))
				}
			}

			dec := svc.Decide(key)
			if opts.Stats != nil {
				_ = opts.Stats.Record(r.Context(), domain.StatsEvent{
					Key:     key,
					Allowed: dec.Allowed,
					Method:  r.Method,
					Path:    r.URL.Path,
					At:      clock(),
				})
			}
			if !dec.Allowed {
				sampled.Do(func() {
					opts.Logger.Warn("rate limit exceeded",
						zap.String("identity", string(key)),
						zap.String("method", r.Method),
						zap.String("path", r.URL.Path))
				})
				w.Header().Set("Retry-After", strconv.Itoa(int(dec.RetryAfter.Seconds())))
				opts.Reject(w, r, dec)
				return
			}

			ctx := context.WithValue(r.Context(), keyContextKey{}, key)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
