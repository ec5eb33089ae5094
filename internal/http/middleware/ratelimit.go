package middleware

import (
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/pribylovaa/annotator/internal/errors"
	"github.com/pribylovaa/annotator/internal/metrics"
	logctx "github.com/pribylovaa/annotator/internal/pkg/log"
	"github.com/pribylovaa/annotator/internal/ratelimit"
)

// RateLimit ограничивает частоту запросов с одного адреса.
// Ошибка лимитера не блокирует запрос (лимитер сам возвращает Allowed=true).
func RateLimit(l ratelimit.Limiter, m *metrics.Metrics) Middleware {
	return func(next http.Handler) http.Handler {
		if l == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route := routePattern(r)
			key := route + ":" + clientIP(r)

			res, err := l.Allow(r.Context(), key)
			if err != nil {
				logctx.From(r.Context()).Warn("rate_limit_backend_failed", slog.String("err", err.Error()))
			}

			if !res.Allowed {
				m.RateLimited(route)
				secs := int(math.Ceil(res.RetryAfter.Seconds()))
				if secs < 1 {
					secs = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(secs))
				apierrors.WriteError(w, r, apierrors.ErrRateLimited)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientIP — первый адрес из X-Forwarded-For, иначе адрес соединения.
func clientIP(r *http.Request) string {
	if xff := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}

	return r.RemoteAddr
}

// routePattern — шаблон маршрута chi ("/api/projects/{projectID}"), иначе путь.
func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}

	return r.URL.Path
}
