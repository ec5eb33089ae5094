package middleware

import (
	"net/http"
	"time"

	"github.com/pribylovaa/annotator/internal/metrics"
)

// Metrics учитывает запросы по шаблону маршрута, а не по сырому пути:
// id в URL не раздувают число серий.
func Metrics(m *metrics.Metrics) Middleware {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sw := newStatusWriter(w)
			start := time.Now()
			next.ServeHTTP(sw, r)

			route := routePattern(r)
			if route == r.URL.Path && sw.code() == http.StatusNotFound {
				route = "unmatched"
			}
			m.ObserveHTTP(r.Method, route, sw.code(), time.Since(start))
		})
	}
}
