package middleware

import (
	"fmt"
	"log/slog"
	"net/http"

	apierrors "github.com/pribylovaa/annotator/internal/errors"
	logctx "github.com/pribylovaa/annotator/internal/pkg/log"
)

// Recover перехватывает panic и отвечает 500 {"error":"Internal server error"}.
// Если обработчик уже начал ответ, тело не дописывается: остаётся только запись в лог.
func Recover() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sw := newStatusWriter(w)

			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				logctx.From(r.Context()).LogAttrs(r.Context(), slog.LevelError, "panic",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.Any("reason", rec),
					slog.Bool("response_started", sw.status != 0),
				)

				if sw.status == 0 {
					apierrors.WriteError(sw, r, fmt.Errorf("panic: %v", rec))
				}
			}()

			next.ServeHTTP(sw, r)
		})
	}
}
