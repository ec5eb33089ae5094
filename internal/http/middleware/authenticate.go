package middleware

import (
	"log/slog"
	"net/http"

	"github.com/pribylovaa/annotator/internal/auth"
	apierrors "github.com/pribylovaa/annotator/internal/errors"
	"github.com/pribylovaa/annotator/internal/metrics"
	logctx "github.com/pribylovaa/annotator/internal/pkg/log"
)

// Authenticate требует действительный токен и кладёт auth.Identity в контекст.
// mode задаёт, допустим ли refresh-токен вместо access (только для чтения профиля).
// Отказ — 401 {"error":"Unauthorized"}; вид отказа уходит в лог и метрики.
func Authenticate(a *auth.Authenticator, mode auth.Mode, m *metrics.Metrics) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := a.Authenticate(r, mode)
			if err != nil {
				kind := auth.FailureKind(err)
				m.TokenFailure(kind)
				logctx.From(r.Context()).Debug("auth_rejected", slog.String("kind", kind))
				apierrors.WriteError(w, r, err)
				return
			}

			ctx := auth.WithIdentity(r.Context(), id)
			ctx = logctx.With(ctx, slog.String("user_id", id.UserID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
