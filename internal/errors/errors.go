// errors стандартизирует ответы об ошибках HTTP-слоя.
// На вход принимает ошибку сервисного слоя (обёрнутую через op),
// а на выход даёт:
//   - корректный HTTP-статус;
//   - тело {"error": "..."} с кратким безопасным сообщением.
//
// Внутренние детали (цепочка op, текст ошибки хранилища) наружу не уходят,
// а пишутся в лог для ответов 5xx.
package errors

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/pribylovaa/annotator/internal/auth"
	"github.com/pribylovaa/annotator/internal/pkg/log"
	"github.com/pribylovaa/annotator/internal/service"
)

// Нестандартный код часто используемый для "клиент закрыл соединение".
const StatusClientClosedRequest = 499

var (
	// ErrBadRequest — тело запроса не разбирается (битый JSON, неизвестные поля).
	ErrBadRequest = errors.New("bad request")

	// ErrRateLimited — превышен лимит попыток.
	ErrRateLimited = errors.New("rate limited")
)

// ErrorResponse — корневой объект в ответе.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ToHTTP конвертирует ошибку в HTTP-статус и тело ответа.
//
// Поведение:
//   - err == nil — программная ошибка вызова: 500, чтобы не послать "200 OK" с телом ошибки;
//   - ошибка валидации — 400, сообщение перечисляет поля;
//   - доменные ошибки маппятся по таблице;
//   - прочее — 500 без утечки деталей.
func ToHTTP(err error) (int, ErrorResponse) {
	if err == nil {
		return http.StatusInternalServerError, ErrorResponse{Error: "Internal server error"}
	}

	var ve *service.ValidationError
	if errors.As(err, &ve) {
		return http.StatusBadRequest, ErrorResponse{Error: ve.Error()}
	}

	status, msg := classify(err)
	return status, ErrorResponse{Error: msg}
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, "Invalid request body"
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid credentials"
	case errors.Is(err, auth.ErrUnauthenticated):
		return http.StatusUnauthorized, "Unauthorized"
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden, "Forbidden"
	case errors.Is(err, service.ErrUserNotFound):
		return http.StatusNotFound, "User not found"
	case errors.Is(err, service.ErrProjectNotFound):
		return http.StatusNotFound, "Project not found"
	case errors.Is(err, service.ErrImageNotFound):
		return http.StatusNotFound, "Image not found"
	case errors.Is(err, service.ErrEmailTaken):
		return http.StatusConflict, "Email already in use"
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, "Too many requests"
	case errors.Is(err, context.Canceled):
		return StatusClientClosedRequest, "Request canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "Request timeout"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

// WriteError — хелпер для HTTP-хендлеров.
// Пишет статус и тело; ответы 5xx логируются с исходной ошибкой.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := ToHTTP(err)

	if status >= http.StatusInternalServerError {
		msg := "<nil>"
		if err != nil {
			msg = err.Error()
		}
		log.From(r.Context()).Error("request_failed",
			slog.Int("status", status),
			slog.String("err", msg),
		)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
