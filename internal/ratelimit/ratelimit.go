// Package ratelimit ограничивает частоту попыток входа и регистрации.
//
// Две реализации:
//   - Redis — фиксированное окно, общее для всех экземпляров сервиса;
//   - Local — token bucket на процесс (golang.org/x/time/rate), когда Redis не настроен.
package ratelimit

import (
	"context"
	"time"
)

// Result — решение лимитера.
type Result struct {
	Allowed bool
	// RetryAfter — через сколько имеет смысл повторить (для заголовка Retry-After).
	RetryAfter time.Duration
}

// Limiter решает, пропускать ли очередной запрос с ключом key.
// При ошибке бэкенда реализация возвращает Allowed=true вместе с ошибкой:
// недоступный Redis не должен блокировать вход.
type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}
