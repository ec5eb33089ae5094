// Package redact маскирует персональные данные и секреты перед записью в лог.
package redact

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Email оставляет первые две руны локальной части и домен.
func Email(s string) string {
	local, domain, ok := strings.Cut(s, "@")
	if !ok || strings.Contains(domain, "@") {
		return "***"
	}

	if r := []rune(local); len(r) > 2 {
		return string(r[:2]) + "***@" + domain
	}

	return "***@" + domain
}

// Token возвращает короткий отпечаток токена: по нему можно сопоставить
// записи лога, но нельзя восстановить сам токен.
func Token(tok string) string {
	if tok == "" {
		return ""
	}

	sum := sha256.Sum256([]byte(tok))
	return "tok:" + hex.EncodeToString(sum[:4])
}
