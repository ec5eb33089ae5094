package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/pribylovaa/annotator/internal/config"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidHash — хэш не распознан (наружу превращается в обычный отказ Verify).
var ErrInvalidHash = errors.New("invalid password hash")

const argonPrefix = "argon2id$"

// ArgonParams — параметры argon2id.
type ArgonParams struct {
	Memory      uint32 // KiB
	Time        uint32
	Parallelism uint8
	SaltLen     int
	KeyLen      uint32
}

// DefaultArgon — параметры argon2id по умолчанию.
var DefaultArgon = ArgonParams{
	Memory:      64 * 1024,
	Time:        3,
	Parallelism: 1,
	SaltLen:     16,
	KeyLen:      32,
}

// maxArgonMemory ограничивает параметры, прочитанные из хэша.
const maxArgonMemory = 1 << 20

// PasswordHasher хэширует пароли выбранным алгоритмом и проверяет хэши
// любого поддерживаемого алгоритма (по префиксу), так что смена алгоритма
// не ломает вход по старым хэшам.
type PasswordHasher struct {
	algo       string
	bcryptCost int
	argon      ArgonParams
}

// NewPasswordHasher создаёт хэшер. algo — config.HasherBcrypt или config.HasherArgon2id.
func NewPasswordHasher(algo string, bcryptCost int) (*PasswordHasher, error) {
	switch algo {
	case config.HasherBcrypt:
		if bcryptCost == 0 {
			bcryptCost = bcrypt.DefaultCost
		}
		if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
			return nil, fmt.Errorf("bcrypt cost %d out of range", bcryptCost)
		}
	case config.HasherArgon2id:
	default:
		return nil, fmt.Errorf("unknown password hasher %q", algo)
	}

	return &PasswordHasher{algo: algo, bcryptCost: bcryptCost, argon: DefaultArgon}, nil
}

// Hash возвращает хэш пароля.
func (h *PasswordHasher) Hash(password string) (string, error) {
	if h.algo == config.HasherArgon2id {
		return hashArgon(h.argon, password)
	}

	b, err := bcrypt.GenerateFromPassword([]byte(password), h.bcryptCost)
	if err != nil {
		return "", fmt.Errorf("bcrypt: %w", err)
	}

	return string(b), nil
}

// Verify сравнивает пароль с хэшем за постоянное время.
// Нераспознанный или повреждённый хэш — просто false.
func (h *PasswordHasher) Verify(password, encoded string) bool {
	switch {
	case strings.HasPrefix(encoded, argonPrefix):
		ok, err := verifyArgon(password, encoded)
		return err == nil && ok
	case strings.HasPrefix(encoded, "$2"):
		return bcrypt.CompareHashAndPassword([]byte(encoded), []byte(password)) == nil
	default:
		return false
	}
}

// hashArgon кодирует результат как argon2id$m=<M>,t=<T>,p=<P>$<b64(salt)>$<b64(key)>.
func hashArgon(p ArgonParams, password string) (string, error) {
	salt := make([]byte, p.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	key := argon2.IDKey([]byte(password), salt, p.Time, p.Memory, p.Parallelism, p.KeyLen)

	return fmt.Sprintf("%sm=%d,t=%d,p=%d$%s$%s",
		argonPrefix,
		p.Memory, p.Time, p.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

func verifyArgon(password, encoded string) (bool, error) {
	parts := strings.Split(strings.TrimPrefix(encoded, argonPrefix), "$")
	if len(parts) != 3 {
		return false, ErrInvalidHash
	}

	var m, t uint32
	var p uint8
	if _, err := fmt.Sscanf(parts[0], "m=%d,t=%d,p=%d", &m, &t, &p); err != nil {
		return false, ErrInvalidHash
	}
	if m == 0 || m > maxArgonMemory || t == 0 || p == 0 {
		return false, ErrInvalidHash
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[1])
	if err != nil {
		return false, ErrInvalidHash
	}

	keyRef, err := base64.RawStdEncoding.DecodeString(parts[2])
	if err != nil || len(keyRef) == 0 {
		return false, ErrInvalidHash
	}

	key := argon2.IDKey([]byte(password), salt, t, m, p, uint32(len(keyRef)))

	return subtle.ConstantTimeCompare(key, keyRef) == 1, nil
}
