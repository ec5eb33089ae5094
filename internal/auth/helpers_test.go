package auth

import (
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/pribylovaa/annotator/internal/config"
	"github.com/pribylovaa/annotator/internal/models"
	"github.com/stretchr/testify/require"
)

// fakeClock — управляемые часы.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func testAuthCfg() config.AuthConfig {
	return config.AuthConfig{
		AccessSecret:    "unit-access-secret",
		RefreshSecret:   "unit-refresh-secret",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 7 * 24 * time.Hour,
		Issuer:          "annotator-test",
	}
}

func newTestIssuer(t *testing.T, clock *fakeClock) *SessionIssuer {
	t.Helper()
	iss, err := NewSessionIssuer(testAuthCfg(), WithClock(clock.Now))
	require.NoError(t, err)
	return iss
}

func testUser() *models.User {
	return &models.User{ID: "u-1", Email: "alice@example.com", Role: models.RoleUser}
}

const sampleRunes = "abcxyz0123456789-_.+АБВяё"

func randString(rng *rand.Rand, minLen, maxLen int) string {
	runes := []rune(sampleRunes)
	n := minLen + rng.IntN(maxLen-minLen+1)
	out := make([]rune, n)
	for i := range out {
		out[i] = runes[rng.IntN(len(runes))]
	}
	return string(out)
}

// randClaims — произвольный набор claims и срок жизни от секунды до 30 дней.
func randClaims(rng *rand.Rand) (Claims, time.Duration) {
	roles := []models.Role{models.RoleUser, models.RoleAdmin}
	types := []TokenType{TokenAccess, TokenRefresh}

	c := Claims{
		Email:   randString(rng, 0, 12) + "@" + randString(rng, 1, 8) + ".test",
		Role:    roles[rng.IntN(len(roles))],
		Type:    types[rng.IntN(len(types))],
		Version: rng.Int64N(1 << 40),
	}
	c.Subject = randString(rng, 1, 24)

	ttl := time.Duration(1+rng.IntN(30*24*3600)) * time.Second
	return c, ttl
}

// randUser — пользователь с произвольными полями, попадающими в токен.
func randUser(rng *rand.Rand) *models.User {
	c, _ := randClaims(rng)
	return &models.User{ID: c.Subject, Email: c.Email, Role: c.Role, TokenVersion: c.Version}
}
