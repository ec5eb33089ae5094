package auth

import (
	"math/rand/v2"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pribylovaa/annotator/internal/models"
	"github.com/stretchr/testify/require"
)

var (
	secretA = []byte("secret-a")
	secretB = []byte("secret-b")
)

func signTest(t *testing.T, c *Codec, secret []byte, ttl time.Duration) string {
	t.Helper()
	claims := Claims{Email: "bob@example.com", Role: models.RoleAdmin, Type: TokenAccess, Version: 3}
	claims.Subject = "user-42"
	tok, err := c.Sign(claims, secret, ttl)
	require.NoError(t, err)
	return tok
}

func TestCodec_RoundTrip(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	c := NewCodec("iss", WithClock(clock.Now))

	got, err := c.Verify(signTest(t, c, secretA, time.Minute), secretA)
	require.NoError(t, err)
	require.Equal(t, "user-42", got.UserID())
	require.Equal(t, "bob@example.com", got.Email)
	require.Equal(t, models.RoleAdmin, got.Role)
	require.Equal(t, TokenAccess, got.Type)
	require.EqualValues(t, 3, got.Version)
	require.Equal(t, "iss", got.Issuer)
	require.NotEmpty(t, got.ID)
	require.Equal(t, clock.Now().Add(time.Minute).Unix(), got.ExpiresAt.Unix())
}

// verify(sign(c)) == c для произвольных claims и сроков жизни.
func TestCodec_RoundTripSampled(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	c := NewCodec("iss", WithClock(clock.Now))
	rng := rand.New(rand.NewPCG(3, 4))

	for i := 0; i < 300; i++ {
		want, ttl := randClaims(rng)

		tok, err := c.Sign(want, secretA, ttl)
		require.NoError(t, err)

		got, err := c.Verify(tok, secretA)
		require.NoError(t, err, "claims %+v ttl %s", want, ttl)
		require.Equal(t, want.Subject, got.UserID())
		require.Equal(t, want.Email, got.Email)
		require.Equal(t, want.Role, got.Role)
		require.Equal(t, want.Type, got.Type)
		require.Equal(t, want.Version, got.Version)
		require.Equal(t, "iss", got.Issuer)
		require.Equal(t, clock.Now().Unix(), got.IssuedAt.Unix())
		require.Equal(t, clock.Now().Add(ttl).Unix(), got.ExpiresAt.Unix())
	}
}

func TestCodec_ExpiryIsDeterministic(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	c := NewCodec("iss", WithClock(clock.Now))
	tok := signTest(t, c, secretA, 15*time.Minute)

	clock.Advance(15*time.Minute - time.Second)
	_, err := c.Verify(tok, secretA)
	require.NoError(t, err)

	clock.Advance(2 * time.Second)
	_, err = c.Verify(tok, secretA)
	require.ErrorIs(t, err, ErrTokenExpired)
}

func TestCodec_CrossSecretRejected(t *testing.T) {
	t.Parallel()

	c := NewCodec("iss")
	rng := rand.New(rand.NewPCG(5, 6))

	for i := 0; i < 300; i++ {
		claims, ttl := randClaims(rng)

		a, err := c.Sign(claims, secretA, ttl)
		require.NoError(t, err)
		b, err := c.Sign(claims, secretB, ttl)
		require.NoError(t, err)

		_, err = c.Verify(a, secretB)
		require.ErrorIs(t, err, ErrTokenSignatureInvalid, "claims %+v", claims)

		_, err = c.Verify(b, secretA)
		require.ErrorIs(t, err, ErrTokenSignatureInvalid, "claims %+v", claims)
	}
}

func TestCodec_ForgedExpiredIsSignatureFailure(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	c := NewCodec("iss", WithClock(clock.Now))
	tok := signTest(t, c, secretB, time.Minute)

	clock.Advance(time.Hour)
	_, err := c.Verify(tok, secretA)
	require.ErrorIs(t, err, ErrTokenSignatureInvalid)
}

func TestCodec_TamperedPayload(t *testing.T) {
	t.Parallel()

	c := NewCodec("iss")
	a := strings.Split(signTest(t, c, secretA, time.Minute), ".")

	other := Claims{Role: models.RoleAdmin, Type: TokenAccess}
	other.Subject = "attacker"
	b, err := c.Sign(other, []byte("attacker-secret"), time.Minute)
	require.NoError(t, err)

	forged := a[0] + "." + strings.Split(b, ".")[1] + "." + a[2]
	_, err = c.Verify(forged, secretA)
	require.ErrorIs(t, err, ErrTokenSignatureInvalid)
}

func TestCodec_Malformed(t *testing.T) {
	t.Parallel()

	c := NewCodec("iss")
	for _, tok := range []string{"", "abc", "a.b.c", "a.b", "....."} {
		_, err := c.Verify(tok, secretA)
		require.ErrorIs(t, err, ErrTokenMalformed, "token %q", tok)
	}
}

func TestCodec_WrongIssuerIsMalformed(t *testing.T) {
	t.Parallel()

	tok := signTest(t, NewCodec("other"), secretA, time.Minute)
	_, err := NewCodec("iss").Verify(tok, secretA)
	require.ErrorIs(t, err, ErrTokenMalformed)
}

func TestCodec_RejectsNoneAlgorithm(t *testing.T) {
	t.Parallel()

	claims := Claims{Type: TokenAccess}
	claims.Subject = "u"
	claims.Issuer = "iss"
	claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(time.Hour))

	tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	got, err := NewCodec("iss").Verify(tok, secretA)
	require.Error(t, err)
	require.Nil(t, got)
}

func TestCodec_EmptySecret(t *testing.T) {
	t.Parallel()

	_, err := NewCodec("iss").Sign(Claims{}, nil, time.Minute)
	require.Error(t, err)
}
