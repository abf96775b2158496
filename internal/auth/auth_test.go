package auth

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"

	"github.com/ayusman/handvol/internal/store"
)

const testSecret = "test-secret-that-is-long-enough"

func newTestService(t *testing.T) *Service {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	svc := NewService(s.Users(), testSecret, 12*time.Hour, bcrypt.MinCost)
	require.NoError(t, svc.Seed(DemoAccounts))
	return svc
}

func TestHasher(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)

	hash, err := h.Hash("password123")
	require.NoError(t, err)
	assert.NotEqual(t, "password123", hash)
	assert.NoError(t, h.Compare(hash, "password123"))
	assert.Error(t, h.Compare(hash, "password124"))

	assert.Equal(t, bcrypt.DefaultCost, NewHasher(0).cost)
}

func TestLogin(t *testing.T) {
	svc := newTestService(t)

	tests := []struct {
		name     string
		username string
		password string
		wantErr  error
		wantUser string
	}{
		{"siri", "siri", "password123", nil, "siri"},
		{"admin", "admin", "admin123", nil, "admin"},
		{"trims username", "  siri \t", "password123", nil, "siri"},
		{"wrong password", "siri", "admin123", ErrInvalidCredentials, ""},
		{"unknown user", "bob", "password123", ErrInvalidCredentials, ""},
		{"empty username", "   ", "password123", ErrInvalidCredentials, ""},
		{"empty password", "siri", "", ErrInvalidCredentials, ""},
		{"password not trimmed", "siri", " password123", ErrInvalidCredentials, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess, err := svc.Login(tt.username, tt.password)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, sess)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantUser, sess.Username)
			assert.WithinDuration(t, time.Now().Add(12*time.Hour), sess.ExpiresAt, time.Minute)

			claims, err := svc.Verify(sess.Token)
			require.NoError(t, err)
			assert.Equal(t, tt.wantUser, claims.Username)
			assert.NotEmpty(t, claims.ID)
		})
	}
}

func TestSeed_Idempotent(t *testing.T) {
	s, err := store.New(filepath.Join(t.TempDir(), "seed.db"))
	require.NoError(t, err)
	defer s.Close()

	svc := NewService(s.Users(), testSecret, time.Hour, bcrypt.MinCost)
	require.NoError(t, svc.Seed(DemoAccounts))
	first, err := s.Users().GetByUsername("admin")
	require.NoError(t, err)

	require.NoError(t, svc.Seed(DemoAccounts))
	second, err := s.Users().GetByUsername("admin")
	require.NoError(t, err)

	assert.Equal(t, first.PasswordHash, second.PasswordHash)
	n, _ := s.Users().Count()
	assert.Equal(t, 2, n)
}

func TestTokens(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	tokens := NewTokens(testSecret, time.Hour)
	tokens.now = func() time.Time { return now }

	signed, exp, err := tokens.Sign("siri")
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour), exp)

	claims, err := tokens.Parse(signed)
	require.NoError(t, err)
	assert.Equal(t, "siri", claims.Username)
	assert.Equal(t, "siri", claims.Subject)

	t.Run("expired", func(t *testing.T) {
		later := NewTokens(testSecret, time.Hour)
		later.now = func() time.Time { return now.Add(2 * time.Hour) }
		_, err := later.Parse(signed)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewTokens("another-secret-of-enough-length", time.Hour)
		other.now = tokens.now
		_, err := other.Parse(signed)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := tokens.Parse("not.a.token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("none algorithm", func(t *testing.T) {
		unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
			Username: "admin",
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    issuer,
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			},
		}).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = tokens.Parse(unsigned)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestRateLimiter(t *testing.T) {
	l := NewRateLimiter(rate.Every(time.Hour), 3)

	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow("10.0.0.1"), "attempt %d", i)
	}
	assert.False(t, l.Allow("10.0.0.1"))
	assert.True(t, l.Allow("10.0.0.2"), "buckets are per IP")

	login := NewLoginLimiter()
	for i := 0; i < loginBurst; i++ {
		assert.True(t, login.Allow("127.0.0.1"))
	}
	assert.False(t, login.Allow("127.0.0.1"))
}
