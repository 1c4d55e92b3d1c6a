package auth

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func mustHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func TestStore_Verify(t *testing.T) {
	store, err := NewStore([]string{"analyst:" + mustHash(t, "correct horse")})
	require.NoError(t, err)

	ctx := context.Background()
	assert.NoError(t, store.Verify(ctx, "analyst", "correct horse"))
	assert.ErrorIs(t, store.Verify(ctx, "analyst", "wrong"), ErrInvalidCredentials)
	assert.ErrorIs(t, store.Verify(ctx, "admin", "password123"), ErrInvalidCredentials)
	assert.ErrorIs(t, store.Verify(ctx, "", ""), ErrInvalidCredentials)
}

func TestNewStore_RejectsBadEntries(t *testing.T) {
	tests := []struct {
		name    string
		entries []string
		wantMsg string
	}{
		{"empty", nil, "no credentials configured"},
		{"no separator", []string{"admin"}, "want username:hash"},
		{"plaintext password", []string{"admin:password123"}, "not a bcrypt hash"},
		{"missing user", []string{":" + mustHash(t, "x")}, "want username:hash"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewStore(tt.entries)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestLoadStore(t *testing.T) {
	content := strings.Join([]string{
		"# dashboard users",
		"",
		"analyst:" + mustHash(t, "s3cret"),
		"  viewer:" + mustHash(t, "readonly") + "  ",
	}, "\n")

	path := filepath.Join(t.TempDir(), "users.htpasswd")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	store, err := LoadStore(path)
	require.NoError(t, err)
	assert.NoError(t, store.Verify(context.Background(), "analyst", "s3cret"))
	assert.NoError(t, store.Verify(context.Background(), "viewer", "readonly"))

	_, err = LoadStore(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("pw")
	require.NoError(t, err)

	store, err := NewStore([]string{"u:" + hash})
	require.NoError(t, err)
	assert.NoError(t, store.Verify(context.Background(), "u", "pw"))
}

func TestSessions_SingleActiveSession(t *testing.T) {
	s := NewSessions(time.Hour)

	first := s.Start("analyst")
	user, ok := s.Lookup(first)
	require.True(t, ok)
	assert.Equal(t, "analyst", user)

	second := s.Start("analyst")
	assert.NotEqual(t, first, second)

	_, ok = s.Lookup(first)
	assert.False(t, ok, "a new login replaces the previous session")
	_, ok = s.Lookup(second)
	assert.True(t, ok)

	s.End(first)
	_, ok = s.Lookup(second)
	assert.True(t, ok, "ending a stale token leaves the active session alone")

	s.End(second)
	_, ok = s.Lookup(second)
	assert.False(t, ok)

	_, ok = s.Lookup("")
	assert.False(t, ok)
}

func TestSessions_Expiry(t *testing.T) {
	now := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	s := NewSessions(30 * time.Minute)
	s.now = func() time.Time { return now }

	token := s.Start("analyst")

	now = now.Add(29 * time.Minute)
	_, ok := s.Lookup(token)
	assert.True(t, ok)

	now = now.Add(time.Minute)
	_, ok = s.Lookup(token)
	assert.False(t, ok)
}
