package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/argon2"
)

func TestHashPassword_StoresDefaultParams(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("curls&coconut-oil")
	require.NoError(t, err)

	fields := strings.Split(hash, "$")
	require.Len(t, fields, 6)
	assert.Equal(t, "argon2id", fields[1])
	assert.Equal(t, "v=19", fields[2])
	assert.Equal(t, "m=65536,t=3,p=4", fields[3])
	assert.NotContains(t, hash, "curls")
}

func TestVerifyPassword_RegistrationPasswords(t *testing.T) {
	t.Parallel()

	// Registration accepts any non-empty password, including very short ones.
	tests := []struct {
		name     string
		password string
		attempt  string
		want     bool
	}{
		{"short password", "pw", "pw", true},
		{"short password wrong", "pw", "pW", false},
		{"unicode", "cheveux-bouclés", "cheveux-bouclés", true},
		{"trailing space matters", "argan oil", "argan oil ", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			hash, err := HashPassword(tt.password)
			require.NoError(t, err)

			ok, err := VerifyPassword(tt.attempt, hash)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestHashPassword_SaltsEachAccount(t *testing.T) {
	t.Parallel()

	// Two users picking the same password must not share a stored hash.
	alice, err := HashPassword("pw")
	require.NoError(t, err)
	bob, err := HashPassword("pw")
	require.NoError(t, err)

	assert.NotEqual(t, alice, bob)
}

func TestVerifyPassword_HonoursStoredParams(t *testing.T) {
	t.Parallel()

	// A hash made with weaker settings still verifies after defaults change.
	weak := hashParams{memory: 8 * 1024, time: 1, threads: 1}
	salt := []byte("0123456789abcdef")
	key := argonKey("pw", salt, weak)

	ok, err := VerifyPassword("pw", encodeHash(weak, salt, key))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerifyPassword_UnreadableHash(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		stored  string
		wantErr error
	}{
		{"empty column", "", ErrInvalidHash},
		{"plaintext password", "pw", ErrInvalidHash},
		{"bcrypt hash", "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy", ErrInvalidHash},
		{"argon2i variant", "$argon2i$v=19$m=65536,t=3,p=4$c2FsdA$a2V5", ErrInvalidHash},
		{"truncated", "$argon2id$v=19$m=65536", ErrInvalidHash},
		{"bad params", "$argon2id$v=19$memory=64$c2FsdA$a2V5", ErrInvalidHash},
		{"bad salt encoding", "$argon2id$v=19$m=65536,t=3,p=4$!!$a2V5", ErrInvalidHash},
		{"empty key", "$argon2id$v=19$m=65536,t=3,p=4$c2FsdA$", ErrInvalidHash},
		{"older version", "$argon2id$v=16$m=65536,t=3,p=4$c2FsdA$a2V5", ErrIncompatibleVersion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ok, err := VerifyPassword("pw", tt.stored)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.False(t, ok)
		})
	}
}

func argonKey(password string, salt []byte, p hashParams) []byte {
	return argon2.IDKey([]byte(password), salt, p.time, p.memory, p.threads, keyLen)
}
