package auth

import (
	"strings"
	"testing"

	"bazaar/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHasherConfig() *config.Config {
	return &config.Config{
		Auth: &config.AuthConfig{
			Argon2: config.Argon2Config{
				Memory:      16 * 1024,
				Iterations:  2,
				Parallelism: 1,
				SaltLength:  16,
				KeyLength:   32,
			},
		},
	}
}

func TestArgon2Hasher_HashAndCompare(t *testing.T) {
	hasher := NewArgon2Hasher(newHasherConfig())

	hash, err := hasher.Hash("correct horse battery staple")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$"))

	ok, err := hasher.Compare(hash, "correct horse battery staple")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = hasher.Compare(hash, "wrong password")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestArgon2Hasher_SaltedHashesDiffer(t *testing.T) {
	hasher := NewArgon2Hasher(newHasherConfig())

	first, err := hasher.Hash("same password")
	require.NoError(t, err)
	second, err := hasher.Hash("same password")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestArgon2Hasher_EmbeddedParamsWin(t *testing.T) {
	hasher := NewArgon2Hasher(newHasherConfig())

	hash, err := hasher.Hash("a password")
	require.NoError(t, err)

	// A hasher with different current parameters still verifies old hashes.
	otherCfg := newHasherConfig()
	otherCfg.Auth.Argon2.Memory = 32 * 1024
	otherCfg.Auth.Argon2.Iterations = 3
	otherHasher := NewArgon2Hasher(otherCfg)

	ok, err := otherHasher.Compare(hash, "a password")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestArgon2Hasher_MalformedHash(t *testing.T) {
	hasher := NewArgon2Hasher(newHasherConfig())

	_, err := hasher.Compare("not-an-encoded-hash", "password")
	assert.Error(t, err)

	_, err = hasher.Compare("$bcrypt$v=19$m=1,t=1,p=1$AAAA$BBBB", "password")
	assert.Error(t, err)
}
