package securestore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealOpen(t *testing.T) {
	secret := []byte("0123456789abcdef0123456789abcdef")
	sealed, err := Seal(secret, []byte("session-token"))
	require.NoError(t, err)
	assert.Equal(t, magic, sealed[:len(magic)])

	pt, err := Open(secret, sealed)
	require.NoError(t, err)
	assert.Equal(t, "session-token", string(pt))

	_, err = Open([]byte("another secret of thirty-two b.."), sealed)
	assert.ErrorIs(t, err, ErrCorrupt)

	_, err = Open(secret, []byte("garbage"))
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestLoadOrCreateSecret(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "secret")

	first, err := LoadOrCreateSecret(path)
	require.NoError(t, err)
	require.Len(t, first, 32)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	again, err := LoadOrCreateSecret(path)
	require.NoError(t, err)
	assert.Equal(t, first, again)
}
