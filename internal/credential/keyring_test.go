package credential

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefreshTokenKey(t *testing.T) {
	assert.Equal(t, "refresh-token-hr@acme.test", RefreshTokenKey("hr@acme.test"))
}

func TestMemoryVault(t *testing.T) {
	var v Vault = NewMemory()

	_, err := v.Get("k")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, v.Set("k", "secret"))
	got, err := v.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "secret", got)

	require.NoError(t, v.Delete("k"))
	require.NoError(t, v.Delete("k"))
	_, err = v.Get("k")
	assert.ErrorIs(t, err, ErrNotFound)
}
