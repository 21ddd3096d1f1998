package singleton

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquire_SecondCallFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fand.lock")

	first, err := Acquire(path)
	require.NoError(t, err)
	defer first.Release()

	_, err = Acquire(path)
	assert.ErrorIs(t, err, ErrAlreadyRunning)
}

func TestAcquire_ReleaseAllowsReacquire(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fand.lock")

	first, err := Acquire(path)
	require.NoError(t, err)
	require.NoError(t, first.Release())

	second, err := Acquire(path)
	require.NoError(t, err)
	require.NoError(t, second.Release())
}

func TestAcquire_MissingParentDirFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "fand.lock")
	assert.NoFileExists(t, path)

	// The parent directory doesn't exist, so this should fail with an
	// open error, not silently succeed.
	_, err := Acquire(path)
	assert.Error(t, err)
}
