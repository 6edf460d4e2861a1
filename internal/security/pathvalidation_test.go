package security

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePathWithinDirectory(t *testing.T) {
	t.Parallel()
	safe := t.TempDir()
	outside := t.TempDir()

	inner := filepath.Join(safe, "eye.png")
	require.NoError(t, os.WriteFile(inner, []byte("x"), 0o644))

	t.Run("file inside", func(t *testing.T) {
		assert.NoError(t, ValidatePathWithinDirectory(inner, safe))
	})

	t.Run("missing file inside", func(t *testing.T) {
		assert.NoError(t, ValidatePathWithinDirectory(filepath.Join(safe, "pending.png"), safe))
	})

	t.Run("absolute path outside", func(t *testing.T) {
		assert.Error(t, ValidatePathWithinDirectory(filepath.Join(outside, "eye.png"), safe))
	})

	t.Run("dotdot escape", func(t *testing.T) {
		assert.Error(t, ValidatePathWithinDirectory(filepath.Join(safe, "..", "escape.png"), safe))
	})

	t.Run("safe dir itself", func(t *testing.T) {
		assert.NoError(t, ValidatePathWithinDirectory(safe, safe))
	})
}

func TestValidatePathSymlinkEscape(t *testing.T) {
	t.Parallel()
	safe := t.TempDir()
	target := t.TempDir()

	secret := filepath.Join(target, "secret")
	require.NoError(t, os.WriteFile(secret, []byte("x"), 0o644))

	link := filepath.Join(safe, "link")
	require.NoError(t, os.Symlink(secret, link))

	assert.Error(t, ValidatePathWithinDirectory(link, safe),
		"a symlink under the safe dir must not reach outside it")
}

func TestValidatePathMissingSafeDir(t *testing.T) {
	t.Parallel()
	assert.Error(t, ValidatePathWithinDirectory("/tmp/x", filepath.Join(t.TempDir(), "absent")))
}
