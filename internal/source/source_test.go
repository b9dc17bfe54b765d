package source

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("category: x\n"), 0o644))
}

func TestDiscover_DefaultPattern(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "php.yml"))
	writeFile(t, filepath.Join(root, "symfony", "forms.yml"))
	writeFile(t, filepath.Join(root, "README.md"))
	writeFile(t, filepath.Join(root, "legacy.yaml"))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "dir.yml"), 0o755))

	got, err := Discover(root, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "php.yml"),
		filepath.Join(root, "symfony", "forms.yml"),
	}, got)
}

func TestDiscover_MultiplePatterns(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "b.yaml"))
	writeFile(t, filepath.Join(root, "a.yml"))

	got, err := Discover(root, []string{"*.yml", "*.yaml"})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "a.yml"), filepath.Join(root, "b.yaml")}, got)
}

func TestDiscover_NoMatches(t *testing.T) {
	got, err := Discover(t.TempDir(), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDiscover_Errors(t *testing.T) {
	root := t.TempDir()

	_, err := Discover(filepath.Join(root, "missing"), nil)
	assert.Error(t, err)

	file := filepath.Join(root, "php.yml")
	writeFile(t, file)
	_, err = Discover(file, nil)
	assert.ErrorContains(t, err, "not a directory")

	_, err = Discover(root, []string{"[unclosed"})
	assert.ErrorContains(t, err, "invalid pattern")
}
