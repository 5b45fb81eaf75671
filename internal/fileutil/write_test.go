package fileutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAtomicWriteCreatesParents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "file.json")

	require.NoError(t, AtomicWrite(path, []byte("one"), 0o644))
	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "one", string(got))

	require.NoError(t, AtomicWrite(path, []byte("two"), 0o644))
	got, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "two", string(got))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestWriteIfChanged(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f.txt")

	changed, err := WriteIfChanged(path, []byte("x"))
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = WriteIfChanged(path, []byte("x"))
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = WriteIfChanged(path, []byte("y"))
	require.NoError(t, err)
	assert.True(t, changed)
}

func TestMarshalJSONIsStable(t *testing.T) {
	a, err := MarshalJSON(map[string]any{"b": 1, "a": "<x>"})
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"a\": \"<x>\",\n  \"b\": 1\n}\n", string(a))
}
