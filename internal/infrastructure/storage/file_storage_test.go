package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLocalFileStorage_SaveReadDelete(t *testing.T) {
	dir := t.TempDir()
	s := NewLocalFileStorage(dir, zap.NewNop())
	ctx := context.Background()
	name := "FE0120000155612345-2-2019-0001202401150000000123001011234567890.xml"

	require.NoError(t, s.Save(ctx, name, []byte("<rFE/>")))
	assert.True(t, s.Exists(ctx, name))
	assert.Equal(t, filepath.Join(dir, name), s.GetFullPath(name))

	content, err := s.Read(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, "<rFE/>", string(content))

	// overwrite replaces in place and leaves no temp files behind
	require.NoError(t, s.Save(ctx, name, []byte("<rFE>2</rFE>")))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	require.NoError(t, s.Delete(ctx, name))
	assert.False(t, s.Exists(ctx, name))
	require.NoError(t, s.Delete(ctx, name), "delete is idempotent")
}

func TestLocalFileStorage_NestedDirectories(t *testing.T) {
	dir := t.TempDir()
	s := NewLocalFileStorage(dir, zap.NewNop())

	require.NoError(t, s.Save(context.Background(), "2024/01/a.xml", []byte("x")))
	_, err := os.Stat(filepath.Join(dir, "2024", "01", "a.xml"))
	assert.NoError(t, err)
}

func TestLocalFileStorage_RejectsEscapes(t *testing.T) {
	s := NewLocalFileStorage(t.TempDir(), zap.NewNop())
	ctx := context.Background()

	assert.Error(t, s.Save(ctx, "../outside.xml", []byte("x")))
	assert.Error(t, s.Save(ctx, "", []byte("x")))
	_, err := s.Read(ctx, "../../etc/passwd")
	assert.Error(t, err)
	assert.False(t, s.Exists(ctx, "../outside.xml"))
}
