package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStore_PutRemove(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir, "http://localhost:8375/")
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "mom/1-abc.jpg", []byte("jpeg"), false))
	data, err := os.ReadFile(filepath.Join(dir, "mom", "1-abc.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", string(data))

	assert.Error(t, store.Put(ctx, "mom/1-abc.jpg", []byte("again"), false), "no silent overwrite")
	require.NoError(t, store.Put(ctx, "mom/1-abc.jpg", []byte("again"), true))

	require.NoError(t, store.Remove(ctx, "mom/1-abc.jpg"))
	assert.Error(t, store.Remove(ctx, "mom/1-abc.jpg"))
}

func TestLocalStore_FailedWriteLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir, "")
	require.NoError(t, err)
	store.write = func(f *os.File, data []byte) error {
		_, _ = f.Write(data[:len(data)/2])
		return errors.New("disk full")
	}

	err = store.Put(context.Background(), "mom/1-abc.jpg", []byte("jpegjpeg"), false)
	require.EqualError(t, err, "disk full")

	_, err = os.Stat(filepath.Join(dir, "mom", "1-abc.jpg"))
	assert.True(t, os.IsNotExist(err), "no partial object at the final path")
	entries, err := os.ReadDir(filepath.Join(dir, "mom"))
	require.NoError(t, err)
	assert.Empty(t, entries, "temp file removed")
}

func TestLocalStore_RefusedPutKeepsOriginal(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir, "")
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "mom/avatar-1.png", []byte("first"), false))
	require.Error(t, store.Put(ctx, "mom/avatar-1.png", []byte("second"), false))

	data, err := os.ReadFile(filepath.Join(dir, "mom", "avatar-1.png"))
	require.NoError(t, err)
	assert.Equal(t, "first", string(data))
	entries, err := os.ReadDir(filepath.Join(dir, "mom"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestLocalStore_RejectsTraversal(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "")
	require.NoError(t, err)

	for _, p := range []string{"../etc/passwd", "mom/../../x", ""} {
		assert.ErrorIs(t, store.Put(context.Background(), p, []byte("x"), true), ErrInvalidPath, p)
	}
}

func TestPublicURLRoundTrip(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "https://fambam.buzz")
	require.NoError(t, err)

	url := store.PublicURL("mom/avatar-1.png")
	assert.Equal(t, "https://fambam.buzz/media/mom/avatar-1.png", url)

	p, ok := PathFromURL(url)
	require.True(t, ok)
	assert.Equal(t, "mom/avatar-1.png", p)

	_, ok = PathFromURL("https://elsewhere.example/img.png")
	assert.False(t, ok)
}
