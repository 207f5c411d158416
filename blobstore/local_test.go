package blobstore

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/psmatrix/internal/cache"
)

func TestLocalBlobStore_Lifecycle(t *testing.T) {
	tmpDir := t.TempDir()
	store := NewLocalStore(tmpDir)
	ctx := t.Context()

	blobName := "matrices/7/v1.pmap"
	data := []byte("hello world, this is a test blob")

	require.NoError(t, store.Put(ctx, blobName, data))

	_, err := os.Stat(filepath.Join(tmpDir, "matrices", "7", "v1.pmap"))
	require.NoError(t, err)

	blob, err := store.Open(ctx, blobName)
	require.NoError(t, err)
	defer blob.Close()

	require.Equal(t, int64(len(data)), blob.Size())

	buf := make([]byte, 5)
	n, err := blob.ReadAt(ctx, buf, 6)
	require.NoError(t, err)
	require.Equal(t, 5, n)
	require.Equal(t, "world", string(buf))

	// Reading past the end is a short read.
	buf = make([]byte, 10)
	n, err = blob.ReadAt(ctx, buf, int64(len(data)-4))
	assert.Equal(t, 4, n)
	assert.ErrorIs(t, err, io.EOF)

	all, err := ReadAll(ctx, store, blobName)
	require.NoError(t, err)
	assert.Equal(t, data, all)

	// Overwrite replaces content.
	require.NoError(t, store.Put(ctx, blobName, []byte("v2")))
	all, err = ReadAll(ctx, store, blobName)
	require.NoError(t, err)
	assert.Equal(t, "v2", string(all))

	require.NoError(t, store.Delete(ctx, blobName))
	_, err = store.Open(ctx, blobName)
	require.ErrorIs(t, err, ErrNotFound)

	// Deleting twice is fine.
	require.NoError(t, store.Delete(ctx, blobName))
}

func TestLocalBlobStore_List(t *testing.T) {
	store := NewLocalStore(t.TempDir())
	ctx := t.Context()

	for _, name := range []string{"matrices/2/CURRENT", "matrices/1/v1.pmap", "matrices/1/CURRENT", "other"} {
		require.NoError(t, store.Put(ctx, name, []byte(name)))
	}

	names, err := store.List(ctx, "matrices/1/")
	require.NoError(t, err)
	assert.Equal(t, []string{"matrices/1/CURRENT", "matrices/1/v1.pmap"}, names)

	names, err = store.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, names, 4)
}

func TestLocalBlobStore_ListMissingRoot(t *testing.T) {
	store := NewLocalStore(filepath.Join(t.TempDir(), "missing"))

	names, err := store.List(t.Context(), "")
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestLocalBlobStore_InvalidName(t *testing.T) {
	store := NewLocalStore(t.TempDir())

	for _, name := range []string{"", ".", "../escape", "/abs"} {
		err := store.Put(t.Context(), name, []byte("x"))
		assert.Error(t, err, name)
	}
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	ctx := t.Context()

	src := []byte("abc")
	require.NoError(t, store.Put(ctx, "a/1", src))
	require.NoError(t, store.Put(ctx, "a/0", []byte("zero")))
	require.NoError(t, store.Put(ctx, "b/0", nil))

	// Put copies its input.
	src[0] = 'X'
	got, err := ReadAll(ctx, store, "a/1")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))

	empty, err := ReadAll(ctx, store, "b/0")
	require.NoError(t, err)
	assert.Empty(t, empty)

	names, err := store.List(ctx, "a/")
	require.NoError(t, err)
	assert.Equal(t, []string{"a/0", "a/1"}, names)

	require.NoError(t, store.Delete(ctx, "a/1"))
	_, err = store.Open(ctx, "a/1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPutIfNotExists(t *testing.T) {
	stores := map[string]BlobStore{
		"memory":  NewMemoryStore(),
		"local":   NewLocalStore(t.TempDir()),
		"caching": NewCachingStore(NewMemoryStore(), cache.NewLRU(1<<20, nil), nil),
	}

	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := t.Context()
			require.NoError(t, PutIfNotExists(ctx, store, "matrices/1/v1.pmap", []byte("first")))

			err := PutIfNotExists(ctx, store, "matrices/1/v1.pmap", []byte("second"))
			require.ErrorIs(t, err, ErrExists)

			got, err := ReadAll(ctx, store, "matrices/1/v1.pmap")
			require.NoError(t, err)
			assert.Equal(t, "first", string(got))
		})
	}
}
