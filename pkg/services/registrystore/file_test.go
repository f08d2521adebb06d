package registrystore

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/adampresley/photovault/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFileStore(t *testing.T) *FileStore {
	t.Helper()

	store, err := NewFileStore(filepath.Join(t.TempDir(), "registry.json"))
	require.NoError(t, err)

	return store
}

func testAlbum(id, name string) models.Album {
	return models.Album{
		ID:        id,
		Name:      name,
		CreatedAt: time.Now().UTC(),
		Photos:    []models.Photo{},
	}
}

func TestFileStorePutGet(t *testing.T) {
	store := newTestFileStore(t)

	album := testAlbum("a1", "Wedding")
	album.Photos = append(album.Photos, models.Photo{ID: "p1", OriginalFilename: "img.jpg", Tier: models.TierLight})

	require.NoError(t, store.Put(album))

	got, err := store.Get("a1")
	require.NoError(t, err)
	assert.Equal(t, "Wedding", got.Name)
	require.Len(t, got.Photos, 1)
	assert.Equal(t, "p1", got.Photos[0].ID)
}

func TestFileStoreGetMissing(t *testing.T) {
	store := newTestFileStore(t)

	_, err := store.Get("nope")
	assert.ErrorIs(t, err, models.ErrAlbumNotFound)
}

func TestFileStoreDelete(t *testing.T) {
	store := newTestFileStore(t)

	require.NoError(t, store.Put(testAlbum("a1", "Wedding")))
	require.NoError(t, store.Delete("a1"))

	_, err := store.Get("a1")
	assert.ErrorIs(t, err, models.ErrAlbumNotFound)

	assert.ErrorIs(t, store.Delete("a1"), models.ErrAlbumNotFound)
}

func TestFileStoreListOrderedByCreation(t *testing.T) {
	store := newTestFileStore(t)

	older := testAlbum("a1", "First")
	older.CreatedAt = time.Now().Add(-time.Hour)

	require.NoError(t, store.Put(testAlbum("a2", "Second")))
	require.NoError(t, store.Put(older))

	albums, err := store.List()
	require.NoError(t, err)
	require.Len(t, albums, 2)
	assert.Equal(t, "First", albums[0].Name)
	assert.Equal(t, "Second", albums[1].Name)
}

func TestFileStoreWritesWorldReadableFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "registry.json")

	store, err := NewFileStore(path)
	require.NoError(t, err)

	require.NoError(t, store.Put(testAlbum("a1", "Wedding")))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0644), info.Mode().Perm())
}

func TestFileStoreLeavesNoTempFilesBehind(t *testing.T) {
	dir := t.TempDir()

	store, err := NewFileStore(filepath.Join(dir, "registry.json"))
	require.NoError(t, err)

	require.NoError(t, store.Put(testAlbum("a1", "Wedding")))
	require.NoError(t, store.Put(testAlbum("a2", "Portraits")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "registry.json", entries[0].Name())
}
