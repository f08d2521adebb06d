package services

import (
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/adampresley/photovault/pkg/models"
	"github.com/adampresley/photovault/pkg/services/registrystore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T) *RegistryService {
	t.Helper()

	store, err := registrystore.NewFileStore(filepath.Join(t.TempDir(), "registry.json"))
	require.NoError(t, err)

	return NewRegistryService(RegistryServiceConfig{Store: store})
}

func TestRegistryAppendPreservesOrder(t *testing.T) {
	registry := newTestRegistry(t)

	album, err := registry.CreateAlbum("Wedding")
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		photo := models.Photo{
			ID:               fmt.Sprintf("p%d", i),
			OriginalFilename: fmt.Sprintf("img%d.jpg", i),
			Tier:             models.TierLight,
		}

		require.NoError(t, registry.Append(album.ID, photo))
	}

	got, err := registry.Get(album.ID)
	require.NoError(t, err)
	require.Len(t, got.Photos, 5)

	for i, photo := range got.Photos {
		assert.Equal(t, fmt.Sprintf("p%d", i), photo.ID)
	}
}

func TestRegistryAppendToMissingAlbum(t *testing.T) {
	registry := newTestRegistry(t)

	err := registry.Append("missing", models.Photo{ID: "p1"})
	assert.ErrorIs(t, err, models.ErrAlbumNotFound)
}

func TestRegistryRemovePhoto(t *testing.T) {
	registry := newTestRegistry(t)

	album, err := registry.CreateAlbum("Wedding")
	require.NoError(t, err)

	require.NoError(t, registry.Append(album.ID, models.Photo{ID: "p1", StoredPath: "a/light/x.jpg"}))
	require.NoError(t, registry.Append(album.ID, models.Photo{ID: "p2", StoredPath: "a/max/y.jpg"}))

	removed, err := registry.Remove(album.ID, "p1")
	require.NoError(t, err)
	assert.Equal(t, "a/light/x.jpg", removed.StoredPath)

	got, err := registry.Get(album.ID)
	require.NoError(t, err)
	require.Len(t, got.Photos, 1)
	assert.Equal(t, "p2", got.Photos[0].ID)

	_, err = registry.Remove(album.ID, "p1")
	assert.ErrorIs(t, err, models.ErrPhotoNotFound)
}

func TestRegistryDeleteAlbum(t *testing.T) {
	registry := newTestRegistry(t)

	album, err := registry.CreateAlbum("Wedding")
	require.NoError(t, err)

	deleted, err := registry.DeleteAlbum(album.ID)
	require.NoError(t, err)
	assert.Equal(t, album.ID, deleted.ID)

	_, err = registry.Get(album.ID)
	assert.ErrorIs(t, err, models.ErrAlbumNotFound)
}

func TestRegistryConcurrentAppendsToDifferentAlbums(t *testing.T) {
	registry := newTestRegistry(t)

	first, err := registry.CreateAlbum("First")
	require.NoError(t, err)

	second, err := registry.CreateAlbum("Second")
	require.NoError(t, err)

	var wg sync.WaitGroup

	for _, albumID := range []string{first.ID, second.ID} {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for i := 0; i < 10; i++ {
				photo := models.Photo{ID: fmt.Sprintf("%s-p%d", albumID, i)}
				assert.NoError(t, registry.Append(albumID, photo))
			}
		}()
	}

	wg.Wait()

	firstAlbum, err := registry.Get(first.ID)
	require.NoError(t, err)
	assert.Len(t, firstAlbum.Photos, 10)

	secondAlbum, err := registry.Get(second.ID)
	require.NoError(t, err)
	assert.Len(t, secondAlbum.Photos, 10)
}
