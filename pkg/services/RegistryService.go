package services

import (
	"fmt"
	"sync"
	"time"

	"github.com/adampresley/photovault/pkg/models"
	"github.com/adampresley/photovault/pkg/services/registrystore"
	"github.com/google/uuid"
)

type RegistryServicer interface {
	CreateAlbum(name string) (models.Album, error)
	Append(albumID string, photo models.Photo) error
	Get(albumID string) (models.Album, error)
	ListAll() ([]models.Album, error)
	Remove(albumID, photoID string) (models.Photo, error)
	DeleteAlbum(albumID string) (models.Album, error)
}

type RegistryServiceConfig struct {
	Store registrystore.Store
}

/*
RegistryService is the single source of truth for which stored files
are real photos. Mutations for the same album are serialized through
a per-album lock; different albums never contend. The backing store
provides crash-safe atomic replacement of each album record.
*/
type RegistryService struct {
	store registrystore.Store

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

func NewRegistryService(config RegistryServiceConfig) *RegistryService {
	return &RegistryService{
		store: config.Store,
		locks: map[string]*sync.Mutex{},
	}
}

func (s *RegistryService) albumLock(albumID string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()

	lock, ok := s.locks[albumID]

	if !ok {
		lock = &sync.Mutex{}
		s.locks[albumID] = lock
	}

	return lock
}

func (s *RegistryService) CreateAlbum(name string) (models.Album, error) {
	album := models.Album{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
		Photos:    []models.Photo{},
	}

	if err := s.store.Put(album); err != nil {
		return models.Album{}, fmt.Errorf("error creating album '%s': %w", name, err)
	}

	return album, nil
}

func (s *RegistryService) Append(albumID string, photo models.Photo) error {
	lock := s.albumLock(albumID)
	lock.Lock()
	defer lock.Unlock()

	album, err := s.store.Get(albumID)

	if err != nil {
		return err
	}

	album.Photos = append(album.Photos, photo)

	if err = s.store.Put(album); err != nil {
		return fmt.Errorf("error appending photo to album %s: %w", albumID, err)
	}

	return nil
}

func (s *RegistryService) Get(albumID string) (models.Album, error) {
	return s.store.Get(albumID)
}

func (s *RegistryService) ListAll() ([]models.Album, error) {
	return s.store.List()
}

/*
Remove takes a single photo out of an album's record and returns it
so the caller can delete the bytes it referenced.
*/
func (s *RegistryService) Remove(albumID, photoID string) (models.Photo, error) {
	lock := s.albumLock(albumID)
	lock.Lock()
	defer lock.Unlock()

	album, err := s.store.Get(albumID)

	if err != nil {
		return models.Photo{}, err
	}

	for index, photo := range album.Photos {
		if photo.ID == photoID {
			album.Photos = append(album.Photos[:index], album.Photos[index+1:]...)

			if err = s.store.Put(album); err != nil {
				return models.Photo{}, fmt.Errorf("error removing photo %s from album %s: %w", photoID, albumID, err)
			}

			return photo, nil
		}
	}

	return models.Photo{}, models.ErrPhotoNotFound
}

func (s *RegistryService) DeleteAlbum(albumID string) (models.Album, error) {
	lock := s.albumLock(albumID)
	lock.Lock()
	defer lock.Unlock()

	album, err := s.store.Get(albumID)

	if err != nil {
		return models.Album{}, err
	}

	if err = s.store.Delete(albumID); err != nil {
		return models.Album{}, fmt.Errorf("error deleting album %s: %w", albumID, err)
	}

	// A goroutine that already grabbed this lock from albumLock can still
	// unlock it after we drop the map entry. That is safe: album ids are
	// uuids and never reused, so no new caller can mint a second lock for
	// the same id while the old one is held.
	s.locksMu.Lock()
	delete(s.locks, albumID)
	s.locksMu.Unlock()

	return album, nil
}
