package registrystore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/adampresley/photovault/pkg/models"
)

/*
FileStore keeps the whole registry in a single JSON document mapping
album id to album record. Every mutation is a full read-modify-write:
the new document is written to a temporary file in the same directory
and renamed over the old one, so a crash mid-write leaves the
previous valid state intact.
*/
type FileStore struct {
	path string
	mu   sync.RWMutex
}

func NewFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("error creating registry directory: %w", err)
	}

	return &FileStore{path: path}, nil
}

func (s *FileStore) Get(albumID string) (models.Album, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, err := s.read()

	if err != nil {
		return models.Album{}, err
	}

	album, ok := record[albumID]

	if !ok {
		return models.Album{}, models.ErrAlbumNotFound
	}

	return album, nil
}

func (s *FileStore) Put(album models.Album) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.read()

	if err != nil {
		return err
	}

	record[album.ID] = album
	return s.write(record)
}

func (s *FileStore) Delete(albumID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.read()

	if err != nil {
		return err
	}

	if _, ok := record[albumID]; !ok {
		return models.ErrAlbumNotFound
	}

	delete(record, albumID)
	return s.write(record)
}

func (s *FileStore) List() ([]models.Album, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, err := s.read()

	if err != nil {
		return nil, err
	}

	albums := make([]models.Album, 0, len(record))

	for _, album := range record {
		albums = append(albums, album)
	}

	sort.Slice(albums, func(i, j int) bool {
		return albums[i].CreatedAt.Before(albums[j].CreatedAt)
	})

	return albums, nil
}

func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) read() (map[string]models.Album, error) {
	record := map[string]models.Album{}

	data, err := os.ReadFile(s.path)

	if err != nil {
		if os.IsNotExist(err) {
			return record, nil
		}

		return nil, fmt.Errorf("error reading registry file: %w", err)
	}

	if err = json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("error parsing registry file: %w", err)
	}

	return record, nil
}

func (s *FileStore) write(record map[string]models.Album) error {
	data, err := json.MarshalIndent(record, "", "  ")

	if err != nil {
		return fmt.Errorf("error encoding registry: %w", err)
	}

	temp, err := os.CreateTemp(filepath.Dir(s.path), "registry-*.tmp")

	if err != nil {
		return fmt.Errorf("error creating temporary registry file: %w", err)
	}

	if _, err = temp.Write(data); err != nil {
		_ = temp.Close()
		_ = os.Remove(temp.Name())
		return fmt.Errorf("error writing temporary registry file: %w", err)
	}

	// CreateTemp opens files 0600. The registry should be world-readable
	// like the photos it describes.
	if err = temp.Chmod(0644); err != nil {
		_ = temp.Close()
		_ = os.Remove(temp.Name())
		return fmt.Errorf("error setting registry file permissions: %w", err)
	}

	if err = temp.Close(); err != nil {
		_ = os.Remove(temp.Name())
		return fmt.Errorf("error closing temporary registry file: %w", err)
	}

	if err = os.Rename(temp.Name(), s.path); err != nil {
		_ = os.Remove(temp.Name())
		return fmt.Errorf("error replacing registry file: %w", err)
	}

	return nil
}
