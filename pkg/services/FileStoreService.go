package services

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adampresley/photovault/pkg/models"
)

type FileStorer interface {
	StorePhoto(albumID string, tier models.Tier, cleanFilename string, data []byte) (string, error)
	StoreThumbnail(albumID, baseName string, data []byte) (string, error)
	OpenPhoto(storedRelPath string) (*os.File, error)
	PhotoPath(storedRelPath string) string
	ThumbnailPath(thumbRelPath string) string
	RemovePhoto(storedRelPath, thumbRelPath string) error
	RemoveAlbum(albumID string) error
}

type FileStoreServiceConfig struct {
	StorageRoot   string
	ThumbnailRoot string
}

/*
FileStoreService owns the on-disk bytes. Photos live under
<StorageRoot>/<albumID>/<tier>/ and thumbnails under
<ThumbnailRoot>/<albumID>/. Writes are create-only: an existing file
is never overwritten, name collisions get a numeric suffix instead.
*/
type FileStoreService struct {
	storageRoot   string
	thumbnailRoot string
}

func NewFileStoreService(config FileStoreServiceConfig) FileStoreService {
	return FileStoreService{
		storageRoot:   config.StorageRoot,
		thumbnailRoot: config.ThumbnailRoot,
	}
}

func (s FileStoreService) StorePhoto(albumID string, tier models.Tier, cleanFilename string, data []byte) (string, error) {
	dir := filepath.Join(s.storageRoot, albumID, string(tier))

	relPath, err := writeUnique(dir, cleanFilename, data)

	if err != nil {
		return "", err
	}

	return filepath.ToSlash(filepath.Join(albumID, string(tier), relPath)), nil
}

func (s FileStoreService) StoreThumbnail(albumID, baseName string, data []byte) (string, error) {
	dir := filepath.Join(s.thumbnailRoot, albumID)

	name, err := writeUnique(dir, baseName, data)

	if err != nil {
		return "", err
	}

	return filepath.ToSlash(filepath.Join(albumID, name)), nil
}

func (s FileStoreService) OpenPhoto(storedRelPath string) (*os.File, error) {
	f, err := os.Open(s.PhotoPath(storedRelPath))

	if err != nil {
		return nil, fmt.Errorf("error opening stored photo '%s': %w", storedRelPath, err)
	}

	return f, nil
}

func (s FileStoreService) PhotoPath(storedRelPath string) string {
	return filepath.Join(s.storageRoot, filepath.FromSlash(storedRelPath))
}

func (s FileStoreService) ThumbnailPath(thumbRelPath string) string {
	return filepath.Join(s.thumbnailRoot, filepath.FromSlash(thumbRelPath))
}

func (s FileStoreService) RemovePhoto(storedRelPath, thumbRelPath string) error {
	if err := os.Remove(s.PhotoPath(storedRelPath)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("error removing stored photo '%s': %w", storedRelPath, err)
	}

	if thumbRelPath != "" {
		if err := os.Remove(s.ThumbnailPath(thumbRelPath)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("error removing thumbnail '%s': %w", thumbRelPath, err)
		}
	}

	return nil
}

func (s FileStoreService) RemoveAlbum(albumID string) error {
	if err := os.RemoveAll(filepath.Join(s.storageRoot, albumID)); err != nil {
		return fmt.Errorf("error removing album storage for '%s': %w", albumID, err)
	}

	if err := os.RemoveAll(filepath.Join(s.thumbnailRoot, albumID)); err != nil {
		return fmt.Errorf("error removing album thumbnails for '%s': %w", albumID, err)
	}

	return nil
}

/*
writeUnique writes data into dir under name, appending " (n)" before
the extension until an unused name is found. MkdirAll is idempotent,
so two concurrent stores into a fresh album directory never race on
directory creation.
*/
func writeUnique(dir, name string, data []byte) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("error creating directory '%s': %w", dir, err)
	}

	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	candidate := name

	for n := 1; ; n++ {
		fullPath := filepath.Join(dir, candidate)

		f, err := os.OpenFile(fullPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)

		if err == nil {
			if _, err = f.Write(data); err != nil {
				_ = f.Close()
				return "", fmt.Errorf("error writing file '%s': %w", fullPath, err)
			}

			if err = f.Close(); err != nil {
				return "", fmt.Errorf("error closing file '%s': %w", fullPath, err)
			}

			return candidate, nil
		}

		if !os.IsExist(err) {
			return "", fmt.Errorf("error creating file '%s': %w", fullPath, err)
		}

		candidate = fmt.Sprintf("%s (%d)%s", stem, n, ext)
	}
}
