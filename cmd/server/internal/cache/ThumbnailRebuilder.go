package cache

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/adampresley/photovault/pkg/models"
	"github.com/adampresley/photovault/pkg/services"
	"github.com/alitto/pond/v2"
)

type ThumbnailRebuilder interface {
	RebuildCache()
}

type ThumbnailRebuilderConfig struct {
	FileStore         services.FileStorer
	MaxRebuildWorkers int
	RegistryService   services.RegistryServicer
	ShutdownCtx       context.Context
	Thumbnailer       services.ThumbnailGenerator
}

/*
ThumbnailRebuilderService walks the registry and regenerates any
thumbnail that has gone missing or is older than its source photo.
The registry requires a readable thumbnail for every photo it lists;
this sweep repairs that invariant after manual disk surgery or a
restore from backup.
*/
type ThumbnailRebuilderService struct {
	fileStore         services.FileStorer
	maxRebuildWorkers int
	registryService   services.RegistryServicer
	shutdownCtx       context.Context
	thumbnailer       services.ThumbnailGenerator
}

func NewThumbnailRebuilderService(config ThumbnailRebuilderConfig) ThumbnailRebuilderService {
	return ThumbnailRebuilderService{
		fileStore:         config.FileStore,
		maxRebuildWorkers: config.MaxRebuildWorkers,
		registryService:   config.RegistryService,
		shutdownCtx:       config.ShutdownCtx,
		thumbnailer:       config.Thumbnailer,
	}
}

func (c ThumbnailRebuilderService) RebuildCache() {
	var (
		err    error
		albums []models.Album
	)

	slog.Info("starting thumbnail cache rebuild...")

	if albums, err = c.registryService.ListAll(); err != nil {
		slog.Error("error retrieving albums from registry", "error", err)
		return
	}

	pool := pond.NewPool(c.maxRebuildWorkers, pond.WithContext(c.shutdownCtx))

	for _, album := range albums {
		for _, photo := range album.Photos {
			pool.Submit(func() {
				if c.isThumbnailCurrent(photo) {
					return
				}

				slog.Info("rebuilding thumbnail...", "albumID", album.ID, "photoID", photo.ID)

				if err := c.rebuildThumbnail(photo); err != nil {
					slog.Error("error rebuilding thumbnail", "albumID", album.ID, "photoID", photo.ID, "error", err)
				}
			})
		}
	}

	_ = pool.Stop().Wait()
	slog.Info("thumbnail cache rebuild finished")
}

func (c ThumbnailRebuilderService) isThumbnailCurrent(photo models.Photo) bool {
	thumbStat, err := os.Stat(c.fileStore.ThumbnailPath(photo.ThumbnailPath))

	if err != nil {
		return false
	}

	sourceStat, err := os.Stat(c.fileStore.PhotoPath(photo.StoredPath))

	if err != nil {
		// Source is gone; nothing we can rebuild from.
		return true
	}

	return !thumbStat.ModTime().Before(sourceStat.ModTime())
}

func (c ThumbnailRebuilderService) rebuildThumbnail(photo models.Photo) error {
	sourceBytes, err := os.ReadFile(c.fileStore.PhotoPath(photo.StoredPath))

	if err != nil {
		return err
	}

	thumb, err := c.thumbnailer.Generate(sourceBytes, http.DetectContentType(sourceBytes))

	if err != nil {
		return err
	}

	fullPath := c.fileStore.ThumbnailPath(photo.ThumbnailPath)

	if err = os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return err
	}

	return os.WriteFile(fullPath, thumb.Data, 0644)
}
