package services

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/adampresley/photovault/pkg/models"
	"github.com/google/uuid"
)

type UploadServicer interface {
	Ingest(ctx context.Context, albumID, albumName string, files []models.UploadFile) (models.IngestResult, error)
}

type UploadServiceConfig struct {
	FileStore       FileStorer
	MaxFileBytes    int64
	RegistryService RegistryServicer
	Thumbnailer     ThumbnailGenerator
}

/*
UploadService runs the per-file ingestion pipeline for one batch.
Files are processed sequentially in wire order so the photo order in
the registry matches the order the client sent them. A failing file
is reported and skipped; it never aborts the rest of the batch, so a
client can retry just the failed subset. Calling Ingest repeatedly
for the same album only appends.
*/
type UploadService struct {
	fileStore       FileStorer
	maxFileBytes    int64
	registryService RegistryServicer
	thumbnailer     ThumbnailGenerator
}

func NewUploadService(config UploadServiceConfig) UploadService {
	if config.MaxFileBytes <= 0 {
		config.MaxFileBytes = 50 << 20
	}

	return UploadService{
		fileStore:       config.FileStore,
		maxFileBytes:    config.MaxFileBytes,
		registryService: config.RegistryService,
		thumbnailer:     config.Thumbnailer,
	}
}

func (s UploadService) Ingest(ctx context.Context, albumID, albumName string, files []models.UploadFile) (models.IngestResult, error) {
	var (
		err   error
		album models.Album
	)

	if albumID == "" {
		if album, err = s.registryService.CreateAlbum(albumName); err != nil {
			return models.IngestResult{}, err
		}
	} else {
		if album, err = s.registryService.Get(albumID); err != nil {
			return models.IngestResult{}, err
		}
	}

	l := slog.With("albumID", album.ID)

	result := models.IngestResult{
		AlbumID:  album.ID,
		Accepted: []models.Photo{},
		Failures: []models.FileFailure{},
	}

	for _, file := range files {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}

		photo, reason := s.ingestOne(l, album.ID, file)

		if reason != "" {
			result.Failures = append(result.Failures, models.FileFailure{
				Filename: file.Filename,
				Reason:   reason,
			})

			continue
		}

		result.Accepted = append(result.Accepted, photo)
	}

	l.Info("batch ingested", "accepted", len(result.Accepted), "failed", len(result.Failures))
	return result, nil
}

/*
ingestOne validates, classifies, stores, thumbnails, and registers a
single file. On failure the returned reason is one of the stable
failure strings; a photo stored before a later step fails is removed
again so no registered photo ever lacks a thumbnail.
*/
func (s UploadService) ingestOne(l *slog.Logger, albumID string, file models.UploadFile) (models.Photo, string) {
	var (
		err        error
		storedPath string
		thumbPath  string
		thumb      Thumbnail
	)

	if int64(len(file.Data)) > s.maxFileBytes {
		l.Warn("file exceeds size ceiling", "filename", file.Filename, "size", len(file.Data))
		return models.Photo{}, models.FailureFileTooLarge
	}

	mimeType := detectContentType(file)

	if !IsSupportedImageType(mimeType) {
		l.Warn("file has unsupported content type", "filename", file.Filename, "contentType", mimeType)
		return models.Photo{}, models.FailureUnsupportedType
	}

	tier, cleanName := ClassifyTier(file.Filename)

	if !tier.IsValid() {
		l.Warn("unable to classify file into a tier", "filename", file.Filename)
		return models.Photo{}, models.FailureUnclassifiableTier
	}

	if storedPath, err = s.fileStore.StorePhoto(albumID, tier, cleanName, file.Data); err != nil {
		l.Error("error storing file", "filename", file.Filename, "error", err)
		return models.Photo{}, models.FailureIOFailure
	}

	if thumb, err = s.thumbnailer.Generate(file.Data, mimeType); err != nil {
		l.Error("error generating thumbnail", "filename", file.Filename, "error", err)

		/*
		 * A photo is never kept without a thumbnail. Roll the stored
		 * bytes back so the file is rejected entirely.
		 */
		if removeErr := s.fileStore.RemovePhoto(storedPath, ""); removeErr != nil {
			l.Error("error removing stored file after thumbnail failure", "filename", file.Filename, "error", removeErr)
		}

		return models.Photo{}, thumbnailFailureReason(err)
	}

	thumbName := thumbnailName(tier, cleanName)

	if thumbPath, err = s.fileStore.StoreThumbnail(albumID, thumbName, thumb.Data); err != nil {
		l.Error("error storing thumbnail", "filename", file.Filename, "error", err)

		if removeErr := s.fileStore.RemovePhoto(storedPath, ""); removeErr != nil {
			l.Error("error removing stored file after thumbnail store failure", "filename", file.Filename, "error", removeErr)
		}

		return models.Photo{}, models.FailureIOFailure
	}

	photo := models.Photo{
		ID:               uuid.NewString(),
		OriginalFilename: cleanName,
		Tier:             tier,
		StoredPath:       storedPath,
		Width:            thumb.SourceWidth,
		Height:           thumb.SourceHeight,
		ThumbnailPath:    thumbPath,
		UploadedAt:       time.Now().UTC(),
	}

	if err = s.registryService.Append(albumID, photo); err != nil {
		/*
		 * The stored file is now an orphan. That is accepted collateral:
		 * the registry is the source of truth, so an unregistered file
		 * is simply not part of the album.
		 */
		l.Error("error appending photo to registry", "filename", file.Filename, "error", err)
		return models.Photo{}, models.FailureIOFailure
	}

	return photo, ""
}

func detectContentType(file models.UploadFile) string {
	sniffed := http.DetectContentType(file.Data)

	if IsSupportedImageType(sniffed) {
		return sniffed
	}

	/*
	 * Sniffing only inspects the first 512 bytes; fall back to the
	 * declared type when it names a supported format the sniffer
	 * could not identify.
	 */
	declared, _, _ := strings.Cut(file.ContentType, ";")
	return strings.TrimSpace(strings.ToLower(declared))
}

func thumbnailFailureReason(err error) string {
	if errors.Is(err, ErrUnsupportedFormat) {
		return models.FailureUnsupportedFormat
	}

	return models.FailureDecodeFailure
}

/*
thumbnailName prefixes the tier so the light and max copies of the
same filename never collide in the flat per-album thumbnail folder.
*/
func thumbnailName(tier models.Tier, cleanName string) string {
	ext := filepath.Ext(cleanName)
	stem := strings.TrimSuffix(cleanName, ext)
	return string(tier) + "_" + stem + ".jpg"
}
