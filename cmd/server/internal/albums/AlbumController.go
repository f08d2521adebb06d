package albums

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/adampresley/adamgokit/httphelpers"
	"github.com/adampresley/photovault/pkg/models"
	"github.com/adampresley/photovault/pkg/services"
)

type AlbumControllerConfig struct {
	FileStore       services.FileStorer
	MaxFileBytes    int64
	RegistryService services.RegistryServicer
	UploadService   services.UploadServicer
	ZipService      services.ZipServicer
}

type AlbumController struct {
	fileStore       services.FileStorer
	maxFileBytes    int64
	registryService services.RegistryServicer
	uploadService   services.UploadServicer
	zipService      services.ZipServicer
}

func NewAlbumController(config AlbumControllerConfig) AlbumController {
	return AlbumController{
		fileStore:       config.FileStore,
		maxFileBytes:    config.MaxFileBytes,
		registryService: config.RegistryService,
		uploadService:   config.UploadService,
		zipService:      config.ZipService,
	}
}

/*
POST /albums/{id}/photos

One multipart part per file, processed in wire order so the photo
order in the album matches the order the client sent them. The part
name may carry a relative path like "light/img.jpg" when the
transport strips directory structure from filenames. {id} is an
existing album id, or the literal "new" together with a "name" form
field to create an album on the first batch.
*/
func (c AlbumController) UploadPhotos(w http.ResponseWriter, r *http.Request) {
	var (
		err    error
		reader *multipart.Reader
	)

	albumID := httphelpers.GetFromRequest[string](r, "id")

	if albumID == "new" {
		albumID = ""
	}

	if reader, err = r.MultipartReader(); err != nil {
		httphelpers.WriteText(w, http.StatusBadRequest, "expected a multipart form body")
		return
	}

	albumName, files, err := c.collectParts(reader)

	if err != nil {
		slog.Error("error reading multipart body", "error", err)
		httphelpers.WriteText(w, http.StatusBadRequest, "unable to read upload body")
		return
	}

	if albumID == "" && albumName == "" {
		httphelpers.WriteText(w, http.StatusBadRequest, "a name is required when creating a new album")
		return
	}

	result, err := c.uploadService.Ingest(r.Context(), albumID, albumName, files)

	if err != nil {
		if errors.Is(err, models.ErrAlbumNotFound) {
			httphelpers.WriteText(w, http.StatusNotFound, "album not found")
			return
		}

		slog.Error("error ingesting batch", "error", err, "albumID", albumID)
		httphelpers.TextInternalServerError(w, "Failed to ingest upload batch")
		return
	}

	writeJson(w, http.StatusOK, result)
}

/*
collectParts lifts the raw multipart stream into typed upload
records. A part with a filename is a file; the "name" field carries
the display name for a new album. Each file is read fully, capped one
byte past the ceiling so the coordinator can reject oversized files
with a proper per-file failure instead of this layer erroring out.
*/
func (c AlbumController) collectParts(reader *multipart.Reader) (string, []models.UploadFile, error) {
	var (
		albumName string
		files     []models.UploadFile
	)

	for {
		part, err := reader.NextPart()

		if err == io.EOF {
			break
		}

		if err != nil {
			return "", nil, fmt.Errorf("error reading multipart part: %w", err)
		}

		if part.FileName() == "" {
			if part.FormName() == "name" {
				value, err := io.ReadAll(io.LimitReader(part, 1024))

				if err != nil {
					return "", nil, fmt.Errorf("error reading album name field: %w", err)
				}

				albumName = strings.TrimSpace(string(value))
			}

			_ = part.Close()
			continue
		}

		data, err := io.ReadAll(io.LimitReader(part, c.maxFileBytes+1))
		_ = part.Close()

		if err != nil {
			return "", nil, fmt.Errorf("error reading file part '%s': %w", part.FileName(), err)
		}

		filename := part.FileName()

		/*
		 * Browsers strip directories from filenames, so clients may
		 * encode the tier folder in the part name instead.
		 */
		if strings.Contains(part.FormName(), "/") || strings.Contains(part.FormName(), "\\") {
			filename = part.FormName()
		}

		files = append(files, models.UploadFile{
			Filename:    filename,
			ContentType: part.Header.Get("Content-Type"),
			Data:        data,
		})
	}

	return albumName, files, nil
}

/*
GET /albums
*/
func (c AlbumController) ListAlbums(w http.ResponseWriter, r *http.Request) {
	albums, err := c.registryService.ListAll()

	if err != nil {
		slog.Error("error listing albums", "error", err)
		httphelpers.TextInternalServerError(w, "Failed to list albums")
		return
	}

	writeJson(w, http.StatusOK, albums)
}

/*
GET /albums/{id}
*/
func (c AlbumController) GetAlbum(w http.ResponseWriter, r *http.Request) {
	albumID := httphelpers.GetFromRequest[string](r, "id")

	album, err := c.registryService.Get(albumID)

	if err != nil {
		if errors.Is(err, models.ErrAlbumNotFound) {
			httphelpers.WriteText(w, http.StatusNotFound, "album not found")
			return
		}

		slog.Error("error getting album", "error", err, "albumID", albumID)
		httphelpers.TextInternalServerError(w, "Failed to get album")
		return
	}

	writeJson(w, http.StatusOK, album)
}

/*
DELETE /albums/{id}
*/
func (c AlbumController) DeleteAlbum(w http.ResponseWriter, r *http.Request) {
	albumID := httphelpers.GetFromRequest[string](r, "id")

	album, err := c.registryService.DeleteAlbum(albumID)

	if err != nil {
		if errors.Is(err, models.ErrAlbumNotFound) {
			httphelpers.WriteText(w, http.StatusNotFound, "album not found")
			return
		}

		slog.Error("error deleting album", "error", err, "albumID", albumID)
		httphelpers.TextInternalServerError(w, "Failed to delete album")
		return
	}

	if err = c.fileStore.RemoveAlbum(album.ID); err != nil {
		slog.Error("error removing album storage", "error", err, "albumID", albumID)
	}

	httphelpers.TextOK(w, "OK")
}

/*
DELETE /albums/{id}/photos/{photoId}
*/
func (c AlbumController) DeletePhoto(w http.ResponseWriter, r *http.Request) {
	albumID := httphelpers.GetFromRequest[string](r, "id")
	photoID := httphelpers.GetFromRequest[string](r, "photoId")

	photo, err := c.registryService.Remove(albumID, photoID)

	if err != nil {
		if errors.Is(err, models.ErrAlbumNotFound) || errors.Is(err, models.ErrPhotoNotFound) {
			httphelpers.WriteText(w, http.StatusNotFound, "photo not found")
			return
		}

		slog.Error("error removing photo", "error", err, "albumID", albumID, "photoID", photoID)
		httphelpers.TextInternalServerError(w, "Failed to remove photo")
		return
	}

	if err = c.fileStore.RemovePhoto(photo.StoredPath, photo.ThumbnailPath); err != nil {
		slog.Error("error removing photo files", "error", err, "albumID", albumID, "photoID", photoID)
	}

	httphelpers.TextOK(w, "OK")
}

/*
GET /albums/{id}/photos/{photoId}/thumbnail
*/
func (c AlbumController) GetThumbnail(w http.ResponseWriter, r *http.Request) {
	albumID := httphelpers.GetFromRequest[string](r, "id")
	photoID := httphelpers.GetFromRequest[string](r, "photoId")

	album, err := c.registryService.Get(albumID)

	if err != nil {
		httphelpers.WriteText(w, http.StatusNotFound, "album not found")
		return
	}

	photo, found := album.FindPhoto(photoID)

	if !found {
		httphelpers.WriteText(w, http.StatusNotFound, "photo not found")
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	http.ServeFile(w, r, c.fileStore.ThumbnailPath(photo.ThumbnailPath))
}

/*
GET /albums/{id}/download
*/
func (c AlbumController) DownloadAlbum(w http.ResponseWriter, r *http.Request) {
	albumID := httphelpers.GetFromRequest[string](r, "id")

	name := albumID

	if album, err := c.registryService.Get(albumID); err == nil {
		name = album.Name
	}

	c.serveArchive(w, r, []string{albumID}, name)
}

/*
POST /download-multiple
*/
func (c AlbumController) DownloadMultiple(w http.ResponseWriter, r *http.Request) {
	var body struct {
		AlbumIDs []string `json:"albumIds"`
	}

	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httphelpers.WriteText(w, http.StatusBadRequest, "expected a JSON body with albumIds")
		return
	}

	if len(body.AlbumIDs) == 0 {
		httphelpers.WriteText(w, http.StatusBadRequest, "albumIds must not be empty")
		return
	}

	c.serveArchive(w, r, body.AlbumIDs, "albums")
}

func (c AlbumController) serveArchive(w http.ResponseWriter, r *http.Request, albumIDs []string, downloadName string) {
	archive, err := c.zipService.Create(r.Context(), albumIDs)

	if err != nil {
		if errors.Is(err, services.ErrEmptyArchive) {
			httphelpers.WriteText(w, http.StatusNotFound, "no files to download")
			return
		}

		slog.Error("error building archive", "error", err, "albumIDs", albumIDs)
		httphelpers.TextInternalServerError(w, "Failed to build download archive")
		return
	}

	/*
	 * Large archives can take far longer than the server's ordinary
	 * write timeout; downloads are only ended by client disconnect.
	 */
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", contentDisposition(downloadName+".zip"))
	w.Header().Set("Content-Length", fmt.Sprintf("%d", archive.Size))
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")

	if err = c.zipService.Stream(r.Context(), archive, w); err != nil {
		slog.Error("error streaming archive", "error", err, "albumIDs", albumIDs)
		return
	}

	slog.Info("archive download completed", "albumIDs", albumIDs, "size", archive.Size, "files", archive.FileCount)
}

/*
contentDisposition builds an attachment header with an ASCII-safe
primary filename plus the RFC 5987 filename* form for non-ASCII album
names.
*/
func contentDisposition(filename string) string {
	ascii := strings.Map(func(r rune) rune {
		if r < 32 || r > 126 || r == '"' || r == '\\' {
			return '_'
		}

		return r
	}, filename)

	return fmt.Sprintf(`attachment; filename="%s"; filename*=UTF-8''%s`, ascii, url.PathEscape(filename))
}

func writeJson(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(value); err != nil {
		slog.Error("error writing JSON response", "error", err)
	}
}
