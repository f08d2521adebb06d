package albums

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/adampresley/photovault/pkg/models"
	"github.com/adampresley/photovault/pkg/services"
	"github.com/adampresley/photovault/pkg/services/registrystore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	store, err := registrystore.NewFileStore(filepath.Join(t.TempDir(), "registry.json"))
	require.NoError(t, err)

	registryService := services.NewRegistryService(services.RegistryServiceConfig{Store: store})

	fileStore := services.NewFileStoreService(services.FileStoreServiceConfig{
		StorageRoot:   filepath.Join(t.TempDir(), "photos"),
		ThumbnailRoot: filepath.Join(t.TempDir(), "thumbnails"),
	})

	uploadService := services.NewUploadService(services.UploadServiceConfig{
		FileStore:       fileStore,
		MaxFileBytes:    1 << 20,
		RegistryService: registryService,
		Thumbnailer:     services.NewThumbnailService(services.ThumbnailServiceConfig{TargetSize: 100, Quality: 80}),
	})

	zipService := services.NewZipService(services.ZipServiceConfig{
		FileStore:       fileStore,
		RegistryService: registryService,
		SpoolDir:        filepath.Join(t.TempDir(), "spool"),
		SpoolMaxAge:     time.Hour,
	})

	controller := NewAlbumController(AlbumControllerConfig{
		FileStore:       fileStore,
		MaxFileBytes:    1 << 20,
		RegistryService: registryService,
		UploadService:   uploadService,
		ZipService:      zipService,
	})

	m := http.NewServeMux()
	m.HandleFunc("GET /albums", controller.ListAlbums)
	m.HandleFunc("GET /albums/{id}", controller.GetAlbum)
	m.HandleFunc("DELETE /albums/{id}", controller.DeleteAlbum)
	m.HandleFunc("POST /albums/{id}/photos", controller.UploadPhotos)
	m.HandleFunc("DELETE /albums/{id}/photos/{photoId}", controller.DeletePhoto)
	m.HandleFunc("GET /albums/{id}/photos/{photoId}/thumbnail", controller.GetThumbnail)
	m.HandleFunc("GET /albums/{id}/download", controller.DownloadAlbum)
	m.HandleFunc("POST /download-multiple", controller.DownloadMultiple)

	server := httptest.NewServer(m)
	t.Cleanup(server.Close)

	return server
}

func testJPEG(t *testing.T) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 40, 30))

	for y := 0; y < 30; y++ {
		for x := 0; x < 40; x++ {
			img.Set(x, y, color.RGBA{R: 180, G: 90, B: 20, A: 255})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))

	return buf.Bytes()
}

func uploadBatch(t *testing.T, server *httptest.Server, albumID, albumName string, filenames []string) models.IngestResult {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	if albumName != "" {
		require.NoError(t, writer.WriteField("name", albumName))
	}

	jpegBytes := testJPEG(t)

	for _, filename := range filenames {
		part, err := writer.CreateFormFile(filename, filepath.Base(filename))
		require.NoError(t, err)

		_, err = part.Write(jpegBytes)
		require.NoError(t, err)
	}

	require.NoError(t, writer.Close())

	response, err := http.Post(
		server.URL+"/albums/"+albumID+"/photos",
		writer.FormDataContentType(),
		&body,
	)
	require.NoError(t, err)
	defer response.Body.Close()

	require.Equal(t, http.StatusOK, response.StatusCode)

	var result models.IngestResult
	require.NoError(t, json.NewDecoder(response.Body).Decode(&result))

	return result
}

func TestUploadCreatesAlbumAndReportsPerFileResults(t *testing.T) {
	server := newTestServer(t)

	result := uploadBatch(t, server, "new", "Test", []string{
		"a_light_1.jpg",
		"max/b.jpg",
		"c.jpg",
	})

	assert.NotEmpty(t, result.AlbumID)
	require.Len(t, result.Accepted, 2)
	assert.Equal(t, models.TierLight, result.Accepted[0].Tier)
	assert.Equal(t, models.TierMax, result.Accepted[1].Tier)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, "c.jpg", result.Failures[0].Filename)
	assert.Equal(t, models.FailureUnclassifiableTier, result.Failures[0].Reason)
}

func TestUploadSecondBatchAppends(t *testing.T) {
	server := newTestServer(t)

	first := uploadBatch(t, server, "new", "Test", []string{"light/a.jpg"})
	second := uploadBatch(t, server, first.AlbumID, "", []string{"max/b.jpg"})

	assert.Equal(t, first.AlbumID, second.AlbumID)

	response, err := http.Get(server.URL + "/albums/" + first.AlbumID)
	require.NoError(t, err)
	defer response.Body.Close()

	var album models.Album
	require.NoError(t, json.NewDecoder(response.Body).Decode(&album))
	assert.Len(t, album.Photos, 2)
}

func TestUploadToUnknownAlbum(t *testing.T) {
	server := newTestServer(t)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("light/a.jpg", "a.jpg")
	require.NoError(t, err)
	_, err = part.Write(testJPEG(t))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	response, err := http.Post(server.URL+"/albums/nope/photos", writer.FormDataContentType(), &body)
	require.NoError(t, err)
	defer response.Body.Close()

	assert.Equal(t, http.StatusNotFound, response.StatusCode)
}

func TestDownloadAlbumStreamsZipWithHeaders(t *testing.T) {
	server := newTestServer(t)

	result := uploadBatch(t, server, "new", "Test", []string{"light/a.jpg", "max/b.jpg"})

	response, err := http.Get(server.URL + "/albums/" + result.AlbumID + "/download")
	require.NoError(t, err)
	defer response.Body.Close()

	require.Equal(t, http.StatusOK, response.StatusCode)
	assert.Equal(t, "application/octet-stream", response.Header.Get("Content-Type"))
	assert.Contains(t, response.Header.Get("Content-Disposition"), `filename="Test.zip"`)
	assert.Equal(t, "no-store", response.Header.Get("Cache-Control"))

	data, err := io.ReadAll(response.Body)
	require.NoError(t, err)
	require.NotEmpty(t, response.Header.Get("Content-Length"))

	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	assert.Len(t, reader.File, 2)

	for _, member := range reader.File {
		assert.True(t, strings.HasPrefix(member.Name, "Test/"))
	}
}

func TestDownloadEmptyAlbum(t *testing.T) {
	server := newTestServer(t)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	require.NoError(t, writer.WriteField("name", "Empty"))
	require.NoError(t, writer.Close())

	response, err := http.Post(server.URL+"/albums/new/photos", writer.FormDataContentType(), &body)
	require.NoError(t, err)
	defer response.Body.Close()

	var result models.IngestResult
	require.NoError(t, json.NewDecoder(response.Body).Decode(&result))

	download, err := http.Get(server.URL + "/albums/" + result.AlbumID + "/download")
	require.NoError(t, err)
	defer download.Body.Close()

	assert.Equal(t, http.StatusNotFound, download.StatusCode)
}

func TestDownloadMultiple(t *testing.T) {
	server := newTestServer(t)

	first := uploadBatch(t, server, "new", "First", []string{"light/a.jpg"})
	second := uploadBatch(t, server, "new", "Second", []string{"max/b.jpg"})

	payload, err := json.Marshal(map[string][]string{
		"albumIds": {first.AlbumID, second.AlbumID},
	})
	require.NoError(t, err)

	response, err := http.Post(server.URL+"/download-multiple", "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	defer response.Body.Close()

	require.Equal(t, http.StatusOK, response.StatusCode)

	data, err := io.ReadAll(response.Body)
	require.NoError(t, err)

	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	names := []string{}

	for _, member := range reader.File {
		names = append(names, member.Name)
	}

	assert.Contains(t, names, "First/light/a.jpg")
	assert.Contains(t, names, "Second/max/b.jpg")
}

func TestDeletePhotoRemovesFiles(t *testing.T) {
	server := newTestServer(t)

	result := uploadBatch(t, server, "new", "Test", []string{"light/a.jpg"})
	require.Len(t, result.Accepted, 1)

	request, err := http.NewRequest(
		http.MethodDelete,
		server.URL+"/albums/"+result.AlbumID+"/photos/"+result.Accepted[0].ID,
		nil,
	)
	require.NoError(t, err)

	response, err := http.DefaultClient.Do(request)
	require.NoError(t, err)
	defer response.Body.Close()

	assert.Equal(t, http.StatusOK, response.StatusCode)

	albumResponse, err := http.Get(server.URL + "/albums/" + result.AlbumID)
	require.NoError(t, err)
	defer albumResponse.Body.Close()

	var album models.Album
	require.NoError(t, json.NewDecoder(albumResponse.Body).Decode(&album))
	assert.Empty(t, album.Photos)
}

func TestThumbnailEndpoint(t *testing.T) {
	server := newTestServer(t)

	result := uploadBatch(t, server, "new", "Test", []string{"light/a.jpg"})
	require.Len(t, result.Accepted, 1)

	response, err := http.Get(server.URL + "/albums/" + result.AlbumID + "/photos/" + result.Accepted[0].ID + "/thumbnail")
	require.NoError(t, err)
	defer response.Body.Close()

	require.Equal(t, http.StatusOK, response.StatusCode)

	data, err := io.ReadAll(response.Body)
	require.NoError(t, err)

	img, err := jpeg.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 100, img.Bounds().Dx())
	assert.Equal(t, 100, img.Bounds().Dy())
}
