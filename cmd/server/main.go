package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/adampresley/adamgokit/httphelpers"
	"github.com/adampresley/adamgokit/mux"
	"github.com/adampresley/photovault/cmd/server/internal/albums"
	"github.com/adampresley/photovault/cmd/server/internal/cache"
	"github.com/adampresley/photovault/cmd/server/internal/configuration"
	"github.com/adampresley/photovault/pkg/services"
	"github.com/adampresley/photovault/pkg/services/registrystore"
)

var (
	Version string = "development"
	appName string = "photovault"

	config configuration.Config

	/* Services */
	fileStore          services.FileStorer
	registryService    services.RegistryServicer
	registryStore      registrystore.Store
	thumbnailRebuilder cache.ThumbnailRebuilder
	thumbnailService   services.ThumbnailGenerator
	uploadService      services.UploadServicer
	zipService         services.ZipServicer

	/* Controllers */
	albumController albums.AlbumController
)

func main() {
	var (
		err error
	)

	config = configuration.LoadConfig()
	setupLogger(&config, Version)

	slog.Info("configuration loaded",
		slog.String("app", appName),
		slog.String("version", Version),
		slog.String("loglevel", config.LogLevel),
		slog.String("host", config.Host),
		slog.String("storageRoot", config.StorageRoot),
		slog.String("registryBackend", config.RegistryBackend),
	)

	slog.Debug("setting up...")

	shutdownCtx, cancel := context.WithCancel(context.Background())

	/*
	 * Setup services
	 */
	if registryStore, err = openRegistryStore(config); err != nil {
		panic(err)
	}

	defer registryStore.Close()

	registryService = services.NewRegistryService(services.RegistryServiceConfig{
		Store: registryStore,
	})

	fileStore = services.NewFileStoreService(services.FileStoreServiceConfig{
		StorageRoot:   config.StorageRoot,
		ThumbnailRoot: config.ThumbnailRoot,
	})

	thumbnailService = services.NewThumbnailService(services.ThumbnailServiceConfig{
		TargetSize: config.ThumbnailSize,
		Quality:    80,
	})

	maxFileBytes := int64(config.MaxUploadSizeMB) << 20

	uploadService = services.NewUploadService(services.UploadServiceConfig{
		FileStore:       fileStore,
		MaxFileBytes:    maxFileBytes,
		RegistryService: registryService,
		Thumbnailer:     thumbnailService,
	})

	zipService = services.NewZipService(services.ZipServiceConfig{
		FileStore:       fileStore,
		RegistryService: registryService,
		SpoolDir:        config.SpoolDir,
		SpoolMaxAge:     time.Duration(config.SpoolMaxAgeMinutes) * time.Minute,
	})

	thumbnailRebuilder = cache.NewThumbnailRebuilderService(cache.ThumbnailRebuilderConfig{
		FileStore:         fileStore,
		MaxRebuildWorkers: config.MaxRebuildWorkers,
		RegistryService:   registryService,
		ShutdownCtx:       shutdownCtx,
		Thumbnailer:       thumbnailService,
	})

	/*
	 * Setup controllers
	 */
	albumController = albums.NewAlbumController(albums.AlbumControllerConfig{
		FileStore:       fileStore,
		MaxFileBytes:    maxFileBytes,
		RegistryService: registryService,
		UploadService:   uploadService,
		ZipService:      zipService,
	})

	/*
	 * Setup router and http server
	 */
	slog.Debug("setting up routes...")

	logRequests := newRequestLoggerMiddleware()

	routes := []mux.Route{
		{Path: "GET /heartbeat", HandlerFunc: heartbeat},
		{Path: "GET /albums", HandlerFunc: albumController.ListAlbums, Middlewares: []mux.MiddlewareFunc{logRequests}},
		{Path: "GET /albums/{id}", HandlerFunc: albumController.GetAlbum, Middlewares: []mux.MiddlewareFunc{logRequests}},
		{Path: "DELETE /albums/{id}", HandlerFunc: albumController.DeleteAlbum, Middlewares: []mux.MiddlewareFunc{logRequests}},
		{Path: "POST /albums/{id}/photos", HandlerFunc: albumController.UploadPhotos, Middlewares: []mux.MiddlewareFunc{logRequests}},
		{Path: "DELETE /albums/{id}/photos/{photoId}", HandlerFunc: albumController.DeletePhoto, Middlewares: []mux.MiddlewareFunc{logRequests}},
		{Path: "GET /albums/{id}/photos/{photoId}/thumbnail", HandlerFunc: albumController.GetThumbnail},
		{Path: "GET /albums/{id}/download", HandlerFunc: albumController.DownloadAlbum, Middlewares: []mux.MiddlewareFunc{logRequests}},
		{Path: "POST /download-multiple", HandlerFunc: albumController.DownloadMultiple, Middlewares: []mux.MiddlewareFunc{logRequests}},
	}

	routerConfig := mux.RouterConfig{
		Address:          config.Host,
		Debug:            Version == "development",
		HttpWriteTimeout: 60,
	}

	m := mux.SetupRouter(routerConfig, routes)
	httpServer, quit := mux.SetupServer(routerConfig, m)

	/*
	 * Start the spool cleanup job
	 */
	zipService.StartCleanupRoutine(time.Duration(config.SpoolMaxAgeMinutes) * time.Minute)
	defer zipService.StopCleanupRoutine()

	/*
	 * Start the thumbnail rebuild job
	 */
	setupThumbnailRebuilder(quit)

	/*
	 * Wait for graceful shutdown
	 */
	slog.Info("server started")

	<-quit

	cancel()
	mux.Shutdown(httpServer)
	slog.Info("server stopped")
}

func heartbeat(w http.ResponseWriter, r *http.Request) {
	httphelpers.TextOK(w, "OK")
}

func setupLogger(config *configuration.Config, version string) {
	level := slog.LevelDebug

	switch strings.ToLower(config.LogLevel) {
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	var handler slog.Handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})

	if version != "development" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}

	slog.SetDefault(slog.New(handler))
}

func openRegistryStore(config configuration.Config) (registrystore.Store, error) {
	switch strings.ToLower(config.RegistryBackend) {
	case "badger":
		return registrystore.NewBadgerStore(config.RegistryPath)

	case "sqlite":
		return registrystore.NewSqliteStore(config.RegistryDSN)

	default:
		return registrystore.NewFileStore(config.RegistryPath)
	}
}

func setupThumbnailRebuilder(quit chan os.Signal) {
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		running := true

		runner := func() {
			defer func() {
				running = false
			}()

			thumbnailRebuilder.RebuildCache()
			slog.Info("thumbnail rebuilder finished.")
		}

		runner()

		for {
			select {
			case <-quit:
				return

			case <-ticker.C:
				if running {
					slog.Info("thumbnail rebuilder already running. skipping...")
					continue
				}

				running = true
				runner()
			}
		}
	}()
}
