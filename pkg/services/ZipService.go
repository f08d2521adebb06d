package services

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sync"
	"time"

	"github.com/adampresley/photovault/pkg/models"
)

const archiveChunkSize = 64 * 1024

var (
	ErrEmptyArchive       = errors.New("no files to archive")
	ErrArchiveBuildFailed = errors.New("archive could not be built")
)

/*
Archive describes a finished zip sitting in the spool directory,
ready to be streamed. Size is known because the build is complete,
which lets the web layer set Content-Length before the first byte.
*/
type Archive struct {
	SpoolPath string
	Size      int64
	FileCount int
}

type ZipServicer interface {
	Create(ctx context.Context, albumIDs []string) (Archive, error)
	Stream(ctx context.Context, archive Archive, sink io.Writer) error
	Discard(archive Archive)
	StartCleanupRoutine(interval time.Duration)
	StopCleanupRoutine()
}

type ZipServiceConfig struct {
	FileStore       FileStorer
	RegistryService RegistryServicer
	SpoolDir        string
	SpoolMaxAge     time.Duration
}

/*
ZipService builds album archives member-by-member into a spool file
on disk, so an arbitrarily large multi-album download never holds
more than one compressed member's buffer in memory, then streams the
finished file out in fixed-size chunks.
*/
type ZipService struct {
	config        ZipServiceConfig
	cleanupTicker *time.Ticker
	stopCleanup   chan struct{}
	wg            *sync.WaitGroup
}

func NewZipService(config ZipServiceConfig) *ZipService {
	if config.SpoolMaxAge <= 0 {
		config.SpoolMaxAge = time.Hour
	}

	return &ZipService{
		config:      config,
		stopCleanup: make(chan struct{}),
		wg:          &sync.WaitGroup{},
	}
}

func (s *ZipService) Create(ctx context.Context, albumIDs []string) (Archive, error) {
	var (
		err   error
		spool *os.File
	)

	l := slog.With("albumIDs", albumIDs)

	if err = os.MkdirAll(s.config.SpoolDir, 0755); err != nil {
		return Archive{}, fmt.Errorf("%w: error creating spool directory: %v", ErrArchiveBuildFailed, err)
	}

	if spool, err = os.CreateTemp(s.config.SpoolDir, "archive-*.zip"); err != nil {
		return Archive{}, fmt.Errorf("%w: error creating spool file: %v", ErrArchiveBuildFailed, err)
	}

	archive, err := s.build(ctx, l, albumIDs, spool)

	if err != nil {
		_ = spool.Close()
		_ = os.Remove(spool.Name())
		return Archive{}, err
	}

	if err = spool.Close(); err != nil {
		_ = os.Remove(spool.Name())
		return Archive{}, fmt.Errorf("%w: error closing spool file: %v", ErrArchiveBuildFailed, err)
	}

	l.Info("archive built", "spool", archive.SpoolPath, "size", archive.Size, "files", archive.FileCount)
	return archive, nil
}

func (s *ZipService) build(ctx context.Context, l *slog.Logger, albumIDs []string, spool *os.File) (Archive, error) {
	zipWriter := zip.NewWriter(spool)
	fileCount := 0
	usedFolders := map[string]bool{}

	addFile := func(folder string, photo models.Photo) error {
		src, err := s.config.FileStore.OpenPhoto(photo.StoredPath)

		if err != nil {
			return err
		}

		defer src.Close()

		memberPath := path.Join(folder, string(photo.Tier), filepath.Base(photo.StoredPath))
		dest, err := zipWriter.Create(memberPath)

		if err != nil {
			return fmt.Errorf("failed to create file '%s' in zip: %w", memberPath, err)
		}

		if _, err = io.Copy(dest, src); err != nil {
			return fmt.Errorf("failed to copy file '%s' to zip: %w", memberPath, err)
		}

		return nil
	}

	for _, albumID := range albumIDs {
		if ctx.Err() != nil {
			return Archive{}, ctx.Err()
		}

		album, err := s.config.RegistryService.Get(albumID)

		if err != nil {
			l.Warn("skipping unknown album", "albumID", albumID, "error", err)
			continue
		}

		folder := albumFolderName(album, usedFolders)

		for _, photo := range album.Photos {
			if ctx.Err() != nil {
				return Archive{}, ctx.Err()
			}

			if err = addFile(folder, photo); err != nil {
				return Archive{}, fmt.Errorf("%w: %v", ErrArchiveBuildFailed, err)
			}

			fileCount++
		}
	}

	if fileCount == 0 {
		return Archive{}, ErrEmptyArchive
	}

	if err := zipWriter.Close(); err != nil {
		return Archive{}, fmt.Errorf("%w: error finalizing zip: %v", ErrArchiveBuildFailed, err)
	}

	info, err := spool.Stat()

	if err != nil {
		return Archive{}, fmt.Errorf("%w: error measuring spool file: %v", ErrArchiveBuildFailed, err)
	}

	return Archive{
		SpoolPath: spool.Name(),
		Size:      info.Size(),
		FileCount: fileCount,
	}, nil
}

/*
Stream copies the spooled archive to the sink in fixed-size chunks,
checking for cancellation between chunks so a disconnected client
releases the spool promptly. The spool file is always removed.
*/
func (s *ZipService) Stream(ctx context.Context, archive Archive, sink io.Writer) error {
	defer s.Discard(archive)

	src, err := os.Open(archive.SpoolPath)

	if err != nil {
		return fmt.Errorf("error opening spooled archive: %w", err)
	}

	defer src.Close()

	chunk := make([]byte, archiveChunkSize)

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		n, readErr := src.Read(chunk)

		if n > 0 {
			if _, writeErr := sink.Write(chunk[:n]); writeErr != nil {
				return fmt.Errorf("error streaming archive: %w", writeErr)
			}
		}

		if readErr == io.EOF {
			return nil
		}

		if readErr != nil {
			return fmt.Errorf("error reading spooled archive: %w", readErr)
		}
	}
}

func (s *ZipService) Discard(archive Archive) {
	if archive.SpoolPath == "" {
		return
	}

	if err := os.Remove(archive.SpoolPath); err != nil && !os.IsNotExist(err) {
		slog.Error("failed to remove spooled archive", "spool", archive.SpoolPath, "error", err)
	}
}

// StartCleanupRoutine starts a periodic routine that removes spool
// files left behind by crashed or abandoned downloads.
func (s *ZipService) StartCleanupRoutine(interval time.Duration) {
	s.stopCleanup = make(chan struct{})
	s.cleanupTicker = time.NewTicker(interval)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		for {
			select {
			case <-s.cleanupTicker.C:
				s.cleanupStaleSpools()
			case <-s.stopCleanup:
				s.cleanupTicker.Stop()
				return
			}
		}
	}()

	slog.Info("spool cleanup routine started", "interval", interval)
}

// StopCleanupRoutine stops the cleanup routine
func (s *ZipService) StopCleanupRoutine() {
	if s.cleanupTicker != nil {
		close(s.stopCleanup)
		s.wg.Wait()
		slog.Info("spool cleanup routine stopped")
	}
}

func (s *ZipService) cleanupStaleSpools() {
	l := slog.With("function", "cleanupStaleSpools")

	entries, err := os.ReadDir(s.config.SpoolDir)

	if err != nil {
		if !os.IsNotExist(err) {
			l.Error("error reading spool directory", "error", err)
		}

		return
	}

	cutoff := time.Now().Add(-s.config.SpoolMaxAge)
	var removedCount int

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		info, err := entry.Info()

		if err != nil {
			continue
		}

		if info.ModTime().Before(cutoff) {
			l.Info("removing stale spool file", "name", entry.Name(), "modTime", info.ModTime())

			if err = os.Remove(filepath.Join(s.config.SpoolDir, entry.Name())); err != nil {
				l.Error("failed to remove stale spool file", "name", entry.Name(), "error", err)
			} else {
				removedCount++
			}
		}
	}

	if removedCount > 0 {
		l.Info("completed cleanup of stale spool files", "removed", removedCount)
	}
}

/*
albumFolderName picks the archive's top-level folder for an album.
Album names are client-supplied and not unique, so duplicates get a
numeric suffix the same way the file store resolves collisions.
*/
func albumFolderName(album models.Album, used map[string]bool) string {
	base := SanitizeFilename(album.Name)

	if base == placeholderFilename && album.Name == "" {
		base = album.ID
	}

	name := base

	for n := 1; used[name]; n++ {
		name = fmt.Sprintf("%s (%d)", base, n)
	}

	used[name] = true
	return name
}
