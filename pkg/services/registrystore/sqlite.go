package registrystore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/adampresley/photovault/pkg/models"
	_ "github.com/glebarez/sqlite"
	"github.com/rfberaldo/sqlz"
	"github.com/rfberaldo/sqlz/binds"
)

const albumsSchema = `
CREATE TABLE IF NOT EXISTS albums (
   id TEXT NOT NULL PRIMARY KEY,
   name TEXT NOT NULL,
   created_at TIMESTAMP NOT NULL,
   photos TEXT NOT NULL
);
`

type albumRow struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	CreatedAt time.Time `db:"created_at"`
	Photos    string    `db:"photos"`
}

/*
SqliteStore keeps one row per album, with the ordered photo list
serialized as a JSON column. The whole record is replaced on every
mutation so the read-modify-write contract matches the file backend.
*/
type SqliteStore struct {
	db *sqlz.DB
}

var registerBinds sync.Once

func NewSqliteStore(dsn string) (*SqliteStore, error) {
	var (
		err error
		db  *sqlz.DB
	)

	registerBinds.Do(func() {
		binds.Register("sqlite", binds.BindByDriver("sqlite3"))
	})

	if db, err = sqlz.Connect("sqlite", dsn); err != nil {
		return nil, fmt.Errorf("error connecting to registry database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*30)
	defer cancel()

	if _, err = db.Exec(ctx, albumsSchema); err != nil {
		return nil, fmt.Errorf("error creating registry schema: %w", err)
	}

	return &SqliteStore{db: db}, nil
}

func (s *SqliteStore) Get(albumID string) (models.Album, error) {
	var (
		err error
		row albumRow
	)

	sql := `
SELECT
   a.id
   , a.name
   , a.created_at
   , a.photos
FROM albums AS a
WHERE 1=1
   AND a.id=?
   `

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	if err = s.db.QueryRow(ctx, &row, sql, albumID); err != nil {
		if sqlz.IsNotFound(err) {
			return models.Album{}, models.ErrAlbumNotFound
		}

		return models.Album{}, fmt.Errorf("error querying for album %s: %w", albumID, err)
	}

	return rowToAlbum(row)
}

func (s *SqliteStore) Put(album models.Album) error {
	var (
		err    error
		photos []byte
	)

	if photos, err = json.Marshal(album.Photos); err != nil {
		return fmt.Errorf("error encoding photos for album %s: %w", album.ID, err)
	}

	sql := `
INSERT INTO albums (id, name, created_at, photos)
VALUES (?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
   name = excluded.name,
   photos = excluded.photos
`

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	if _, err = s.db.Exec(ctx, sql, album.ID, album.Name, album.CreatedAt, string(photos)); err != nil {
		return fmt.Errorf("error writing album %s: %w", album.ID, err)
	}

	return nil
}

func (s *SqliteStore) Delete(albumID string) error {
	sql := `
DELETE FROM albums
WHERE 1=1
   AND id=?
`

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	result, err := s.db.Exec(ctx, sql, albumID)

	if err != nil {
		return fmt.Errorf("error deleting album %s: %w", albumID, err)
	}

	affected, err := result.RowsAffected()

	if err != nil {
		return fmt.Errorf("error checking delete result for album %s: %w", albumID, err)
	}

	if affected == 0 {
		return models.ErrAlbumNotFound
	}

	return nil
}

func (s *SqliteStore) List() ([]models.Album, error) {
	var (
		err  error
		rows []albumRow
	)

	sql := `
SELECT
   a.id
   , a.name
   , a.created_at
   , a.photos
FROM albums AS a
ORDER BY a.created_at
`

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	if err = s.db.Query(ctx, &rows, sql); err != nil {
		return nil, fmt.Errorf("error querying for albums: %w", err)
	}

	albums := make([]models.Album, 0, len(rows))

	for _, row := range rows {
		album, err := rowToAlbum(row)

		if err != nil {
			return nil, err
		}

		albums = append(albums, album)
	}

	return albums, nil
}

func (s *SqliteStore) Close() error {
	return s.db.Pool().Close()
}

func rowToAlbum(row albumRow) (models.Album, error) {
	album := models.Album{
		ID:        row.ID,
		Name:      row.Name,
		CreatedAt: row.CreatedAt,
		Photos:    []models.Photo{},
	}

	if err := json.Unmarshal([]byte(row.Photos), &album.Photos); err != nil {
		return models.Album{}, fmt.Errorf("error parsing photos for album %s: %w", row.ID, err)
	}

	return album, nil
}
