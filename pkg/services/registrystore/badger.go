package registrystore

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/adampresley/photovault/pkg/models"
	"github.com/dgraph-io/badger/v4"
)

/*
BadgerStore keeps one JSON-encoded album record per key in an
embedded Badger database. Badger transactions give us the atomic
replace the registry contract requires.
*/
type BadgerStore struct {
	db *badger.DB
}

func NewBadgerStore(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil

	db, err := badger.Open(opts)

	if err != nil {
		return nil, fmt.Errorf("error opening registry database: %w", err)
	}

	return &BadgerStore{db: db}, nil
}

func (s *BadgerStore) Get(albumID string) (models.Album, error) {
	var album models.Album

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(albumID))

		if err != nil {
			if err == badger.ErrKeyNotFound {
				return models.ErrAlbumNotFound
			}

			return err
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &album)
		})
	})

	if err != nil {
		return models.Album{}, err
	}

	return album, nil
}

func (s *BadgerStore) Put(album models.Album) error {
	return s.db.Update(func(txn *badger.Txn) error {
		data, err := json.Marshal(album)

		if err != nil {
			return fmt.Errorf("error encoding album record: %w", err)
		}

		return txn.Set([]byte(album.ID), data)
	})
}

func (s *BadgerStore) Delete(albumID string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get([]byte(albumID)); err != nil {
			if err == badger.ErrKeyNotFound {
				return models.ErrAlbumNotFound
			}

			return err
		}

		return txn.Delete([]byte(albumID))
	})
}

func (s *BadgerStore) List() ([]models.Album, error) {
	var albums []models.Album

	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var album models.Album

			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &album)
			})

			if err != nil {
				return err
			}

			albums = append(albums, album)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	sort.Slice(albums, func(i, j int) bool {
		return albums[i].CreatedAt.Before(albums[j].CreatedAt)
	})

	return albums, nil
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}
