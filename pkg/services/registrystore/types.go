package registrystore

import "github.com/adampresley/photovault/pkg/models"

/*
Store abstracts the durable record behind the album registry. Every
implementation must make Put atomic with respect to a crash: a reader
always observes either the previous album record or the new one,
never a torn write.
*/
type Store interface {
	Get(albumID string) (models.Album, error)
	Put(album models.Album) error
	Delete(albumID string) error
	List() ([]models.Album, error)
	Close() error
}
