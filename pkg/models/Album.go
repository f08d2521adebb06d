package models

import (
	"fmt"
	"time"
)

var (
	ErrAlbumNotFound = fmt.Errorf("album not found")
	ErrPhotoNotFound = fmt.Errorf("photo not found")
)

type Album struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	Photos    []Photo   `json:"photos"`
}

func (a Album) FindPhoto(photoID string) (Photo, bool) {
	for _, photo := range a.Photos {
		if photo.ID == photoID {
			return photo, true
		}
	}

	return Photo{}, false
}
