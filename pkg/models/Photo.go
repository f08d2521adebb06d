package models

import "time"

type Tier string

const (
	TierLight   Tier = "light"
	TierMax     Tier = "max"
	TierUnknown Tier = "unknown"
)

func (t Tier) IsValid() bool {
	return t == TierLight || t == TierMax
}

/*
Photo describes one stored image. StoredPath and ThumbnailPath are
relative to the storage and thumbnail roots respectively. A Photo is
never mutated after it has been appended to the registry.
*/
type Photo struct {
	ID               string    `json:"id"`
	OriginalFilename string    `json:"originalFilename"`
	Tier             Tier      `json:"tier"`
	StoredPath       string    `json:"storedPath"`
	Width            int       `json:"width"`
	Height           int       `json:"height"`
	ThumbnailPath    string    `json:"thumbnailPath"`
	UploadedAt       time.Time `json:"uploadedAt"`
}
