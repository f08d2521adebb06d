package models

/*
Failure reasons reported back to the upload client. These are stable
strings the client batcher keys on to decide which files to retry.
*/
const (
	FailureFileTooLarge       = "FileTooLarge"
	FailureUnsupportedType    = "UnsupportedType"
	FailureUnclassifiableTier = "UnclassifiableTier"
	FailureUnsupportedFormat  = "UnsupportedFormat"
	FailureDecodeFailure      = "DecodeFailure"
	FailureIOFailure          = "IOFailure"
)

/*
UploadFile is one file lifted out of a multipart request by the web
layer. Filename may carry a relative path (e.g. "light/img.jpg") when
the client encodes the tier as a folder.
*/
type UploadFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

type FileFailure struct {
	Filename string `json:"filename"`
	Reason   string `json:"reason"`
}

type IngestResult struct {
	AlbumID  string        `json:"albumId"`
	Accepted []Photo       `json:"accepted"`
	Failures []FileFailure `json:"failures"`
}
