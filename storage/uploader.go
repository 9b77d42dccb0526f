package storage

import (
	"context"
	"io"
)

type UploadResult struct {
	Key      string
	Location string // публичный URL или ключ, если публичного домена нет
	ETag     string
}

// FileUploader is an object store that results documents are written to.
type FileUploader interface {
	Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*UploadResult, error)
	Delete(ctx context.Context, key string) error
	GetPublicURL(key string) string
}
