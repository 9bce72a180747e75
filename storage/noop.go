package storage

import (
	"context"
	"errors"
	"io"
)

var ErrStorageDisabled = errors.New("object storage is not configured")

type noopUploader struct{}

// NewNoopUploader возвращает заглушку для окружений без объектного
// хранилища: загрузка отклоняется, публичные URL пустые.
func NewNoopUploader() FileUploader {
	return noopUploader{}
}

func (noopUploader) Upload(ctx context.Context, key, contentType string, reader io.Reader) (*UploadResult, error) {
	return nil, ErrStorageDisabled
}

func (noopUploader) Delete(ctx context.Context, key string) error {
	return nil
}

func (noopUploader) GetPublicURL(key string) string {
	return ""
}
