package storage

import (
	"context"
	"errors"
)

var (
	ErrEmptyFile = errors.New("пустые данные файла")
	ErrNotImage  = errors.New("файл не является изображением")
	ErrBadURL    = errors.New("некорректный URL файла")
)

type FileStorage interface {
	// UploadImage stores an image under prefix and returns its public URL.
	UploadImage(ctx context.Context, prefix string, data []byte, filename string) (string, error)

	DeleteFile(ctx context.Context, fileURL string) error
}
