package service

import (
	"context"
	"io"
)

// FileStorage is the external blob store the attachment uploader writes
// to. UploadFile returns a durable public URL for the stored object.
type FileStorage interface {
	UploadFile(ctx context.Context, file io.Reader, fileType, folder string) (string, error)
	DeleteFile(ctx context.Context, fileURL string) error
}
