package usecase

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync"

	"weddinglink/internal/domain/service"
	"weddinglink/pkg/errors"
)

const DefaultMaxUploadBytes = 10 * 1024 * 1024 // 10MB

type UploadInput struct {
	FileName string
	FileType string
	FileSize int64
	Reader   io.Reader
}

type UploadResult struct {
	URL      string `json:"url"`
	FileName string `json:"file_name"`
	FileType string `json:"file_type"`
	FileSize int64  `json:"file_size"`
}

// AttachmentUploader turns a local file into a durable URL on the blob
// store. One uploader exists per composer; at most one upload is in
// flight at a time; a second request is rejected synchronously rather
// than queued, so the composer is never ambiguous about which attachment
// is the pending one.
type AttachmentUploader struct {
	mu         sync.Mutex
	storage    service.FileStorage
	maxBytes   int64
	inFlight   bool
	abandoned  bool
	progress   int
	onProgress func(int)
}

func NewAttachmentUploader(storage service.FileStorage, maxBytes int64) *AttachmentUploader {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	return &AttachmentUploader{
		storage:  storage,
		maxBytes: maxBytes,
	}
}

// OnProgress registers a callback for progress updates (0-100). Progress
// only ever increases within one upload.
func (u *AttachmentUploader) OnProgress(fn func(int)) {
	u.mu.Lock()
	u.onProgress = fn
	u.mu.Unlock()
}

func (u *AttachmentUploader) Progress() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.progress
}

// Abandon discards the pending upload. Its eventual result is dropped and
// the stored blob, if any, is deleted best-effort; an abandoned upload
// never auto-sends.
func (u *AttachmentUploader) Abandon() {
	u.mu.Lock()
	if u.inFlight {
		u.abandoned = true
	}
	u.mu.Unlock()
}

func (u *AttachmentUploader) Upload(ctx context.Context, input UploadInput) (*UploadResult, error) {
	if input.FileSize > u.maxBytes {
		return nil, errors.Validation(
			fmt.Sprintf("File size exceeds maximum allowed (%dMB)", u.maxBytes/(1024*1024)), nil)
	}
	if input.Reader == nil {
		return nil, errors.Validation("No file content provided", nil)
	}

	u.mu.Lock()
	if u.inFlight {
		u.mu.Unlock()
		return nil, errors.Conflict("Another upload is already in progress")
	}
	u.inFlight = true
	u.abandoned = false
	u.progress = 0
	u.mu.Unlock()

	reader := &progressReader{
		reader:   input.Reader,
		total:    input.FileSize,
		uploader: u,
	}

	url, err := u.storage.UploadFile(ctx, reader, input.FileType, "attachments")

	u.mu.Lock()
	u.inFlight = false
	abandoned := u.abandoned
	u.abandoned = false
	if err != nil || abandoned {
		// No partial state may survive a failed or discarded upload.
		u.progress = 0
	} else {
		u.progress = 100
	}
	onProgress := u.onProgress
	u.mu.Unlock()

	if err != nil {
		return nil, classifyUploadError(err)
	}
	if abandoned {
		if deleteErr := u.storage.DeleteFile(context.Background(), url); deleteErr != nil {
			log.Printf("Upload abandoned: failed to delete orphaned blob %s: %v", url, deleteErr)
		}
		return nil, errors.Canceled("Upload was abandoned")
	}

	if onProgress != nil {
		onProgress(100)
	}
	return &UploadResult{
		URL:      url,
		FileName: input.FileName,
		FileType: input.FileType,
		FileSize: input.FileSize,
	}, nil
}

func classifyUploadError(err error) *errors.AppError {
	if errors.From(err).Code != "INTERNAL_ERROR" {
		return errors.From(err)
	}
	return errors.Network("Attachment upload failed", err)
}

// progressReader reports monotonically increasing progress while the blob
// client drains the file. It caps at 99 until the storage call returns,
// so 100 always means the durable URL exists.
type progressReader struct {
	reader   io.Reader
	total    int64
	written  int64
	uploader *AttachmentUploader
}

func (p *progressReader) Read(buf []byte) (int, error) {
	n, err := p.reader.Read(buf)
	if n > 0 && p.total > 0 {
		p.written += int64(n)
		pct := int(p.written * 100 / p.total)
		if pct > 99 {
			pct = 99
		}
		p.uploader.recordProgress(pct)
	}
	return n, err
}

func (u *AttachmentUploader) recordProgress(pct int) {
	u.mu.Lock()
	if pct <= u.progress {
		u.mu.Unlock()
		return
	}
	u.progress = pct
	onProgress := u.onProgress
	u.mu.Unlock()

	if onProgress != nil {
		onProgress(pct)
	}
}
