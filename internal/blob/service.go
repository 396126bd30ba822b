// Package blob stores uploaded documents. Uploads start temporary and become
// permanent once a case update uses them; temporary uploads nobody used are swept.
package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/eden-hr/casetracker/internal/record/domain"
	apperrors "github.com/eden-hr/casetracker/internal/shared/errors"
	"github.com/eden-hr/casetracker/internal/shared/logger"
	"github.com/eden-hr/casetracker/internal/shared/metrics"
	"github.com/eden-hr/casetracker/internal/shared/types"
)

// Service manages uploaded files
type Service struct {
	store   domain.Store
	objects ObjectStore
	prefix  string
	now     func() time.Time
}

// NewService creates a blob service. Object keys are placed under prefix.
func NewService(store domain.Store, objects ObjectStore, prefix string) *Service {
	return &Service{store: store, objects: objects, prefix: strings.Trim(prefix, "/"), now: time.Now}
}

// WithClock replaces the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) objectKey(ref, filename string) string {
	name := ref + strings.ToLower(filepath.Ext(filename))
	if s.prefix == "" {
		return name
	}
	return path.Join(s.prefix, name)
}

// Upload stores the file and records it as a temporary blob.
func (s *Service) Upload(ctx context.Context, actor types.ID, filename, contentType string, body io.Reader) (b *domain.Blob, err error) {
	defer func() { metrics.RecordBlobUpload(err) }()

	filename = filepath.Base(strings.TrimSpace(filename))
	if filename == "" || filename == "." || filename == "/" {
		return nil, apperrors.FieldError("file", "filename is required")
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	rs, size, err := seekable(body)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to read upload")
	}
	if size == 0 {
		return nil, apperrors.FieldError("file", "must not be empty")
	}

	ref, err := gonanoid.New()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to generate file reference")
	}

	b = &domain.Blob{
		FileRef:     ref,
		ObjectKey:   s.objectKey(ref, filename),
		Filename:    filename,
		ContentType: contentType,
		Size:        size,
		OwnerID:     actor,
		CreatedAt:   s.now().UTC().Truncate(time.Microsecond),
	}

	if err := s.objects.Put(ctx, b.ObjectKey, contentType, rs); err != nil {
		return nil, apperrors.Wrap(err, "failed to store file")
	}

	err = s.store.InTx(ctx, func(tx domain.Tx) error {
		return tx.InsertBlob(ctx, b)
	})
	if err != nil {
		if delErr := s.objects.Delete(ctx, b.ObjectKey); delErr != nil {
			logger.Warn("failed to remove object after failed upload", "key", b.ObjectKey, "error", delErr)
		}
		return nil, apperrors.Wrap(err, "failed to record file")
	}

	logger.Info("file uploaded", "file_ref", ref, "size", size, "content_type", contentType)
	return b, nil
}

// seekable returns body as an io.ReadSeeker with its size, buffering it if needed.
func seekable(body io.Reader) (io.ReadSeeker, int64, error) {
	if rs, ok := body.(io.ReadSeeker); ok {
		size, err := rs.Seek(0, io.SeekEnd)
		if err != nil {
			return nil, 0, err
		}
		if _, err := rs.Seek(0, io.SeekStart); err != nil {
			return nil, 0, err
		}
		return rs, size, nil
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, 0, err
	}
	return bytes.NewReader(data), int64(len(data)), nil
}

// Open returns the blob's metadata and contents. The caller closes the reader.
func (s *Service) Open(ctx context.Context, ref string) (*domain.Blob, io.ReadCloser, error) {
	b, err := s.store.Blob(ctx, ref)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.objects.Get(ctx, b.ObjectKey)
	if err != nil {
		if errors.Is(err, ErrObjectNotFound) {
			logger.Error("file contents missing", "file_ref", ref, "key", b.ObjectKey)
			return nil, nil, apperrors.NotFound("file", ref)
		}
		return nil, nil, apperrors.Wrap(err, "failed to open file")
	}
	return b, rc, nil
}

// Stat returns the blob's metadata.
func (s *Service) Stat(ctx context.Context, ref string) (*domain.Blob, error) {
	return s.store.Blob(ctx, ref)
}

// Sweep removes temporary, unused blobs created more than olderThan ago.
// Rows are removed first; an object that then fails to delete is only logged.
func (s *Service) Sweep(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := s.now().UTC().Add(-olderThan)

	var orphans []domain.Blob
	err := s.store.InTx(ctx, func(tx domain.Tx) error {
		var err error
		orphans, err = tx.OrphanBlobs(ctx, cutoff)
		if err != nil {
			return err
		}
		for _, b := range orphans {
			if err := tx.DeleteBlob(ctx, b.FileRef); err != nil {
				return fmt.Errorf("failed to delete blob %s: %w", b.FileRef, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to sweep files")
	}

	for _, b := range orphans {
		if err := s.objects.Delete(ctx, b.ObjectKey); err != nil {
			logger.Warn("failed to delete orphaned object", "key", b.ObjectKey, "error", err)
		}
	}

	metrics.RecordBlobsSwept(len(orphans))
	if len(orphans) > 0 {
		logger.Info("orphaned files swept", "count", len(orphans), "cutoff", cutoff)
	}
	return len(orphans), nil
}

// RunSweeper sweeps every interval until ctx is done. A non-positive interval disables sweeping.
func (s *Service) RunSweeper(ctx context.Context, interval, olderThan time.Duration) error {
	if interval <= 0 {
		return nil
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := s.Sweep(ctx, olderThan); err != nil {
				logger.Error("file sweep failed", "error", err)
			}
		}
	}
}
