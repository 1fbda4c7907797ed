package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/oklog/ulid/v2"

	"github.com/dotsalary/dotsalary/internal/ingest"
	"github.com/dotsalary/dotsalary/internal/metrics"
	"github.com/dotsalary/dotsalary/internal/model"
)

// RecordPersister stores a parsed batch.
type RecordPersister interface {
	BulkPersist(ctx context.Context, records []model.SalaryRecord) (*ReconcileResult, error)
}

// Archiver keeps a copy of an accepted upload and returns where it was stored.
type Archiver interface {
	Store(ctx context.Context, uploadID string, body []byte) (string, error)
}

// UploadService runs an uploaded file through parsing, reconciliation and
// archiving.
type UploadService struct {
	persister RecordPersister
	archiver  Archiver
	metrics   metrics.Recorder
	logger    *slog.Logger
}

// NewUploadService creates a new UploadService.
// archiver may be nil to disable archiving.
func NewUploadService(persister RecordPersister, archiver Archiver, recorder metrics.Recorder, logger *slog.Logger) *UploadService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &UploadService{
		persister: persister,
		archiver:  archiver,
		metrics:   recorder,
		logger:    logger,
	}
}

// UploadInput defines an uploaded file.
type UploadInput struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

// UploadResult describes a processed upload.
type UploadResult struct {
	UploadID string
	// Success is 1 when records were persisted and 0 when the file held no
	// data rows.
	Success    int
	Records    int
	Reconcile  *ReconcileResult
	ArchiveKey string
}

// Upload parses and persists a salary file.
//
// Format problems are returned as *ingest.FormatError and storage problems
// as *StorageError. A file with only a header succeeds with Success 0 and
// does not touch storage. Archiving is best effort and never fails the
// upload.
func (s *UploadService) Upload(ctx context.Context, input UploadInput) (*UploadResult, error) {
	uploadID := ulid.Make().String()
	logger := s.logger.With(
		slog.String("upload_id", uploadID),
		slog.String("filename", input.Filename),
	)

	if err := ingest.CheckContentType(input.ContentType); err != nil {
		s.metrics.IncUpload(metrics.UploadRejected)
		logger.Info("upload rejected", slog.String("reason", err.Error()))
		return nil, err
	}

	raw, err := io.ReadAll(input.Body)
	if err != nil {
		s.metrics.IncUpload(metrics.UploadFailed)
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}

	records, err := ingest.Parse(input.ContentType, bytes.NewReader(raw))
	if err != nil {
		var formatErr *ingest.FormatError
		if errors.As(err, &formatErr) {
			s.metrics.IncUpload(metrics.UploadRejected)
			logger.Info("upload rejected", slog.String("reason", formatErr.Message))
			return nil, err
		}
		s.metrics.IncUpload(metrics.UploadFailed)
		return nil, fmt.Errorf("failed to parse upload: %w", err)
	}

	result := &UploadResult{
		UploadID: uploadID,
		Records:  len(records),
	}

	if len(records) == 0 {
		s.metrics.IncUpload(metrics.UploadEmpty)
		logger.Info("upload contained no records")
		return result, nil
	}
	s.metrics.ObserveUploadRecords(len(records))

	reconciled, err := s.persister.BulkPersist(ctx, records)
	if err != nil {
		s.metrics.IncUpload(metrics.UploadFailed)
		logger.Error("failed to persist upload", slog.String("error", err.Error()))
		return nil, err
	}
	s.metrics.IncUpload(metrics.UploadSuccess)

	result.Success = reconciled.Success
	result.Reconcile = reconciled

	logger.Info("upload persisted",
		slog.Int("records", len(records)),
		slog.Int("inserted", reconciled.Inserted),
		slog.Int("updated", reconciled.Updated),
		slog.Int("skipped", reconciled.Skipped),
	)

	if s.archiver != nil {
		key, err := s.archiver.Store(ctx, uploadID, raw)
		if err != nil {
			s.metrics.IncArchive(metrics.ArchiveFailed)
			logger.Warn("failed to archive upload", slog.String("error", err.Error()))
		} else {
			s.metrics.IncArchive(metrics.ArchiveSuccess)
			result.ArchiveKey = key
		}
	}

	return result, nil
}
