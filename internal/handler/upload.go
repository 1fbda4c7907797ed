package handler

import (
	"context"
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/dotsalary/dotsalary/internal/handler/dto"
	"github.com/dotsalary/dotsalary/internal/ingest"
	"github.com/dotsalary/dotsalary/internal/middleware"
	"github.com/dotsalary/dotsalary/internal/service"
)

const (
	// UploadFileField is the multipart field carrying the CSV file.
	UploadFileField = "file"
	// UploadIDHeader carries the id assigned to an accepted upload.
	UploadIDHeader = "X-Upload-ID"

	multipartMemory = 8 << 20
)

// Uploader processes uploaded salary files.
type Uploader interface {
	Upload(ctx context.Context, input service.UploadInput) (*service.UploadResult, error)
}

// UploadHandler handles salary file uploads.
type UploadHandler struct {
	svc    Uploader
	logger *slog.Logger
}

// NewUploadHandler creates a new UploadHandler.
func NewUploadHandler(svc Uploader, logger *slog.Logger) *UploadHandler {
	return &UploadHandler{
		svc:    svc,
		logger: logger,
	}
}

// Upload handles POST /upload.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	file, header, err := h.formFile(r)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.writeError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		h.writeError(w, http.StatusBadRequest, "Required part 'file' is not present")
		return
	}
	defer file.Close()

	result, err := h.svc.Upload(r.Context(), service.UploadInput{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Body:        file,
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	w.Header().Set(UploadIDHeader, result.UploadID)
	writeJSON(w, http.StatusOK, dto.UploadResponse{Success: result.Success})
}

func (h *UploadHandler) formFile(r *http.Request) (multipart.File, *multipart.FileHeader, error) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return nil, nil, err
	}
	return r.FormFile(UploadFileField)
}

func (h *UploadHandler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var formatErr *ingest.FormatError
	if errors.As(err, &formatErr) {
		h.writeError(w, http.StatusBadRequest, formatErr.Message)
		return
	}

	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		h.writeError(w, http.StatusRequestEntityTooLarge, "Request body too large")
		return
	}

	h.logger.Error("upload failed",
		slog.String("error", err.Error()),
		slog.String("request_id", middleware.GetRequestID(r.Context())),
	)

	var storageErr *service.StorageError
	if errors.As(err, &storageErr) {
		h.writeError(w, http.StatusInternalServerError, "failed to persist records")
		return
	}
	h.writeError(w, http.StatusInternalServerError, "failed to process upload")
}

func (h *UploadHandler) writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, dto.UploadResponse{Success: 0, Error: message})
}
