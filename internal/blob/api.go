package blob

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/eden-hr/casetracker/internal/shared/auth"
	apperrors "github.com/eden-hr/casetracker/internal/shared/errors"
	"github.com/eden-hr/casetracker/internal/shared/httpx"
	"github.com/eden-hr/casetracker/internal/shared/logger"
)

// Handler provides HTTP handlers for file uploads
type Handler struct {
	svc       *Service
	maxMemory int64
}

// NewHandler creates a new file handler
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc, maxMemory: 8 << 20}
}

// Routes registers the file routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.Upload)
	r.Get("/{fileRef}", h.Download)
	r.Get("/{fileRef}/meta", h.Meta)

	return r
}

// Upload accepts a multipart form with a single "file" field
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(h.maxMemory); err != nil {
		httpx.Error(w, r, apperrors.BadRequest("invalid multipart form"))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		httpx.Error(w, r, apperrors.FieldError("file", "required"))
		return
	}
	defer file.Close()

	b, err := h.svc.Upload(r.Context(), auth.ActorID(r.Context()), header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}

	httpx.JSON(w, http.StatusCreated, b)
}

// Download streams a file's contents
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "fileRef")

	b, rc, err := h.svc.Open(r.Context(), ref)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", b.ContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(b.Size, 10))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", b.Filename))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		logger.Warn("file download interrupted", "file_ref", ref, "error", err)
	}
}

// Meta returns a file's metadata
func (h *Handler) Meta(w http.ResponseWriter, r *http.Request) {
	b, err := h.svc.Stat(r.Context(), chi.URLParam(r, "fileRef"))
	if err != nil {
		httpx.Error(w, r, err)
		return
	}

	httpx.JSON(w, http.StatusOK, b)
}
