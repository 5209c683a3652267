package v1

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/kurochkinivan/table_import/internal/domain"
	"github.com/kurochkinivan/table_import/internal/ingest"
)

const maxUploadMemory = 32 << 20

// ImportsService is the engine surface the handler needs.
type ImportsService interface {
	Submit(ctx context.Context, fileName string, fileSize int64, payload []byte, opts domain.ParserOptions) (*domain.Job, error)
	SubmitAndWait(ctx context.Context, fileName string, fileSize int64, payload []byte, opts domain.ParserOptions) (*domain.Job, error)
	PreviewFile(ctx context.Context, fileName string, payload []byte, opts domain.ParserOptions) (*ingest.Preview, error)
	Job(ctx context.Context, id string) (*domain.Job, error)
	Jobs(ctx context.Context, limit, offset uint64) ([]*domain.Job, int, error)
	Progress(ctx context.Context, id string) (domain.Progress, error)
	Schema(ctx context.Context, jobID string) (*domain.Schema, error)
	Records(ctx context.Context, jobID, term string, limit, offset uint64) ([]*domain.Record, int64, error)
	DeleteJob(ctx context.Context, id string) error
	Formats() []string
}

type ImportsHandler struct {
	service ImportsService
}

func NewImportsHandler(service ImportsService) *ImportsHandler {
	return &ImportsHandler{service: service}
}

type SubmitImportResponse struct {
	JobID  string        `json:"job_id"`
	Status domain.Status `json:"status"`
}

func (h *ImportsHandler) SubmitImport(w http.ResponseWriter, r *http.Request) {
	payload, fileName, opts, err := h.parseUpload(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if r.URL.Query().Get("wait") == "true" {
		job, err := h.service.SubmitAndWait(r.Context(), fileName, int64(len(payload)), payload, opts)
		if err != nil {
			h.writeError(w, err)
			return
		}

		h.writeJSON(w, http.StatusOK, job)
		return
	}

	job, err := h.service.Submit(r.Context(), fileName, int64(len(payload)), payload, opts)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusAccepted, SubmitImportResponse{JobID: job.ID, Status: job.Status})
}

func (h *ImportsHandler) PreviewImport(w http.ResponseWriter, r *http.Request) {
	payload, fileName, opts, err := h.parseUpload(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	preview, err := h.service.PreviewFile(r.Context(), fileName, payload, opts)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, preview)
}

type ListImportsResponse struct {
	Jobs       []*domain.Job `json:"jobs"`
	Pagination Pagination    `json:"pagination"`
}

func (h *ImportsHandler) ListImports(w http.ResponseWriter, r *http.Request) {
	page, limit, err := parsePagination(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	jobs, total, err := h.service.Jobs(r.Context(), limit, (page-1)*limit)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, ListImportsResponse{
		Jobs:       jobs,
		Pagination: newPagination(page, limit, int64(total)),
	})
}

func (h *ImportsHandler) GetImport(w http.ResponseWriter, r *http.Request) {
	job, err := h.service.Job(r.Context(), chi.URLParam(r, "job_id"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, job)
}

func (h *ImportsHandler) GetProgress(w http.ResponseWriter, r *http.Request) {
	progress, err := h.service.Progress(r.Context(), chi.URLParam(r, "job_id"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, progress)
}

func (h *ImportsHandler) GetSchema(w http.ResponseWriter, r *http.Request) {
	schema, err := h.service.Schema(r.Context(), chi.URLParam(r, "job_id"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, schema)
}

type GetRecordsResponse struct {
	Records    []*domain.Record `json:"records"`
	Pagination Pagination       `json:"pagination"`
}

func (h *ImportsHandler) GetRecords(w http.ResponseWriter, r *http.Request) {
	page, limit, err := parsePagination(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	term := r.URL.Query().Get("search")

	records, total, err := h.service.Records(r.Context(), chi.URLParam(r, "job_id"), term, limit, (page-1)*limit)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, GetRecordsResponse{
		Records:    records,
		Pagination: newPagination(page, limit, total),
	})
}

func (h *ImportsHandler) DeleteImport(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteJob(r.Context(), chi.URLParam(r, "job_id")); err != nil {
		h.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type GetFormatsResponse struct {
	Extensions []string `json:"extensions"`
}

func (h *ImportsHandler) GetFormats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, GetFormatsResponse{Extensions: h.service.Formats()})
}

func (h *ImportsHandler) parseUpload(r *http.Request) ([]byte, string, domain.ParserOptions, error) {
	opts := domain.DefaultParserOptions()

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		return nil, "", opts, errors.New("invalid multipart form")
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, "", opts, errors.New("missing file field")
	}
	defer file.Close()

	payload, err := io.ReadAll(file)
	if err != nil {
		return nil, "", opts, errors.New("failed to read file")
	}

	if v := r.FormValue("delimiter"); v != "" {
		runes := []rune(v)
		if len(runes) != 1 {
			return nil, "", opts, errors.New("delimiter must be a single character")
		}
		opts.Delimiter = runes[0]
	}

	if v := r.FormValue("has_header"); v != "" {
		opts.HasHeader, err = strconv.ParseBool(v)
		if err != nil {
			return nil, "", opts, errors.New("invalid has_header")
		}
	}

	if v := r.FormValue("skip_rows"); v != "" {
		opts.SkipRows, err = strconv.Atoi(v)
		if err != nil || opts.SkipRows < 0 {
			return nil, "", opts, errors.New("invalid skip_rows")
		}
	}

	if v := r.FormValue("batch_size"); v != "" {
		opts.BatchSize, err = strconv.Atoi(v)
		if err != nil || opts.BatchSize <= 0 {
			return nil, "", opts, errors.New("invalid batch_size")
		}
	}

	if v := r.FormValue("preview_rows"); v != "" {
		opts.PreviewRows, err = strconv.Atoi(v)
		if err != nil || opts.PreviewRows <= 0 {
			return nil, "", opts, errors.New("invalid preview_rows")
		}
	}

	opts.SheetName = r.FormValue("sheet_name")

	return payload, header.Filename, opts, nil
}

func (h *ImportsHandler) writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

func (h *ImportsHandler) writeError(w http.ResponseWriter, err error) {
	var unsupported *domain.UnsupportedFormatError

	switch {
	case errors.Is(err, domain.ErrJobNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, domain.ErrJobProcessing):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, domain.ErrEmptyInput), errors.As(err, &unsupported):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
