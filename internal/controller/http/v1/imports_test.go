package v1_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	v1 "github.com/kurochkinivan/table_import/internal/controller/http/v1"
	"github.com/kurochkinivan/table_import/internal/domain"
	"github.com/kurochkinivan/table_import/internal/ingest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// serviceStub satisfies ImportsService with canned behavior per test.
type serviceStub struct {
	submit     func(fileName string, fileSize int64, payload []byte, opts domain.ParserOptions) (*domain.Job, error)
	progress   func(id string) (domain.Progress, error)
	deleteJob  func(id string) error
	submitOpts *domain.ParserOptions
}

func (s *serviceStub) Submit(_ context.Context, fileName string, fileSize int64, payload []byte, opts domain.ParserOptions) (*domain.Job, error) {
	s.submitOpts = &opts
	return s.submit(fileName, fileSize, payload, opts)
}

func (s *serviceStub) SubmitAndWait(_ context.Context, fileName string, fileSize int64, payload []byte, opts domain.ParserOptions) (*domain.Job, error) {
	job, err := s.submit(fileName, fileSize, payload, opts)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if err := job.Start(now); err != nil {
		return nil, err
	}
	if err := job.Complete(now); err != nil {
		return nil, err
	}

	return job, nil
}

func (s *serviceStub) PreviewFile(context.Context, string, []byte, domain.ParserOptions) (*ingest.Preview, error) {
	return &ingest.Preview{}, nil
}

func (s *serviceStub) Job(_ context.Context, id string) (*domain.Job, error) {
	return nil, domain.ErrJobNotFound
}

func (s *serviceStub) Jobs(context.Context, uint64, uint64) ([]*domain.Job, int, error) {
	return nil, 0, nil
}

func (s *serviceStub) Progress(_ context.Context, id string) (domain.Progress, error) {
	return s.progress(id)
}

func (s *serviceStub) Schema(context.Context, string) (*domain.Schema, error) {
	return nil, domain.ErrJobNotFound
}

func (s *serviceStub) Records(context.Context, string, string, uint64, uint64) ([]*domain.Record, int64, error) {
	return nil, 0, nil
}

func (s *serviceStub) DeleteJob(_ context.Context, id string) error {
	return s.deleteJob(id)
}

func (s *serviceStub) Formats() []string {
	return []string{".csv", ".tsv", ".txt", ".xls", ".xlsx"}
}

func uploadRequest(t *testing.T, target, fileName string, content []byte, fields map[string]string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", fileName)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)

	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}

	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	return req
}

func TestSubmitImport_Async(t *testing.T) {
	t.Parallel()

	stub := &serviceStub{
		submit: func(fileName string, fileSize int64, payload []byte, opts domain.ParserOptions) (*domain.Job, error) {
			assert.Equal(t, "data.csv", fileName)
			assert.Equal(t, int64(len(payload)), fileSize)
			return domain.NewJob("job-1", fileName, fileSize, time.Now()), nil
		},
	}

	router := v1.NewRouter(stub)
	rec := httptest.NewRecorder()

	req := uploadRequest(t, "/api/v1/imports", "data.csv", []byte("a,b\n1,2\n"), map[string]string{
		"delimiter":  ",",
		"has_header": "true",
		"skip_rows":  "1",
	})

	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp v1.SubmitImportResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "job-1", resp.JobID)
	assert.Equal(t, domain.StatusPending, resp.Status)

	require.NotNil(t, stub.submitOpts)
	assert.Equal(t, ',', stub.submitOpts.Delimiter)
	assert.True(t, stub.submitOpts.HasHeader)
	assert.Equal(t, 1, stub.submitOpts.SkipRows)
}

func TestSubmitImport_Wait(t *testing.T) {
	t.Parallel()

	stub := &serviceStub{
		submit: func(fileName string, fileSize int64, payload []byte, opts domain.ParserOptions) (*domain.Job, error) {
			return domain.NewJob("job-1", fileName, fileSize, time.Now()), nil
		},
	}

	router := v1.NewRouter(stub)
	rec := httptest.NewRecorder()

	req := uploadRequest(t, "/api/v1/imports?wait=true", "data.csv", []byte("a\n1\n"), nil)

	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var job domain.Job
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &job))
	assert.Equal(t, domain.StatusCompleted, job.Status)
}

func TestSubmitImport_UnsupportedFormat(t *testing.T) {
	t.Parallel()

	stub := &serviceStub{
		submit: func(fileName string, fileSize int64, payload []byte, opts domain.ParserOptions) (*domain.Job, error) {
			return nil, &domain.UnsupportedFormatError{
				Extension: ".pdf",
				Supported: []string{".csv", ".tsv", ".txt", ".xls", ".xlsx"},
			}
		},
	}

	router := v1.NewRouter(stub)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, uploadRequest(t, "/api/v1/imports", "report.pdf", []byte("x"), nil))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), ".csv")
}

func TestSubmitImport_InvalidDelimiter(t *testing.T) {
	t.Parallel()

	stub := &serviceStub{
		submit: func(fileName string, fileSize int64, payload []byte, opts domain.ParserOptions) (*domain.Job, error) {
			t.Fatal("submit must not be called")
			return nil, nil
		},
	}

	router := v1.NewRouter(stub)
	rec := httptest.NewRecorder()

	req := uploadRequest(t, "/api/v1/imports", "data.csv", []byte("a\n"), map[string]string{"delimiter": ";;"})

	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetProgress_NotFound(t *testing.T) {
	t.Parallel()

	stub := &serviceStub{
		progress: func(id string) (domain.Progress, error) {
			return domain.Progress{}, domain.ErrJobNotFound
		},
	}

	router := v1.NewRouter(stub)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/imports/ghost/progress", nil))

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteImport_Conflict(t *testing.T) {
	t.Parallel()

	stub := &serviceStub{
		deleteJob: func(id string) error { return domain.ErrJobProcessing },
	}

	router := v1.NewRouter(stub)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/imports/job-1", nil))

	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestGetFormats(t *testing.T) {
	t.Parallel()

	stub := &serviceStub{}

	router := v1.NewRouter(stub)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/formats", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp v1.GetFormatsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Extensions, ".xlsx")
}
