package ingest_test

import (
	"context"
	"strings"
	"sync"

	"github.com/kurochkinivan/table_import/internal/domain"
)

// memStore is an in-memory implementation of the repository contract used by
// the engine tests. It also tracks observations the tests assert on: bulk
// insert calls and the peak number of jobs in Processing at once.
type memStore struct {
	mu sync.Mutex

	jobs    map[string]*domain.Job
	schemas map[string]*domain.Schema
	records map[string][]*domain.Record

	bulkInserts   int
	maxProcessing int

	// onBulkInsert, when set, runs before a batch is stored and may fail or
	// block the insert.
	onBulkInsert func(ctx context.Context, batch []*domain.Record) error
}

func newMemStore() *memStore {
	return &memStore{
		jobs:    make(map[string]*domain.Job),
		schemas: make(map[string]*domain.Schema),
		records: make(map[string][]*domain.Record),
	}
}

func cloneJob(job *domain.Job) *domain.Job {
	clone := *job
	return &clone
}

func (s *memStore) CreateJob(ctx context.Context, job *domain.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.jobs[job.ID] = cloneJob(job)

	return nil
}

func (s *memStore) JobByID(ctx context.Context, id string) (*domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, domain.ErrJobNotFound
	}

	return cloneJob(job), nil
}

func (s *memStore) Jobs(ctx context.Context, limit, offset uint64) ([]*domain.Job, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	jobs := make([]*domain.Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		jobs = append(jobs, cloneJob(job))
	}

	return jobs, len(jobs), nil
}

func (s *memStore) UpdateJob(ctx context.Context, job *domain.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.jobs[job.ID] = cloneJob(job)

	processing := 0
	for _, j := range s.jobs {
		if j.Status == domain.StatusProcessing {
			processing++
		}
	}
	if processing > s.maxProcessing {
		s.maxProcessing = processing
	}

	return nil
}

func (s *memStore) UpdateJobProgress(ctx context.Context, id string, processed, failed int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return domain.ErrJobNotFound
	}

	job.ProcessedRecords = processed
	job.FailedRecords = failed

	return nil
}

func (s *memStore) DeleteJob(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[id]; !ok {
		return domain.ErrJobNotFound
	}

	delete(s.jobs, id)
	delete(s.schemas, id)
	delete(s.records, id)

	return nil
}

func (s *memStore) SaveSchema(ctx context.Context, schema *domain.Schema) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.schemas[schema.JobID] = schema

	return nil
}

func (s *memStore) SchemaByJob(ctx context.Context, jobID string) (*domain.Schema, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	schema, ok := s.schemas[jobID]
	if !ok {
		return nil, domain.ErrJobNotFound
	}

	return schema, nil
}

func (s *memStore) BulkInsert(ctx context.Context, records []*domain.Record) error {
	if s.onBulkInsert != nil {
		if err := s.onBulkInsert(ctx, records); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.bulkInserts++
	for _, record := range records {
		s.records[record.JobID] = append(s.records[record.JobID], record)
	}

	return nil
}

func (s *memStore) RecordsByJob(ctx context.Context, jobID string, limit, offset uint64) ([]*domain.Record, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := s.records[jobID]
	total := int64(len(all))

	if offset >= uint64(len(all)) {
		return nil, total, nil
	}

	end := offset + limit
	if end > uint64(len(all)) {
		end = uint64(len(all))
	}

	return all[offset:end], total, nil
}

func (s *memStore) CountByJob(ctx context.Context, jobID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return int64(len(s.records[jobID])), nil
}

func (s *memStore) DeleteByJob(ctx context.Context, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.records, jobID)

	return nil
}

func (s *memStore) Search(ctx context.Context, jobID, term string, limit uint64) ([]*domain.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	term = strings.ToLower(term)

	var matches []*domain.Record
	for _, record := range s.records[jobID] {
		if uint64(len(matches)) == limit {
			break
		}

		for _, value := range record.Data {
			if strings.Contains(strings.ToLower(value.Format()), term) {
				matches = append(matches, record)
				break
			}
		}
	}

	return matches, nil
}

func (s *memStore) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (s *memStore) jobSnapshot(id string) *domain.Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil
	}

	return cloneJob(job)
}

func (s *memStore) recordCount(jobID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.records[jobID])
}

func (s *memStore) bulkInsertCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.bulkInserts
}

func (s *memStore) peakProcessing() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.maxProcessing
}
