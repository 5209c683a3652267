package domain

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Job tracks a single import from submission to a terminal state. A job is
// mutated only by the worker that currently owns it.
type Job struct {
	ID               string     `db:"id"                json:"id"`
	FileName         string     `db:"file_name"         json:"file_name"`
	FileType         string     `db:"file_type"         json:"file_type"`
	FileSize         int64      `db:"file_size"         json:"file_size"`
	TotalRecords     int64      `db:"total_records"     json:"total_records"`
	ProcessedRecords int64      `db:"processed_records" json:"processed_records"`
	FailedRecords    int64      `db:"failed_records"    json:"failed_records"`
	Status           Status     `db:"status"            json:"status"`
	ErrorMessage     string     `db:"error_message"     json:"error_message,omitempty"`
	CreatedAt        time.Time  `db:"created_at"        json:"created_at"`
	StartedAt        *time.Time `db:"started_at"        json:"started_at,omitempty"`
	CompletedAt      *time.Time `db:"completed_at"      json:"completed_at,omitempty"`
}

func NewJob(id, fileName string, fileSize int64, now time.Time) *Job {
	return &Job{
		ID:        id,
		FileName:  fileName,
		FileType:  strings.ToLower(strings.TrimPrefix(filepath.Ext(fileName), ".")),
		FileSize:  fileSize,
		Status:    StatusPending,
		CreatedAt: now,
	}
}

// Start transitions Pending -> Processing and stamps StartedAt.
func (j *Job) Start(now time.Time) error {
	if j.Status != StatusPending {
		return transitionError(j.Status, StatusProcessing)
	}

	j.Status = StatusProcessing
	j.StartedAt = &now

	return nil
}

// Complete transitions Processing to Completed or CompletedWithErrors
// depending on the failed counter, and stamps CompletedAt.
func (j *Job) Complete(now time.Time) error {
	if j.Status != StatusProcessing {
		return transitionError(j.Status, StatusCompleted)
	}

	if j.FailedRecords > 0 {
		j.Status = StatusCompletedWithErrors
	} else {
		j.Status = StatusCompleted
	}
	j.CompletedAt = &now

	return nil
}

// Fail moves the job to Failed from any non-terminal state, recording the
// message that terminated it.
func (j *Job) Fail(now time.Time, message string) error {
	if j.Status.IsTerminal() {
		return transitionError(j.Status, StatusFailed)
	}

	j.Status = StatusFailed
	j.ErrorMessage = message
	j.CompletedAt = &now

	return nil
}

// Duration is completedAt - startedAt, or nil while either is unset.
func (j *Job) Duration() *time.Duration {
	if j.StartedAt == nil || j.CompletedAt == nil {
		return nil
	}

	d := j.CompletedAt.Sub(*j.StartedAt)

	return &d
}

func transitionError(from, to Status) error {
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}
