package domain

import "time"

// Progress is the read-only projection of a job's counters served to pollers.
type Progress struct {
	JobID        string         `json:"job_id"`
	Total        int64          `json:"total"`
	Processed    int64          `json:"processed"`
	Failed       int64          `json:"failed"`
	Percent      float64        `json:"percent"`
	Status       Status         `json:"status"`
	StartedAt    *time.Time     `json:"started_at,omitempty"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty"`
	Duration     *time.Duration `json:"duration,omitempty"`
	ErrorMessage string         `json:"error_message,omitempty"`
}

// NewProgress derives the projection from the job's current state. Readers
// may observe intermediate counter values while the job is processing.
func NewProgress(j *Job) Progress {
	var percent float64
	if j.TotalRecords > 0 {
		percent = float64(j.ProcessedRecords) * 100 / float64(j.TotalRecords)
	}

	return Progress{
		JobID:        j.ID,
		Total:        j.TotalRecords,
		Processed:    j.ProcessedRecords,
		Failed:       j.FailedRecords,
		Percent:      percent,
		Status:       j.Status,
		StartedAt:    j.StartedAt,
		CompletedAt:  j.CompletedAt,
		Duration:     j.Duration(),
		ErrorMessage: j.ErrorMessage,
	}
}
