package domain

// Record is one successfully parsed row of one job. RowNumber is 1-based and
// gapless across a job's persisted records.
type Record struct {
	JobID     string            `db:"job_id"     json:"job_id"`
	RowNumber int64             `db:"row_number" json:"row_number"`
	Data      map[string]Scalar `db:"data"       json:"data"`
}

// ParsedRow is a single emission of a streaming parse: either a row of data
// or a failure marker. Parsing never aborts on one malformed row.
type ParsedRow struct {
	Data         map[string]Scalar
	RowNumber    int64
	OK           bool
	ErrorMessage string
}

// QueuedTask carries a submitted file from the queue to a worker. It is never
// persisted.
type QueuedTask struct {
	JobID    string
	FileName string
	Payload  []byte
	Options  ParserOptions
}
