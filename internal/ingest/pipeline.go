package ingest

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"sync/atomic"

	"github.com/kurochkinivan/table_import/internal/domain"
	"golang.org/x/sync/errgroup"
)

// DefaultBufferCapacity bounds the in-flight rows between the producer and
// the consumer of one job.
const DefaultBufferCapacity = 10000

// Counters is the shared per-job tally. The producer owns total and failed,
// the consumer owns processed; reads may observe intermediate values.
type Counters struct {
	total     atomic.Int64
	processed atomic.Int64
	failed    atomic.Int64
}

func (c *Counters) Total() int64     { return c.total.Load() }
func (c *Counters) Processed() int64 { return c.processed.Load() }
func (c *Counters) Failed() int64    { return c.failed.Load() }

// Pipeline moves one job's parsed rows through a bounded buffer into batched
// bulk writes. The buffer gives the producer backpressure when the consumer
// falls behind.
type Pipeline struct {
	log            *slog.Logger
	jobs           JobRepository
	records        RecordRepository
	tx             Transactor
	bufferCapacity int
}

func NewPipeline(
	log *slog.Logger,
	jobs JobRepository,
	records RecordRepository,
	tx Transactor,
	bufferCapacity int,
) *Pipeline {
	if bufferCapacity <= 0 {
		bufferCapacity = DefaultBufferCapacity
	}

	return &Pipeline{
		log:            log,
		jobs:           jobs,
		records:        records,
		tx:             tx,
		bufferCapacity: bufferCapacity,
	}
}

// Run executes the producer and consumer to completion and reports the first
// error of either.
func (p *Pipeline) Run(
	ctx context.Context,
	job *domain.Job,
	rows iter.Seq[domain.ParsedRow],
	batchSize int,
	counters *Counters,
) error {
	if batchSize <= 0 {
		batchSize = domain.DefaultBatchSize
	}

	buffer := make(chan *domain.Record, p.bufferCapacity)

	erg, ctx := errgroup.WithContext(ctx)

	erg.Go(func() error {
		return p.produce(ctx, job, rows, buffer, counters)
	})

	erg.Go(func() error {
		return p.consume(ctx, job, buffer, batchSize, counters)
	})

	return erg.Wait()
}

// produce walks the parser's lazy sequence, counting every yielded row and
// pushing successful ones into the buffer. The buffer is closed on any exit
// so the consumer always drains to EOF.
func (p *Pipeline) produce(
	ctx context.Context,
	job *domain.Job,
	rows iter.Seq[domain.ParsedRow],
	buffer chan<- *domain.Record,
	counters *Counters,
) error {
	defer close(buffer)

	var successful int64

	for row := range rows {
		counters.total.Add(1)

		if !row.OK {
			counters.failed.Add(1)
			continue
		}

		successful++

		record := &domain.Record{
			JobID:     job.ID,
			RowNumber: successful,
			Data:      row.Data,
		}

		select {
		case buffer <- record:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return nil
}

// consume drains the buffer into batches of batchSize, bulk-writing each full
// batch and publishing the processed counter onto the job row. The residual
// batch is flushed after the buffer closes, including on cancellation.
func (p *Pipeline) consume(
	ctx context.Context,
	job *domain.Job,
	buffer <-chan *domain.Record,
	batchSize int,
	counters *Counters,
) error {
	batch := make([]*domain.Record, 0, batchSize)

	flush := func(ctx context.Context) error {
		if len(batch) == 0 {
			return nil
		}

		processed := counters.processed.Load() + int64(len(batch))

		err := p.tx.WithTransaction(ctx, func(ctx context.Context) error {
			if err := p.records.BulkInsert(ctx, batch); err != nil {
				return fmt.Errorf("failed to insert records: %w", err)
			}

			return p.jobs.UpdateJobProgress(ctx, job.ID, processed, counters.failed.Load())
		})
		if err != nil {
			return err
		}

		p.log.DebugContext(ctx, "batch flushed",
			slog.String("job_id", job.ID),
			slog.Int("batch_size", len(batch)),
			slog.Int64("processed", processed),
		)

		counters.processed.Store(processed)
		batch = batch[:0]

		return nil
	}

	for record := range buffer {
		batch = append(batch, record)

		if len(batch) == batchSize {
			if err := flush(ctx); err != nil {
				return err
			}
		}
	}

	return flush(context.WithoutCancel(ctx))
}
