package importer

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/venuedex/internal/domain"
	domstore "github.com/kailas-cloud/venuedex/internal/domain/store"
)

const (
	defaultWorkers   = 4
	defaultBatchSize = 100
	// progressEvery is the processed-row interval between progress log lines.
	progressEvery = 10_000
)

// StoreCreator creates one store, assigning its slug.
type StoreCreator interface {
	Create(ctx context.Context, in domstore.Input, authorID string) (domstore.Store, error)
}

// PlaceSource streams places from a position.
type PlaceSource interface {
	ReadPlaces(fileIndex, rowOffset, maxRows int, cb PlaceCallback) error
}

// Result summarizes one Run.
type Result struct {
	Processed int64
	Skipped   int64
	Failed    int64
	Duration  time.Duration
}

// Ingester feeds places through a worker pool into the store service.
// Reader -> chan batch -> N workers -> StoreCreator.Create.
type Ingester struct {
	creator   StoreCreator
	authorID  string
	cursor    *CursorTracker
	workers   int
	batchSize int
	metrics   *Metrics
	logger    *zap.Logger
}

// NewIngester creates an ingester that attributes every store to authorID.
func NewIngester(creator StoreCreator, authorID string, cursor *CursorTracker) *Ingester {
	return &Ingester{
		creator:   creator,
		authorID:  authorID,
		cursor:    cursor,
		workers:   defaultWorkers,
		batchSize: defaultBatchSize,
		logger:    zap.NewNop(),
	}
}

// WithWorkers sets the number of concurrent creators.
func (ing *Ingester) WithWorkers(n int) *Ingester {
	if n > 0 {
		ing.workers = n
	}
	return ing
}

// WithBatchSize sets the number of places per checkpointed batch.
func (ing *Ingester) WithBatchSize(n int) *Ingester {
	if n > 0 {
		ing.batchSize = n
	}
	return ing
}

// WithMetrics enables progress metrics.
func (ing *Ingester) WithMetrics(m *Metrics) *Ingester {
	ing.metrics = m
	return ing
}

// WithLogger sets the progress logger.
func (ing *Ingester) WithLogger(l *zap.Logger) *Ingester {
	if l != nil {
		ing.logger = l
	}
	return ing
}

type batch struct {
	inputs    []domstore.Input
	skipped   int
	fileIndex int
	rowOffset int // row after the last place of the batch
}

type counters struct {
	processed atomic.Int64
	skipped   atomic.Int64
	failed    atomic.Int64
}

// Run imports up to maxRows places (0 = all) starting at the saved cursor.
func (ing *Ingester) Run(ctx context.Context, src PlaceSource, maxRows int) (Result, error) {
	cur := ing.cursor.Get()
	start := time.Now()

	batches := make(chan batch, ing.workers*2)
	var c counters
	var wg sync.WaitGroup

	for i := 0; i < ing.workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for b := range batches {
				ing.process(ctx, workerID, b, &c)
			}
		}(i)
	}

	var readErr error
	go func() {
		defer close(batches)
		readErr = ing.produce(ctx, src, cur.FileIndex, cur.RowOffset, maxRows, batches)
	}()

	wg.Wait()
	ing.cursor.Save()

	res := Result{
		Processed: c.processed.Load(),
		Skipped:   c.skipped.Load(),
		Failed:    c.failed.Load(),
		Duration:  time.Since(start),
	}
	if readErr != nil {
		return res, readErr
	}
	return res, ctx.Err()
}

func (ing *Ingester) produce(
	ctx context.Context, src PlaceSource, fileIndex, rowOffset, maxRows int, out chan<- batch,
) error {
	b := batch{fileIndex: fileIndex, rowOffset: rowOffset}
	flush := func() {
		if len(b.inputs) == 0 && b.skipped == 0 {
			return
		}
		out <- b
		b = batch{fileIndex: b.fileIndex, rowOffset: b.rowOffset, inputs: make([]domstore.Input, 0, ing.batchSize)}
	}

	err := src.ReadPlaces(fileIndex, rowOffset, maxRows, func(p *Place, fi, row int) bool {
		if ctx.Err() != nil {
			return false
		}

		in, reason, ok := p.ToInput()
		if ok {
			b.inputs = append(b.inputs, in)
		} else {
			b.skipped++
			if ing.metrics != nil {
				ing.metrics.rowsSkipped.WithLabelValues(reason).Inc()
			}
		}
		b.fileIndex, b.rowOffset = fi, row+1

		if len(b.inputs)+b.skipped >= ing.batchSize {
			flush()
		}
		return true
	})
	flush()
	return err
}

func (ing *Ingester) process(ctx context.Context, workerID int, b batch, c *counters) {
	if ctx.Err() != nil {
		return
	}

	var processed, failed int
	for i := range b.inputs {
		start := time.Now()
		_, err := ing.creator.Create(ctx, b.inputs[i], ing.authorID)
		if ing.metrics != nil {
			ing.metrics.createLatency.Observe(time.Since(start).Seconds())
		}
		if err != nil {
			failed++
			reason := reasonError
			if errors.Is(err, domain.ErrValidation) {
				reason = reasonInvalid
			}
			if ing.metrics != nil {
				ing.metrics.rowsFailed.WithLabelValues(reason).Inc()
			}
			ing.logger.Warn("create store failed",
				zap.Int("worker", workerID),
				zap.String("name", b.inputs[i].Name),
				zap.String("reason", reason),
				zap.Error(err),
			)
			continue
		}
		processed++
		if ing.metrics != nil {
			ing.metrics.rowsProcessed.Inc()
		}
	}

	total := c.processed.Add(int64(processed))
	before := total - int64(processed)
	c.skipped.Add(int64(b.skipped))
	c.failed.Add(int64(failed))

	ing.cursor.Advance(b.fileIndex, b.rowOffset, processed, b.skipped, failed)
	if ing.metrics != nil {
		pos := ing.cursor.Get()
		ing.metrics.cursorFile.Set(float64(pos.FileIndex))
		ing.metrics.cursorRow.Set(float64(pos.RowOffset))
	}

	if before/progressEvery != total/progressEvery {
		ing.logger.Info("import progress",
			zap.Int64("processed", total),
			zap.Int64("skipped", c.skipped.Load()),
			zap.Int64("failed", c.failed.Load()),
		)
	}
}
