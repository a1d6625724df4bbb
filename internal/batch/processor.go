package batch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Kamar-Folarin/propsync/internal/config"
	"github.com/Kamar-Folarin/propsync/internal/models"
)

// ProgressFunc receives a snapshot after every completed or failed batch
type ProgressFunc func(progress models.BatchProgress)

// Processor handles batch processing of items
type Processor struct {
	config *config.BatchConfig
}

// NewProcessor creates a new batch processor
func NewProcessor(cfg *config.BatchConfig) *Processor {
	if cfg == nil {
		cfg = &config.DefaultSyncConfig().BatchConfig
	}
	return &Processor{config: cfg}
}

// ProcessItems splits items into batches and hands each to processFn, retrying
// a failed batch up to MaxRetries times. Processing continues past a failed
// batch; the first failure is returned once all batches have run.
func (p *Processor) ProcessItems(ctx context.Context, items []any, processFn func(ctx context.Context, batch []any) error, onProgress ProgressFunc) error {
	totalItems := len(items)
	if totalItems == 0 {
		return nil
	}

	batchSize := p.config.Size
	if batchSize <= 0 {
		batchSize = 100 // Default batch size
	}
	workers := p.config.Workers
	if workers <= 0 {
		workers = 1
	}

	totalBatches := (totalItems + batchSize - 1) / batchSize
	progress := models.BatchProgress{
		TotalBatches:   totalBatches,
		TotalItems:     totalItems,
		StartTime:      time.Now(),
		LastUpdateTime: time.Now(),
	}

	// Create worker pool
	workerChan := make(chan struct{}, workers)
	var wg sync.WaitGroup
	var processErr error
	var mu sync.Mutex

	report := func() {
		if onProgress != nil {
			onProgress(progress)
		}
	}

dispatch:
	for i := 0; i < totalBatches; i++ {
		select {
		case <-ctx.Done():
			mu.Lock()
			if processErr == nil {
				processErr = ctx.Err()
			}
			mu.Unlock()
			break dispatch
		case workerChan <- struct{}{}:
			wg.Add(1)
			go func(batchNum int) {
				defer wg.Done()
				defer func() { <-workerChan }()

				start := batchNum * batchSize
				end := start + batchSize
				if end > totalItems {
					end = totalItems
				}

				batch := items[start:end]
				err := p.processBatchWithRetry(ctx, batch, processFn)

				mu.Lock()
				defer mu.Unlock()
				progress.LastUpdateTime = time.Now()
				if err != nil {
					if processErr == nil {
						processErr = err
					}
					progress.Errors = append(progress.Errors, err.Error())
					report()
					return
				}
				progress.ProcessedBatches++
				progress.ProcessedItems += len(batch)
				report()
			}(i)
		}
	}

	wg.Wait()
	return processErr
}

// processBatchWithRetry processes a batch with retry logic
func (p *Processor) processBatchWithRetry(ctx context.Context, batch []any, processFn func(ctx context.Context, batch []any) error) error {
	var lastErr error
	for retry := 0; retry <= p.config.MaxRetries; retry++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := processFn(ctx, batch)
		if err == nil {
			return nil
		}

		lastErr = err
		if retry < p.config.MaxRetries {
			backoff := time.Duration(float64(p.config.BatchDelay) * float64(retry+1))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}
	}

	return fmt.Errorf("failed to process batch after %d retries: %w", p.config.MaxRetries, lastErr)
}
