// Package executor transfers a planned work set to local disk under a
// bounded pool of concurrent workers.
package executor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/snowpull/snowpull/pkg/inventory"
	"github.com/snowpull/snowpull/pkg/progress"
	"github.com/snowpull/snowpull/pkg/s3client"
)

// Result is the outcome of one transfer attempt. On success Bytes holds the
// on-disk size of the written file, which may differ from the expected size
// in the work set; a mismatch is left for the next reconciliation pass to
// pick up.
type Result struct {
	Key   string
	Bytes int64
	Err   error
}

// Executor downloads work-set items with at most concurrency transfers in
// flight.
type Executor struct {
	client      s3client.Client
	logger      *zap.Logger
	concurrency int
}

// New creates an executor. concurrency <= 0 means fully serial.
func New(client s3client.Client, logger *zap.Logger, concurrency int) *Executor {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Executor{
		client:      client,
		logger:      logger,
		concurrency: concurrency,
	}
}

type item struct {
	key  string
	size int64
}

// Execute transfers every entry of the work set into destRoot and returns
// one Result per entry, in completion order. A failed item is logged and
// reported but never aborts its siblings. After every attempt, success or
// not, the meter advances by the item's expected size so the counter always
// reaches the declared total.
func (e *Executor) Execute(ctx context.Context, bucket string, work inventory.Set, destRoot string, meter *progress.Meter) []Result {
	jobs := make(chan item, len(work))
	results := make(chan Result, len(work))

	var wg sync.WaitGroup
	for i := 0; i < e.concurrency; i++ {
		wg.Add(1)
		go e.worker(ctx, bucket, destRoot, jobs, results, meter, &wg)
	}

	for key, size := range work {
		jobs <- item{key: key, size: size}
	}
	close(jobs)

	wg.Wait()
	close(results)

	all := make([]Result, 0, len(work))
	for result := range results {
		all = append(all, result)
	}
	return all
}

func (e *Executor) worker(ctx context.Context, bucket, destRoot string, jobs <-chan item, results chan<- Result, meter *progress.Meter, wg *sync.WaitGroup) {
	defer wg.Done()

	for itm := range jobs {
		result := e.transfer(ctx, bucket, destRoot, itm)

		if result.Err != nil {
			e.logger.Error("download failed",
				zap.String("key", itm.key),
				zap.Error(result.Err),
			)
		} else {
			e.logger.Info("downloaded",
				zap.String("key", itm.key),
				zap.Int64("bytes", result.Bytes),
			)
		}

		if meter != nil {
			meter.Add(itm.size)
		}

		results <- result
	}
}

func (e *Executor) transfer(ctx context.Context, bucket, destRoot string, itm item) Result {
	result := Result{Key: itm.key}

	localPath := filepath.Join(destRoot, filepath.FromSlash(itm.key))

	// MkdirAll is a no-op when the directory exists, so concurrent workers
	// creating the same parent cannot fail each other.
	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		result.Err = fmt.Errorf("create parent directory: %w", err)
		return result
	}

	if err := e.client.DownloadFile(ctx, bucket, itm.key, localPath); err != nil {
		result.Err = fmt.Errorf("download %s: %w", itm.key, err)
		return result
	}

	info, err := os.Stat(localPath)
	if err != nil {
		result.Err = fmt.Errorf("stat downloaded file: %w", err)
		return result
	}

	result.Bytes = info.Size()
	return result
}
