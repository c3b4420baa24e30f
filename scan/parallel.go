package scan

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// BatchResult pairs one input document with its analysis outcome.
type BatchResult struct {
	Name        string
	Result      *Result
	ProcessTime time.Duration
	Error       error
}

// BatchStats tracks batch throughput.
type BatchStats struct {
	Processed     int64
	Failed        int64
	TotalBytes    int64
	Elapsed       time.Duration
	ThroughputMBs float64
}

// batchJob represents a single document analysis task
type batchJob struct {
	index int
	doc   Document
}

// AnalyzeAll analyses docs with a pool of workers. Results come back in input
// order. A positive timeout bounds each document; when it expires the result
// is still returned, with stream extraction marked truncated. Cancelling ctx
// stops the batch: documents never picked up report ctx.Err().
func (a *Analyzer) AnalyzeAll(ctx context.Context, docs []Document, workers int, timeout time.Duration) ([]BatchResult, *BatchStats) {
	startTime := time.Now()
	stats := &BatchStats{}
	results := make([]BatchResult, len(docs))
	if len(docs) == 0 {
		return results, stats
	}

	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	workers = min(workers, len(docs))

	jobChan := make(chan batchJob, len(docs))
	for i, doc := range docs {
		jobChan <- batchJob{index: i, doc: doc}
	}
	close(jobChan)

	var done atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobChan {
				br := a.runJob(ctx, job, timeout)
				results[job.index] = br

				atomic.AddInt64(&stats.Processed, 1)
				atomic.AddInt64(&stats.TotalBytes, int64(len(job.doc.Data)))
				if br.Error != nil {
					atomic.AddInt64(&stats.Failed, 1)
				}
				if a.OnProgress != nil {
					a.OnProgress("analysis", int(done.Add(1)), len(docs), job.doc.Name)
				}
			}
		}()
	}
	wg.Wait()

	stats.Elapsed = time.Since(startTime)
	if stats.Elapsed > 0 {
		totalMB := float64(stats.TotalBytes) / (1024 * 1024)
		stats.ThroughputMBs = totalMB / stats.Elapsed.Seconds()
	}

	a.logger().Debug("batch complete",
		"documents", len(docs),
		"failed", stats.Failed,
		"workers", workers,
		"elapsed", stats.Elapsed)

	return results, stats
}

// runJob handles the analysis of a single queued document
func (a *Analyzer) runJob(ctx context.Context, job batchJob, timeout time.Duration) BatchResult {
	br := BatchResult{Name: job.doc.Name}
	if err := ctx.Err(); err != nil {
		br.Error = err
		return br
	}

	jobCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	br.Result, br.Error = a.Analyze(jobCtx, job.doc)
	br.ProcessTime = time.Since(start)
	return br
}
