package harvest

import (
	"context"
	"sync"
	"sync/atomic"

	"harvester/internal/core/artifact"
	"harvester/internal/core/progress"
	"harvester/internal/core/table"
	"harvester/internal/platform/browser"
)

// urlResult pairs a finished pipeline result with its URL for the collector.
type urlResult struct {
	url string
	res *ScrapeResult
}

// runPool fans the unique-URL work list out to min(concurrency, len(items))
// pipeline workers. Workers claim items through an atomic cursor, so no URL
// is processed twice and none is skipped. The cancellation context is checked
// only before a worker pulls its next URL; an in-flight URL always runs to
// completion. A single collector goroutine owns the result map and drives
// progress, so workers share no mutable state beyond the cursor.
func (s *Service) runPool(ctx context.Context, b browser.Browser, items []table.WorkItem, rc RunConfig, store *artifact.Store, rep *progress.Reporter) map[string]*ScrapeResult {
	workers := rc.Concurrency
	if workers < 1 {
		workers = 1
	}
	if workers > len(items) {
		workers = len(items)
	}

	var cursor atomic.Int64
	results := make(chan urlResult, workers)

	// in-flight URLs run to completion; cancellation only gates the next pull
	pipelineCtx := context.WithoutCancel(ctx)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				if ctx.Err() != nil {
					return
				}
				idx := int(cursor.Add(1)) - 1
				if idx >= len(items) {
					return
				}
				item := items[idx]
				results <- urlResult{url: item.URL, res: s.harvestURL(pipelineCtx, b, item, rc, store, rep)}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	out := make(map[string]*ScrapeResult, len(items))
	for r := range results {
		out[r.url] = r.res
		rep.URLDone()
	}
	return out
}
