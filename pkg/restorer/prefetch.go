package restorer

import (
	"context"

	"golang.org/x/sync/semaphore"

	"github.com/cuemby/strata/pkg/ids"
	"github.com/cuemby/strata/pkg/repository"
)

// prefetchWindow bounds how many of one file's chunks are fetched ahead of
// the writer (spec §4.8: "parallel prefetch with bounded in-flight
// window"), independent of the restorer-wide concurrency semaphore which
// bounds how many files are open at once.
const prefetchWindow = 4

// prefetcher fetches a file's chunks with up to prefetchWindow requests in
// flight, but always hands them back to the caller in offset order (one
// result channel per chunk, read in index order) so file content is
// written sequentially even though fetches complete out of order.
type prefetcher struct {
	chunks  []ids.ID
	results []chan result
	next    int
}

type result struct {
	data []byte
	err  error
}

func newPrefetcher(ctx context.Context, repo *repository.Repository, chunks []ids.ID, _ *semaphore.Weighted) *prefetcher {
	p := &prefetcher{
		chunks:  chunks,
		results: make([]chan result, len(chunks)),
	}
	for i := range p.results {
		p.results[i] = make(chan result, 1)
	}

	window := semaphore.NewWeighted(prefetchWindow)
	go func() {
		for i, id := range p.chunks {
			i, id := i, id
			if err := window.Acquire(ctx, 1); err != nil {
				p.results[i] <- result{err: err}
				continue
			}
			go func() {
				defer window.Release(1)
				data, err := repo.LoadBlob(ctx, ids.KindData, id)
				p.results[i] <- result{data: data, err: err}
			}()
		}
	}()

	return p
}

// next returns the file's chunks strictly in offset order, blocking until
// each one is fetched.
func (p *prefetcher) next() ([]byte, bool, error) {
	if p.next >= len(p.chunks) {
		return nil, false, nil
	}
	r := <-p.results[p.next]
	p.next++
	if r.err != nil {
		return nil, false, r.err
	}
	return r.data, true, nil
}
