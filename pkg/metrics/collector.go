package metrics

import (
	"time"

	"github.com/cuemby/strata/pkg/repository"
)

// Collector periodically samples repository-wide gauges that aren't
// naturally observed at the point of an archive/restore/gc operation.
type Collector struct {
	repo   *repository.Repository
	stopCh chan struct{}
}

// NewCollector creates a new metrics collector for repo.
func NewCollector(repo *repository.Repository) *Collector {
	return &Collector{
		repo:   repo,
		stopCh: make(chan struct{}),
	}
}

// Start begins collecting metrics on a fixed interval.
func (c *Collector) Start() {
	ticker := time.NewTicker(15 * time.Second)
	go func() {
		c.collect()

		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the collector.
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	idx := c.repo.Index()
	RepositoryIndexedBlobs.Set(float64(idx.Len()))
	RepositoryIndexedPacks.Set(float64(len(idx.CoveredPacks())))
}
