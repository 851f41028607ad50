package metrics

import (
	"time"
)

// Snapshot is a point-in-time summary of farm state for gauge updates.
type Snapshot struct {
	JobsByStatus  map[string]int
	NodesByStatus map[string]int
	UnitsByClient map[string]int
}

// Source provides snapshots. Implemented by the farm manager.
type Source interface {
	MetricsSnapshot() Snapshot
}

// Collector periodically refreshes the state gauges from a Source.
type Collector struct {
	source Source
	stopCh chan struct{}
}

// NewCollector creates a new collector
func NewCollector(source Source) *Collector {
	return &Collector{
		source: source,
		stopCh: make(chan struct{}),
	}
}

// Start begins collecting on a 15 second interval
func (c *Collector) Start() {
	ticker := time.NewTicker(15 * time.Second)
	go func() {
		// Collect immediately on start
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

// Stop stops the collector
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	snap := c.source.MetricsSnapshot()

	JobsTotal.Reset()
	for status, count := range snap.JobsByStatus {
		JobsTotal.WithLabelValues(status).Set(float64(count))
	}

	NodesTotal.Reset()
	for status, count := range snap.NodesByStatus {
		NodesTotal.WithLabelValues(status).Set(float64(count))
	}

	ClientUnitsInUse.Reset()
	for clientID, units := range snap.UnitsByClient {
		ClientUnitsInUse.WithLabelValues(clientID).Set(float64(units))
	}
}
