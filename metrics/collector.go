package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/marcelsud/sumit-gateway/routes"
	"github.com/marcelsud/sumit-gateway/webhook"
	wbredis "github.com/marcelsud/sumit-gateway/webhook/redis"
)

// HeartbeatSource lists live sweeper heartbeats
type HeartbeatSource interface {
	GetActiveSweepers(ctx context.Context) ([]wbredis.SweeperHeartbeat, error)
}

/* StoreCollector implements Collector on top of the event store
 * Heartbeats are optional: a store without them reports no sweepers
 */
type StoreCollector struct {
	reader       webhook.Reader
	heartbeats   HeartbeatSource
	routesLoader *routes.Loader
}

// NewStoreCollector creates a new collector. heartbeats may be nil.
func NewStoreCollector(reader webhook.Reader, heartbeats HeartbeatSource, loader *routes.Loader) *StoreCollector {
	return &StoreCollector{
		reader:       reader,
		heartbeats:   heartbeats,
		routesLoader: loader,
	}
}

// Collect gathers all metrics
func (c *StoreCollector) Collect(ctx context.Context) (Metrics, error) {
	statusCounts, err := c.GetStatusCounts(ctx)
	if err != nil {
		return Metrics{}, fmt.Errorf("getting status counts: %w", err)
	}

	sweepers, err := c.GetActiveSweepers(ctx)
	if err != nil {
		return Metrics{}, fmt.Errorf("getting active sweepers: %w", err)
	}

	m := Metrics{
		StatusCounts: statusCounts,
		Sweepers:     sweepers,
		Timestamp:    time.Now(),
	}
	if c.routesLoader != nil {
		m.Routes = len(c.routesLoader.List())
	}
	return m, nil
}

// GetStatusCounts returns counts of events grouped by status, every status present
func (c *StoreCollector) GetStatusCounts(ctx context.Context) (map[string]int64, error) {
	counts, err := c.reader.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting events: %w", err)
	}

	statusCounts := make(map[string]int64, len(webhook.Statuses()))
	for _, s := range webhook.Statuses() {
		statusCounts[s.String()] = counts[s]
	}
	return statusCounts, nil
}

// GetActiveSweepers returns information about active sweepers
func (c *StoreCollector) GetActiveSweepers(ctx context.Context) ([]SweeperInfo, error) {
	if c.heartbeats == nil {
		return []SweeperInfo{}, nil
	}
	beats, err := c.heartbeats.GetActiveSweepers(ctx)
	if err != nil {
		return nil, err
	}

	sweepers := make([]SweeperInfo, 0, len(beats))
	for _, b := range beats {
		sweepers = append(sweepers, SweeperInfo{
			SweeperID:     b.SweeperID,
			Status:        b.Status,
			LastHeartbeat: b.LastHeartbeat,
			LastClaimed:   b.LastClaimed,
		})
	}
	return sweepers, nil
}
