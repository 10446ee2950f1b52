package metrics

import (
	"context"
	"time"
)

// Metrics represents the current state of the delivery engine.
type Metrics struct {
	// StatusCounts maps status name to count of events in that status
	StatusCounts map[string]int64 `json:"status_counts"`

	// Sweepers lists sweeper processes with a live heartbeat
	Sweepers []SweeperInfo `json:"sweepers"`

	// Routes is the number of configured outbound routes
	Routes int `json:"routes"`

	// Timestamp when metrics were collected
	Timestamp time.Time `json:"timestamp"`
}

// SweeperInfo represents information about an active sweeper.
type SweeperInfo struct {
	// SweeperID is a unique identifier for the sweeper process
	SweeperID string `json:"sweeper_id"`

	// Status is the current status of the sweeper ("idle", "sweeping")
	Status string `json:"status"`

	// LastHeartbeat is the timestamp of the last heartbeat
	LastHeartbeat time.Time `json:"last_heartbeat"`

	// LastClaimed is how many events the last sweep claimed
	LastClaimed int `json:"last_claimed"`
}

// Collector defines the interface for collecting metrics from the delivery engine.
type Collector interface {
	// Collect gathers current metrics from the system
	Collect(ctx context.Context) (Metrics, error)

	// GetStatusCounts returns the count of events by status
	GetStatusCounts(ctx context.Context) (map[string]int64, error)

	// GetActiveSweepers returns the sweepers with a live heartbeat
	GetActiveSweepers(ctx context.Context) ([]SweeperInfo, error)
}
