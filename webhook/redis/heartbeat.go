package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	heartbeatPrefix = "sweeper:heartbeat"
	// HeartbeatTTL is how long a sweeper counts as active after its last beat
	HeartbeatTTL = 60 * time.Second
)

// SweeperHeartbeat represents the heartbeat data for a sweeper process
type SweeperHeartbeat struct {
	SweeperID     string    `json:"sweeper_id"`
	Status        string    `json:"status"` // "idle", "sweeping"
	LastHeartbeat time.Time `json:"last_heartbeat"`
	LastClaimed   int       `json:"last_claimed"`
}

// SetSweeperHeartbeat stores or updates a sweeper's heartbeat in Redis
// A sweeper that misses beats for HeartbeatTTL is considered gone
func (r *Repository) SetSweeperHeartbeat(ctx context.Context, sweeperID, status string, claimed int) error {
	key := fmt.Sprintf("%s:%s", heartbeatPrefix, sweeperID)

	heartbeat := SweeperHeartbeat{
		SweeperID:     sweeperID,
		Status:        status,
		LastHeartbeat: time.Now(),
		LastClaimed:   claimed,
	}

	data, err := json.Marshal(heartbeat)
	if err != nil {
		return fmt.Errorf("marshaling heartbeat: %w", err)
	}

	if err := r.client.Set(ctx, key, data, HeartbeatTTL).Err(); err != nil {
		return fmt.Errorf("setting heartbeat: %w", err)
	}

	return nil
}

// GetActiveSweepers retrieves all sweepers with a live heartbeat
func (r *Repository) GetActiveSweepers(ctx context.Context) ([]SweeperHeartbeat, error) {
	pattern := heartbeatPrefix + ":*"
	sweepers := []SweeperHeartbeat{}

	var cursor uint64
	for {
		keys, nextCursor, err := r.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return nil, fmt.Errorf("scanning sweeper keys: %w", err)
		}

		for _, key := range keys {
			data, err := r.client.Get(ctx, key).Result()
			if err == redis.Nil {
				// Key expired between scan and get
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("getting sweeper heartbeat: %w", err)
			}

			var heartbeat SweeperHeartbeat
			if err := json.Unmarshal([]byte(data), &heartbeat); err != nil {
				continue
			}

			sweepers = append(sweepers, heartbeat)
		}

		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}

	return sweepers, nil
}
