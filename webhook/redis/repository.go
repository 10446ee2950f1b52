package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/marcelsud/sumit-gateway/webhook"
	"github.com/redis/go-redis/v9"
)

/* Redis implementation of webhook.Repository
 * One hash per event holds the record; a sorted set per status indexes it
 * and a retry sorted set scored by next_retry_at drives the sweep
 * Every write runs in a WATCH/MULTI transaction so status, retry_count and
 * next_retry_at change together
 */

const (
	keyPrefix     = "webhook"
	eventPrefix   = keyPrefix + ":event"  // webhook:event:{id}
	statusPrefix  = keyPrefix + ":status" // webhook:status:{status}
	lockPrefix    = keyPrefix + ":lock"   // webhook:lock:{id}
	retryKey      = keyPrefix + ":retry"
	maxTxAttempts = 5
)

// releaseScript deletes the lock only if it still holds our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// extendScript resets the lock ttl (ms) only if it still holds our token
var extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

type Repository struct {
	client  *redis.Client
	sentTTL time.Duration
}

// NewRepository creates a new Redis repository. Sent events expire after sentTTL when positive.
func NewRepository(addr, password string, db int, sentTTL time.Duration) (*Repository, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to Redis: %w", err)
	}

	return NewRepositoryWithClient(client, sentTTL), nil
}

// NewRepositoryWithClient wraps an existing client
func NewRepositoryWithClient(client *redis.Client, sentTTL time.Duration) *Repository {
	return &Repository{client: client, sentTTL: sentTTL}
}

// Create stores a new event, failing if the id is taken
func (r *Repository) Create(ctx context.Context, ev webhook.Event) error {
	key := eventKey(ev.ID)
	return r.transact(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return fmt.Errorf("checking event: %w", err)
		}
		if n > 0 {
			return fmt.Errorf("creating event %s: already exists", ev.ID)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			r.write(ctx, pipe, ev, 0)
			return nil
		})
		return err
	}, key)
}

// Save replaces an existing event and moves it between indexes atomically
func (r *Repository) Save(ctx context.Context, ev webhook.Event) error {
	return r.save(ctx, ev, "")
}

// SaveHeld is Save run only while webhook:lock:{id} still holds token
func (r *Repository) SaveHeld(ctx context.Context, ev webhook.Event, token string) error {
	if token == "" {
		return fmt.Errorf("%w: %s", webhook.ErrLocked, ev.ID)
	}
	return r.save(ctx, ev, token)
}

// save watches the event and, when fenced, its lock, so a lock lost mid-write aborts the transaction
func (r *Repository) save(ctx context.Context, ev webhook.Event, token string) error {
	key := eventKey(ev.ID)
	keys := []string{key}
	if token != "" {
		keys = append(keys, lockKey(ev.ID))
	}
	return r.transact(ctx, func(tx *redis.Tx) error {
		if token != "" {
			holder, err := tx.Get(ctx, lockKey(ev.ID)).Result()
			if err != nil && !errors.Is(err, redis.Nil) {
				return fmt.Errorf("reading event lock: %w", err)
			}
			if holder != token {
				return fmt.Errorf("%w: %s", webhook.ErrLocked, ev.ID)
			}
		}
		prev, err := tx.HGet(ctx, key, "status").Result()
		if errors.Is(err, redis.Nil) {
			return fmt.Errorf("%w: %s", webhook.ErrNotFound, ev.ID)
		}
		if err != nil {
			return fmt.Errorf("reading event status: %w", err)
		}
		prevStatus, err := webhook.NewStatus(prev)
		if err != nil {
			return fmt.Errorf("reading event status: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			r.write(ctx, pipe, ev, prevStatus)
			return nil
		})
		return err
	}, keys...)
}

// write queues the commands that persist ev. prev is the stored status, zero on create.
func (r *Repository) write(ctx context.Context, pipe redis.Pipeliner, ev webhook.Event, prev webhook.Status) {
	key := eventKey(ev.ID)
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key, encode(ev))

	if prev != 0 && prev != ev.Status {
		pipe.ZRem(ctx, statusKey(prev), ev.ID)
	}
	pipe.ZAdd(ctx, statusKey(ev.Status), redis.Z{Score: indexScore(ev), Member: ev.ID})

	if ev.Status == webhook.Retrying && ev.NextRetryAt != nil {
		pipe.ZAdd(ctx, retryKey, redis.Z{Score: float64(ev.NextRetryAt.UnixMilli()), Member: ev.ID})
	} else {
		pipe.ZRem(ctx, retryKey, ev.ID)
	}

	if ev.Status == webhook.Sent && r.sentTTL > 0 {
		pipe.Expire(ctx, key, r.sentTTL)
	}
}

// transact runs fn under WATCH on keys, retrying on conflicts
func (r *Repository) transact(ctx context.Context, fn func(tx *redis.Tx) error, keys ...string) error {
	for range maxTxAttempts {
		err := r.client.Watch(ctx, fn, keys...)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("writing %s: too many concurrent modifications", keys[0])
}

// Get retrieves an event by ID
func (r *Repository) Get(ctx context.Context, id string) (webhook.Event, error) {
	data, err := r.client.HGetAll(ctx, eventKey(id)).Result()
	if err != nil {
		return webhook.Event{}, fmt.Errorf("getting event: %w", err)
	}
	if len(data) == 0 {
		return webhook.Event{}, fmt.Errorf("%w: %s", webhook.ErrNotFound, id)
	}
	return decode(data)
}

// ListDue returns Retrying events with next_retry_at <= now, earliest first
func (r *Repository) ListDue(ctx context.Context, now time.Time, limit int) ([]webhook.Event, error) {
	ids, err := r.client.ZRangeByScore(ctx, retryKey, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(now.UnixMilli(), 10),
		Count: int64(limit),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("listing due events: %w", err)
	}
	return r.fetch(ctx, ids)
}

// ListByStatus returns events in status, oldest first
func (r *Repository) ListByStatus(ctx context.Context, status webhook.Status, limit int) ([]webhook.Event, error) {
	if err := status.Validate(); err != nil {
		return nil, err
	}
	if status == webhook.Sent {
		if err := r.pruneSent(ctx); err != nil {
			return nil, err
		}
	}
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}
	ids, err := r.client.ZRange(ctx, statusKey(status), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("listing %s events: %w", status, err)
	}
	return r.fetch(ctx, ids)
}

// CountByStatus returns the number of events per status
func (r *Repository) CountByStatus(ctx context.Context) (map[webhook.Status]int64, error) {
	if err := r.pruneSent(ctx); err != nil {
		return nil, err
	}
	statuses := webhook.Statuses()
	cmds := make([]*redis.IntCmd, len(statuses))
	_, err := r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, s := range statuses {
			cmds[i] = pipe.ZCard(ctx, statusKey(s))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("counting events: %w", err)
	}
	counts := make(map[webhook.Status]int64, len(statuses))
	for i, s := range statuses {
		counts[s] = cmds[i].Val()
	}
	return counts, nil
}

// pruneSent drops index entries of sent events whose hash has expired
func (r *Repository) pruneSent(ctx context.Context) error {
	if r.sentTTL <= 0 {
		return nil
	}
	cutoff := time.Now().Add(-r.sentTTL).UnixMilli()
	err := r.client.ZRemRangeByScore(ctx, statusKey(webhook.Sent), "-inf", strconv.FormatInt(cutoff, 10)).Err()
	if err != nil {
		return fmt.Errorf("pruning sent index: %w", err)
	}
	return nil
}

func (r *Repository) fetch(ctx context.Context, ids []string) ([]webhook.Event, error) {
	if len(ids) == 0 {
		return []webhook.Event{}, nil
	}
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	_, err := r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.HGetAll(ctx, eventKey(id))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("fetching events: %w", err)
	}
	events := make([]webhook.Event, 0, len(ids))
	for _, cmd := range cmds {
		data := cmd.Val()
		if len(data) == 0 {
			// expired between index read and fetch
			continue
		}
		ev, err := decode(data)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, nil
}

/* Lock takes webhook:lock:{id} with SET NX PX and a random token
 * Extend, Unlock and SaveHeld only act while the key still holds that
 * token, so a holder whose lease expired cannot touch a successor's event
 */
func (r *Repository) Lock(ctx context.Context, id string, ttl time.Duration) (string, error) {
	token := uuid.New().String()

	ok, err := r.client.SetNX(ctx, lockKey(id), token, ttl).Result()
	if err != nil {
		return "", fmt.Errorf("acquiring lock: %w", err)
	}
	if !ok {
		return "", fmt.Errorf("%w: %s", webhook.ErrLocked, id)
	}
	return token, nil
}

// Extend resets the lock ttl if token still holds it
func (r *Repository) Extend(ctx context.Context, id, token string, ttl time.Duration) error {
	n, err := extendScript.Run(ctx, r.client, []string{lockKey(id)}, token, ttl.Milliseconds()).Int()
	if err != nil {
		return fmt.Errorf("extending lock: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", webhook.ErrLocked, id)
	}
	return nil
}

// Unlock deletes the lock if token still holds it
func (r *Repository) Unlock(ctx context.Context, id, token string) error {
	n, err := releaseScript.Run(ctx, r.client, []string{lockKey(id)}, token).Int()
	if err != nil {
		return fmt.Errorf("releasing lock: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", webhook.ErrLocked, id)
	}
	return nil
}

// Close closes the Redis connection
func (r *Repository) Close(ctx context.Context) error {
	return r.client.Close()
}

// GetClient returns the underlying Redis client for advanced operations
func (r *Repository) GetClient() *redis.Client {
	return r.client
}

func eventKey(id string) string {
	return fmt.Sprintf("%s:%s", eventPrefix, id)
}

func lockKey(id string) string {
	return fmt.Sprintf("%s:%s", lockPrefix, id)
}

func statusKey(s webhook.Status) string {
	return fmt.Sprintf("%s:%s", statusPrefix, s)
}

// indexScore orders status sets: sent by sent_at (for TTL pruning), others by created_at
func indexScore(ev webhook.Event) float64 {
	if ev.Status == webhook.Sent && ev.SentAt != nil {
		return float64(ev.SentAt.UnixMilli())
	}
	return float64(ev.CreatedAt.UnixMilli())
}

var _ webhook.Repository = (*Repository)(nil)
