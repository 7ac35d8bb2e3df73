package availability

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/atelielash/agenda-api/pkg/logging"
)

const reserveTxRetries = 5

// RedisStore keeps taken slots in a Redis hash per calendar date, so holds
// survive process restarts and are shared across replicas. On any Redis error
// availability is unknown and reservations fail; assuming a slot is free when
// the store is down would reintroduce double-booking.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger *logging.Logger
}

// NewRedisStore creates a Redis-backed availability index. Date keys expire
// after ttl so past days clean themselves up.
func NewRedisStore(client *redis.Client, ttl time.Duration, logger *logging.Logger) *RedisStore {
	if logger == nil {
		logger = logging.Default()
	}
	if ttl <= 0 {
		ttl = 60 * 24 * time.Hour
	}
	return &RedisStore{
		client: client,
		prefix: "agenda:slots:",
		ttl:    ttl,
		logger: logger,
	}
}

func (s *RedisStore) key(date string) string {
	return s.prefix + date
}

// IsAvailable reports whether the interval is free on the given date.
func (s *RedisStore) IsAvailable(ctx context.Context, date string, start int, duration time.Duration) (bool, error) {
	taken, err := s.TakenSlots(ctx, date)
	if err != nil {
		return false, err
	}
	probe := Slot{Date: date, Start: start, Duration: duration}
	for _, slot := range taken {
		if probe.Overlaps(slot) {
			return false, nil
		}
	}
	return true, nil
}

// Reserve records a hold atomically: the date key is watched, the overlap
// check runs against a snapshot, and the write is a transaction that aborts
// if a concurrent reservation touched the key first.
func (s *RedisStore) Reserve(ctx context.Context, slot Slot) error {
	key := s.key(slot.Date)
	payload, err := json.Marshal(slot)
	if err != nil {
		return fmt.Errorf("availability: encode slot: %w", err)
	}

	txf := func(tx *redis.Tx) error {
		fields, err := tx.HGetAll(ctx, key).Result()
		if err != nil {
			return err
		}
		for ref, raw := range fields {
			if ref == slot.Ref {
				continue
			}
			var taken Slot
			if err := json.Unmarshal([]byte(raw), &taken); err != nil {
				s.logger.Warn("skipping undecodable slot entry", "date", slot.Date, "ref", ref, "error", err)
				continue
			}
			if slot.Overlaps(taken) {
				return ErrSlotTaken
			}
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, slot.Ref, payload)
			pipe.Expire(ctx, key, s.ttl)
			return nil
		})
		return err
	}

	for i := 0; i < reserveTxRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		switch {
		case err == nil:
			return nil
		case err == redis.TxFailedErr:
			continue
		case err == ErrSlotTaken:
			return ErrSlotTaken
		default:
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}
	return fmt.Errorf("%w: reserve contention on %s", ErrUnavailable, slot.Date)
}

// Release frees the hold identified by ref on the given date.
func (s *RedisStore) Release(ctx context.Context, date, ref string) error {
	if err := s.client.HDel(ctx, s.key(date), ref).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// TakenSlots lists the holds recorded for a date.
func (s *RedisStore) TakenSlots(ctx context.Context, date string) ([]Slot, error) {
	fields, err := s.client.HGetAll(ctx, s.key(date)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	slots := make([]Slot, 0, len(fields))
	for ref, raw := range fields {
		var slot Slot
		if err := json.Unmarshal([]byte(raw), &slot); err != nil {
			s.logger.Warn("skipping undecodable slot entry", "date", date, "ref", ref, "error", err)
			continue
		}
		slots = append(slots, slot)
	}
	return slots, nil
}
