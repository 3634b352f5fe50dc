// README: Per-day ticket number sequence kept in Redis.
package ticket

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	sequenceKeyPrefix = "ticket:seq:%s"
	// Keys outlive their day so late issuance around midnight still sees the counter.
	sequenceTTL = 48 * time.Hour
)

// RedisSequence hands out ticket numbers from an atomic INCR per calendar day.
type RedisSequence struct {
	redis *redis.Client
}

func NewRedisSequence(rdb *redis.Client) *RedisSequence {
	return &RedisSequence{redis: rdb}
}

func sequenceKey(day time.Time) string {
	return fmt.Sprintf(sequenceKeyPrefix, day.Format("20060102"))
}

func (s *RedisSequence) Next(ctx context.Context, day time.Time) (string, error) {
	key := sequenceKey(day)

	pipe := s.redis.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, sequenceTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("ticket sequence: %w", err)
	}
	return FormatNumber(day, incr.Val()), nil
}

// Sync raises the day's counter to at least floor so the next draw is above it. The counter
// never moves down. Two concurrent syncs may overshoot, which only leaves a gap.
func (s *RedisSequence) Sync(ctx context.Context, day time.Time, floor int64) error {
	key := sequenceKey(day)
	cur, err := s.redis.Get(ctx, key).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("ticket sequence: %w", err)
	}
	if cur >= floor {
		return nil
	}

	pipe := s.redis.TxPipeline()
	pipe.IncrBy(ctx, key, floor-cur)
	pipe.Expire(ctx, key, sequenceTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("ticket sequence: %w", err)
	}
	return nil
}

func numberPrefix(day time.Time) string {
	return "TKT" + day.Format("20060102")
}

// FormatNumber renders TKT{yyyymmdd}{6-digit sequence}.
func FormatNumber(day time.Time, seq int64) string {
	return fmt.Sprintf("%s%06d", numberPrefix(day), seq)
}

// ParseNumber returns the sequence part of a ticket number issued on day.
func ParseNumber(day time.Time, number string) (int64, bool) {
	rest, ok := strings.CutPrefix(number, numberPrefix(day))
	if !ok || rest == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(rest, 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
