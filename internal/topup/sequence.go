package topup

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"nikahfirst/pkg/utils"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Request numbers look like TXN-2026-00042; the sequence restarts every calendar year.
const requestNumberPrefix = "TXN"

func yearPrefix(year int) string { return fmt.Sprintf("%s-%d-", requestNumberPrefix, year) }

func FormatRequestNumber(year int, seq int64) string {
	return fmt.Sprintf("%s%05d", yearPrefix(year), seq)
}

// ParseSequence extracts the numeric part of number given its year prefix.
func ParseSequence(number, prefix string) (int64, error) {
	rest, ok := strings.CutPrefix(number, prefix)
	if !ok {
		return 0, fmt.Errorf("request number %q lacks prefix %q", number, prefix)
	}
	n, err := strconv.ParseInt(rest, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("request number %q: bad sequence", number)
	}
	return n, nil
}

// Sequencer allocates the next per-year request sequence. tx is the creation
// transaction, so database-backed implementations read inside it.
type Sequencer interface {
	Next(ctx context.Context, tx *gorm.DB, year int) (int64, error)
}

// DBSequencer scans the highest stored number for the year and adds one.
// Concurrent callers can compute the same value; the unique index on
// request_number rejects the loser.
type DBSequencer struct{}

func (DBSequencer) Next(ctx context.Context, tx *gorm.DB, year int) (int64, error) {
	n, err := maxSequence(ctx, tx, yearPrefix(year))
	if err != nil {
		return 0, err
	}
	return n + 1, nil
}

// RedisSequencer hands out numbers from an atomic Redis counter per year, seeded
// from the database so a cold or flushed Redis never reuses a stored number.
type RedisSequencer struct {
	RDB *redis.Client
	// TTL bounds how long a year's counter outlives its last use.
	TTL time.Duration
}

func (s RedisSequencer) Next(ctx context.Context, tx *gorm.DB, year int) (int64, error) {
	seed, err := maxSequence(ctx, tx, yearPrefix(year))
	if err != nil {
		return 0, err
	}
	ttl := s.TTL
	if ttl <= 0 {
		ttl = 400 * 24 * time.Hour
	}
	n, err := utils.NextSequence(ctx, s.RDB, fmt.Sprintf("topup:seq:%d", year), seed, ttl)
	if err != nil {
		return 0, fmt.Errorf("redis sequence: %w", err)
	}
	return n, nil
}
