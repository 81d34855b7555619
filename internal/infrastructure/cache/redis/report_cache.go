// Package redis caches rendered verification reports so repeated report
// reads skip the database.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const DefaultTTL = 24 * time.Hour

type ReportCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewReportCache(addr, password string, ttl time.Duration) (*ReportCache, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return &ReportCache{client: client, ttl: ttl}, nil
}

func (c *ReportCache) Close() error { return c.client.Close() }

func reportKey(caseID string) string {
	return "kyc:report:" + caseID
}

func (c *ReportCache) PutReport(ctx context.Context, caseID, report string) error {
	return c.client.Set(ctx, reportKey(caseID), report, c.ttl).Err()
}

// GetReport returns an empty string on a cache miss; callers fall back to
// the repository.
func (c *ReportCache) GetReport(ctx context.Context, caseID string) (string, error) {
	report, err := c.client.Get(ctx, reportKey(caseID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get cached report: %w", err)
	}
	return report, nil
}
