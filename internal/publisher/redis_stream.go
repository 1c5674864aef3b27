package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fortuna/ceres/internal/engine"
	"github.com/redis/go-redis/v9"
)

// Stream names for projection tables.
const (
	WeeklyStream   = "projections.weekly.nfl"
	SeasonalStream = "projections.seasonal.nfl"
)

// maxStreamLen caps each stream, approximately.
const maxStreamLen = 1000

// RedisStreamPublisher publishes projection tables to Redis streams
type RedisStreamPublisher struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisStreamPublisher creates a new Redis stream publisher from existing client
func NewRedisStreamPublisher(client *redis.Client) *RedisStreamPublisher {
	return &RedisStreamPublisher{
		client: client,
		now:    time.Now,
	}
}

// PublishTable publishes a projection table to the stream for its kind
func (rsp *RedisStreamPublisher) PublishTable(ctx context.Context, table engine.Table) (string, error) {
	args, err := rsp.tableArgs(table)
	if err != nil {
		return "", err
	}
	return rsp.client.XAdd(ctx, args).Result()
}

func (rsp *RedisStreamPublisher) tableArgs(table engine.Table) (*redis.XAddArgs, error) {
	stream := WeeklyStream
	if table.Kind == engine.KindSeasonal {
		stream = SeasonalStream
	}

	data, err := json.Marshal(table)
	if err != nil {
		return nil, fmt.Errorf("encoding table: %w", err)
	}

	return &redis.XAddArgs{
		Stream: stream,
		MaxLen: maxStreamLen,
		Approx: true,
		Values: map[string]interface{}{
			"run_id":    table.RunID,
			"season":    table.Season,
			"week":      table.Week,
			"scoring":   table.Scoring,
			"rows":      table.Len(),
			"zeroed":    table.Zeroed(""),
			"data":      string(data),
			"timestamp": rsp.now().Unix(),
		},
	}, nil
}
