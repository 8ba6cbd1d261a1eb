package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/posdenous/naviya-launcher-sub002/internal/models"
)

// RedisFlagFeed appends flags to a Redis stream for live dashboards.
type RedisFlagFeed struct {
	client *redis.Client
	stream string
	maxLen int64
}

func NewRedisFlagFeed(client *redis.Client, stream string) *RedisFlagFeed {
	return &RedisFlagFeed{client: client, stream: stream, maxLen: 10000}
}

func (f *RedisFlagFeed) PublishFlag(ctx context.Context, flag *models.AbuseFlag) error {
	data, err := json.Marshal(flag)
	if err != nil {
		return fmt.Errorf("failed to marshal flag: %w", err)
	}

	err = f.client.XAdd(ctx, &redis.XAddArgs{
		Stream: f.stream,
		MaxLen: f.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"flag_id":      flag.FlagID,
			"caregiver_id": flag.CaregiverID,
			"severity":     string(flag.Severity),
			"resolved":     fmt.Sprintf("%t", flag.Resolved),
			"data":         string(data),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to publish flag to stream %s: %w", f.stream, err)
	}
	return nil
}
