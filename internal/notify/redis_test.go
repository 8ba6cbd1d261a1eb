package notify

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/posdenous/naviya-launcher-sub002/internal/models"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestRedisFlagFeed_PublishFlag(t *testing.T) {
	_, client := setupTestRedis(t)
	feed := NewRedisFlagFeed(client, "guardian:flags")
	ctx := context.Background()

	flag := &models.AbuseFlag{
		FlagID:      "f-1",
		CaregiverID: "cg-1",
		FlagType:    models.FlagCommunicationBlocking,
		Severity:    models.SeverityCritical,
		Description: "communication blocked",
		CreatedAt:   time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	require.NoError(t, feed.PublishFlag(ctx, flag))

	msgs, err := client.XRange(ctx, "guardian:flags", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "f-1", msgs[0].Values["flag_id"])
	assert.Equal(t, "CRITICAL", msgs[0].Values["severity"])
	assert.Equal(t, "false", msgs[0].Values["resolved"])

	var decoded models.AbuseFlag
	require.NoError(t, json.Unmarshal([]byte(msgs[0].Values["data"].(string)), &decoded))
	assert.Equal(t, models.FlagCommunicationBlocking, decoded.FlagType)
}

func TestRedisFlagFeed_ServerDown(t *testing.T) {
	mr, client := setupTestRedis(t)
	feed := NewRedisFlagFeed(client, "guardian:flags")
	mr.Close()

	err := feed.PublishFlag(context.Background(), &models.AbuseFlag{FlagID: "f-1"})
	assert.Error(t, err)
}
