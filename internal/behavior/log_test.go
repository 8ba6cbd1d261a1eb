package behavior

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/posdenous/naviya-launcher-sub002/internal/models"
	"github.com/posdenous/naviya-launcher-sub002/internal/repository"
)

func TestRecord_FrequencyAndLocalTime(t *testing.T) {
	ctx := context.Background()
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	// 22:30 UTC on a Saturday is 23:30 in Berlin (CET)
	now := time.Date(2025, 3, 1, 22, 30, 0, 0, time.UTC)
	l := NewLog(repository.NewMemoryStore(), zap.NewNop(),
		WithClock(func() time.Time { return now }),
		WithLocation(berlin),
	)

	e1, err := l.Record(ctx, "cg-1", models.ActionLocationAccess, "map opened", "")
	require.NoError(t, err)
	assert.Equal(t, 1, e1.Frequency)
	assert.Equal(t, 23, e1.HourOfDay)
	assert.Equal(t, int(time.Saturday), e1.DayOfWeek)

	e2, err := l.Record(ctx, "cg-1", models.ActionLocationAccess, "", "")
	require.NoError(t, err)
	assert.Equal(t, 2, e2.Frequency)

	other, err := l.Record(ctx, "cg-1", models.ActionAppMonitoring, "", "")
	require.NoError(t, err)
	assert.Equal(t, 1, other.Frequency)

	n, err := l.Count(ctx, "cg-1", 24*time.Hour, models.ActionLocationAccess, models.ActionAppMonitoring)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	late, err := l.CountOffHours(ctx, "cg-1", 7*24*time.Hour, 23, 6)
	require.NoError(t, err)
	assert.Equal(t, 3, late)
}

func TestRecord_RequiresIdentifiers(t *testing.T) {
	l := NewLog(repository.NewMemoryStore(), zap.NewNop())

	_, err := l.Record(context.Background(), "", models.ActionLocationAccess, "", "")
	assert.ErrorIs(t, err, models.ErrInvalidArgument)

	_, err = l.Record(context.Background(), "cg-1", "", "", "")
	assert.ErrorIs(t, err, models.ErrInvalidArgument)
}

func TestEntries_Window(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	clock := now.Add(-8 * 24 * time.Hour)
	l := NewLog(repository.NewMemoryStore(), zap.NewNop(), WithClock(func() time.Time { return clock }))

	_, err := l.Record(ctx, "cg-1", models.ActionContactRemoved, "", "")
	require.NoError(t, err)
	clock = now
	_, err = l.Record(ctx, "cg-1", models.ActionContactRemoved, "", "")
	require.NoError(t, err)

	entries, err := l.Entries(ctx, "cg-1", 7*24*time.Hour)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
