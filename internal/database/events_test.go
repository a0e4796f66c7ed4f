package database

import (
	"context"
	"os"
	"testing"
	"time"

	"fatigue-detector/internal/models"
	"fatigue-detector/pkg/log"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs against a real Postgres when TEST_DATABASE_URL is set.
func TestEventRepositoryRoundTrip(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := Open(ctx, dsn, log.Discard())
	require.NoError(t, err)
	defer pool.Close()

	repo := NewEventRepository(pool)
	session := "test-" + uuid.NewString()
	vehicle := int64(7)

	_, err = repo.Insert(ctx, models.Event{
		SessionID:  session,
		DriverID:   42,
		VehicleID:  &vehicle,
		EventType:  "eye_closed",
		Severity:   "high",
		Confidence: 0.78,
		EAR:        0.18,
		MAR:        0.2,
		HeadAngle:  3,
		Location:   &models.Location{Latitude: 52.1, Longitude: 4.3},
		Metadata:   map[string]any{"camera": "cab"},
		Timestamp:  time.Now().UTC(),
	})
	require.NoError(t, err)

	_, err = repo.Insert(ctx, models.Event{
		SessionID:  session,
		EventType:  "yawning",
		Severity:   "medium",
		Confidence: 0.6,
		Timestamp:  time.Now().UTC().Add(time.Second),
	})
	require.NoError(t, err)

	events, err := repo.ListBySession(ctx, session, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "yawning", events[0].EventType)
	assert.Nil(t, events[0].Location)
	assert.Equal(t, int64(42), events[1].DriverID)
	assert.Equal(t, "cab", events[1].Metadata["camera"])
	require.NotNil(t, events[1].VehicleID)
	assert.Equal(t, vehicle, *events[1].VehicleID)

	counts, err := repo.CountBySeverity(ctx, session)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"high": 1, "medium": 1}, counts)
}
