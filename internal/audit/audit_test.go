package audit

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	postgresContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("healthlayer_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := postgresContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	connString, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connString)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return pool
}

func TestLogger_RecordAndRecent(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping container test in short mode")
	}

	ctx := context.Background()
	l := NewLogger(setupTestDB(t), zap.NewNop())
	require.NoError(t, l.EnsureSchema(ctx))
	require.NoError(t, l.EnsureSchema(ctx), "schema creation must be repeatable")

	start := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 10, 23, 59, 59, 0, time.UTC)
	base := time.Date(2024, 3, 11, 8, 0, 0, 0, time.UTC)

	require.NoError(t, l.Record(ctx, Entry{
		Actor:      "device-1",
		Operation:  OperationReadDailySteps,
		Metrics:    []string{"steps"},
		RangeStart: &start,
		RangeEnd:   &end,
		Outcome:    OutcomeOK,
		Timestamp:  base,
	}))
	require.NoError(t, l.Record(ctx, Entry{
		Actor:     "device-1",
		Operation: OperationEnsurePermissions,
		Metrics:   []string{"steps", "distance"},
		Outcome:   "PERMISSION_DENIED",
		Timestamp: base.Add(time.Minute),
	}))
	require.NoError(t, l.Record(ctx, Entry{
		Actor:     "device-2",
		Operation: OperationReadGlucose,
		Outcome:   "NO_DATA",
	}))

	entries, err := l.Recent(ctx, "device-1", 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, OperationEnsurePermissions, entries[0].Operation)
	assert.Equal(t, []string{"steps", "distance"}, entries[0].Metrics)
	assert.Nil(t, entries[0].RangeStart)
	assert.Equal(t, "PERMISSION_DENIED", entries[0].Outcome)

	assert.Equal(t, OperationReadDailySteps, entries[1].Operation)
	require.NotNil(t, entries[1].RangeStart)
	assert.True(t, start.Equal(*entries[1].RangeStart))
	assert.NotEmpty(t, entries[1].ID)

	limited, err := l.Recent(ctx, "device-1", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	none, err := l.Recent(ctx, "nobody", 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestNopRecorder(t *testing.T) {
	var r Recorder = NopRecorder{}
	assert.NoError(t, r.Record(context.Background(), Entry{Operation: OperationReadGlucose}))
}
