package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Operation names the health layer call being audited
type Operation string

const (
	OperationEnsurePermissions  Operation = "ENSURE_PERMISSIONS"
	OperationPermissionStatus   Operation = "PERMISSION_STATUS"
	OperationReadDailySteps     Operation = "READ_DAILY_STEPS"
	OperationReadDailyActivity  Operation = "READ_DAILY_ACTIVITY"
	OperationReadHourlySteps    Operation = "READ_HOURLY_STEPS"
	OperationReadHourlyActivity Operation = "READ_HOURLY_ACTIVITY"
	OperationReadGlucose        Operation = "READ_GLUCOSE"
	OperationExportReport       Operation = "EXPORT_REPORT"
)

// OutcomeOK marks a call that returned without error
const OutcomeOK = "OK"

// Entry is one audited access to health data
type Entry struct {
	ID         string
	Actor      string
	Operation  Operation
	Metrics    []string
	RangeStart *time.Time
	RangeEnd   *time.Time
	// Outcome is OutcomeOK or the error code of the failed call
	Outcome   string
	Timestamp time.Time
}

// Recorder stores audit entries
type Recorder interface {
	Record(ctx context.Context, entry Entry) error
}

// NopRecorder discards every entry. Used when no database is configured.
type NopRecorder struct{}

func (NopRecorder) Record(context.Context, Entry) error { return nil }

const schema = `
CREATE TABLE IF NOT EXISTS health_access_audit (
	id          TEXT PRIMARY KEY,
	actor       TEXT NOT NULL,
	operation   TEXT NOT NULL,
	metrics     TEXT[] NOT NULL DEFAULT '{}',
	range_start TIMESTAMPTZ,
	range_end   TIMESTAMPTZ,
	outcome     TEXT NOT NULL,
	timestamp   TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_health_access_audit_actor_ts
	ON health_access_audit (actor, timestamp DESC);
`

// Logger writes audit entries to PostgreSQL
type Logger struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewLogger creates a new audit logger
func NewLogger(db *pgxpool.Pool, logger *zap.Logger) *Logger {
	return &Logger{
		db:     db,
		logger: logger,
	}
}

var _ Recorder = (*Logger)(nil)

// EnsureSchema creates the audit table when it does not exist
func (l *Logger) EnsureSchema(ctx context.Context) error {
	if _, err := l.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create audit schema: %w", err)
	}
	return nil
}

// Record stores entry, filling in the ID and timestamp when missing
func (l *Logger) Record(ctx context.Context, entry Entry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	if entry.Metrics == nil {
		entry.Metrics = []string{}
	}

	l.logger.Debug("Audit log entry",
		zap.String("actor", entry.Actor),
		zap.String("operation", string(entry.Operation)),
		zap.Strings("metrics", entry.Metrics),
		zap.String("outcome", entry.Outcome),
	)

	query := `
		INSERT INTO health_access_audit (
			id, actor, operation, metrics, range_start, range_end, outcome, timestamp
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := l.db.Exec(ctx, query,
		entry.ID,
		entry.Actor,
		string(entry.Operation),
		entry.Metrics,
		entry.RangeStart,
		entry.RangeEnd,
		entry.Outcome,
		entry.Timestamp,
	)
	if err != nil {
		l.logger.Error("Failed to write audit log to database",
			zap.Error(err),
			zap.String("actor", entry.Actor),
			zap.String("operation", string(entry.Operation)),
		)
		return fmt.Errorf("failed to write audit entry: %w", err)
	}

	return nil
}

// Recent returns the latest entries of actor, newest first
func (l *Logger) Recent(ctx context.Context, actor string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, actor, operation, metrics, range_start, range_end, outcome, timestamp
		FROM health_access_audit
		WHERE actor = $1
		ORDER BY timestamp DESC
		LIMIT $2
	`

	rows, err := l.db.Query(ctx, query, actor, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit entries: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var op string
		if err := rows.Scan(&e.ID, &e.Actor, &op, &e.Metrics, &e.RangeStart, &e.RangeEnd, &e.Outcome, &e.Timestamp); err != nil {
			l.logger.Error("Failed to scan audit entry", zap.Error(err))
			continue
		}
		e.Operation = Operation(op)
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate audit entries: %w", err)
	}
	return entries, nil
}
