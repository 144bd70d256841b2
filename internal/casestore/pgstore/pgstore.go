// Package pgstore provides a PostgreSQL implementation of triage.Store.
package pgstore

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/linnemanlabs/sift/internal/triage"
)

var tracer = otel.Tracer("github.com/linnemanlabs/sift/internal/casestore/pgstore")

//go:embed schema.sql
var schema string

// Store persists case records in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// New applies the schema on the given pool and returns a ready Store.
func New(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close shuts down the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

const caseColumns = `case_id, attempt_id, status, last_step, classification, metadata,
	remote_operations, errors, warnings, notification_sent, created_at, completed_at, duration_s`

// Get retrieves a case record by case ID.
func (s *Store) Get(ctx context.Context, caseID string) (*triage.CaseRecord, bool, error) {
	ctx, span := tracer.Start(ctx, "pgstore.Get", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	query := `SELECT ` + caseColumns + ` FROM triage_cases WHERE case_id = $1`
	r, err := scanCaseRow(s.pool.QueryRow(ctx, query, caseID))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, false, err
	}
	if r == nil {
		return nil, false, nil
	}
	return r, true, nil
}

// Upsert inserts or overwrites the record for its case ID.
func (s *Store) Upsert(ctx context.Context, r *triage.CaseRecord) error {
	ctx, span := tracer.Start(ctx, "pgstore.Upsert", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "UPSERT"),
	))
	defer span.End()

	classificationJSON, err := marshalNullable(r.Classification)
	if err != nil {
		return fmt.Errorf("marshal classification: %w", err)
	}
	metadataJSON, err := json.Marshal(r.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	opsJSON, err := marshalNullable(r.RemoteOperations)
	if err != nil {
		return fmt.Errorf("marshal remote operations: %w", err)
	}
	errorsJSON, err := marshalNullable(r.Errors)
	if err != nil {
		return fmt.Errorf("marshal errors: %w", err)
	}
	warningsJSON, err := marshalNullable(r.Warnings)
	if err != nil {
		return fmt.Errorf("marshal warnings: %w", err)
	}

	var completedAt *time.Time
	if !r.CompletedAt.IsZero() {
		completedAt = &r.CompletedAt
	}

	query := `INSERT INTO triage_cases (
		case_id, attempt_id, status, last_step, classification, metadata,
		remote_operations, errors, warnings, notification_sent, created_at, completed_at, duration_s
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
	ON CONFLICT (case_id) DO UPDATE SET
		attempt_id        = EXCLUDED.attempt_id,
		status            = EXCLUDED.status,
		last_step         = EXCLUDED.last_step,
		classification    = EXCLUDED.classification,
		metadata          = EXCLUDED.metadata,
		remote_operations = EXCLUDED.remote_operations,
		errors            = EXCLUDED.errors,
		warnings          = EXCLUDED.warnings,
		notification_sent = EXCLUDED.notification_sent,
		completed_at      = EXCLUDED.completed_at,
		duration_s        = EXCLUDED.duration_s`

	_, err = s.pool.Exec(ctx, query,
		r.CaseID, r.AttemptID, string(r.Status), string(r.LastStep), classificationJSON, metadataJSON,
		opsJSON, errorsJSON, warningsJSON, r.NotificationSent, r.CreatedAt, completedAt, r.Duration,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("upsert case: %w", err)
	}
	return nil
}

// scanCaseRow scans a single row into a triage.CaseRecord.
// Returns (nil, nil) when no row is found.
func scanCaseRow(row pgx.Row) (*triage.CaseRecord, error) {
	var (
		r                  triage.CaseRecord
		status, lastStep   string
		classificationJSON []byte
		metadataJSON       []byte
		opsJSON            []byte
		errorsJSON         []byte
		warningsJSON       []byte
		completedAt        *time.Time
	)

	err := row.Scan(
		&r.CaseID, &r.AttemptID, &status, &lastStep, &classificationJSON, &metadataJSON,
		&opsJSON, &errorsJSON, &warningsJSON, &r.NotificationSent, &r.CreatedAt, &completedAt, &r.Duration,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan: %w", err)
	}

	r.Status = triage.ProcessingStatus(status)
	r.LastStep = triage.Step(lastStep)
	if completedAt != nil {
		r.CompletedAt = *completedAt
	}

	if err := unmarshalNullable(classificationJSON, &r.Classification); err != nil {
		return nil, fmt.Errorf("unmarshal classification: %w", err)
	}
	if err := json.Unmarshal(metadataJSON, &r.Metadata); err != nil {
		return nil, fmt.Errorf("unmarshal metadata: %w", err)
	}
	if err := unmarshalNullable(opsJSON, &r.RemoteOperations); err != nil {
		return nil, fmt.Errorf("unmarshal remote operations: %w", err)
	}
	if err := unmarshalNullable(errorsJSON, &r.Errors); err != nil {
		return nil, fmt.Errorf("unmarshal errors: %w", err)
	}
	if err := unmarshalNullable(warningsJSON, &r.Warnings); err != nil {
		return nil, fmt.Errorf("unmarshal warnings: %w", err)
	}

	return &r, nil
}

func marshalNullable(v any) ([]byte, error) {
	switch t := v.(type) {
	case *triage.ClassificationResult:
		if t == nil {
			return nil, nil
		}
	case []triage.RemoteOperation:
		if len(t) == 0 {
			return nil, nil
		}
	case []string:
		if len(t) == 0 {
			return nil, nil
		}
	}
	return json.Marshal(v)
}

func unmarshalNullable(data []byte, dst any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, dst)
}
