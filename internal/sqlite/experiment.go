package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/rpggio/splitlab/internal/domain/experiment"
	"github.com/rpggio/splitlab/internal/repository"
)

var _ experiment.Repository = (*ExperimentRepository)(nil)

// ExperimentRepository stores experiment definitions. JSON columns are
// decoded into typed fields on read.
type ExperimentRepository struct {
	db *DB
}

// NewExperimentRepository creates a new ExperimentRepository
func NewExperimentRepository(db *DB) *ExperimentRepository {
	return &ExperimentRepository{db: db}
}

// Create inserts a new experiment
func (r *ExperimentRepository) Create(ctx context.Context, tenantID string, exp *experiment.Experiment) error {
	variants, err := json.Marshal(exp.Variants)
	if err != nil {
		return fmt.Errorf("failed to encode variants: %w", err)
	}
	metrics, err := json.Marshal(exp.SuccessMetrics)
	if err != nil {
		return fmt.Errorf("failed to encode success metrics: %w", err)
	}
	allocation, err := json.Marshal(exp.TrafficAllocation)
	if err != nil {
		return fmt.Errorf("failed to encode traffic allocation: %w", err)
	}
	results, err := encodeResults(exp.Results)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO experiments (
			id, tenant_id, name, description, hypothesis,
			variants, success_metrics, traffic_allocation, status,
			start_date, end_date, created_by, results, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.ExecContext(ctx, query,
		exp.ID,
		tenantID,
		exp.Name,
		exp.Description,
		exp.Hypothesis,
		string(variants),
		string(metrics),
		string(allocation),
		exp.Status,
		formatNullTime(exp.StartDate),
		formatNullTime(exp.EndDate),
		exp.CreatedBy,
		results,
		formatTime(exp.CreatedAt),
		formatTime(exp.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrConflict
		}
		return fmt.Errorf("failed to create experiment: %w", err)
	}

	return nil
}

// Get retrieves an experiment scoped to the tenant
func (r *ExperimentRepository) Get(ctx context.Context, tenantID, id string) (*experiment.Experiment, error) {
	query := `
		SELECT
			id, tenant_id, name, description, hypothesis,
			variants, success_metrics, traffic_allocation, status,
			start_date, end_date, created_by, results, created_at, updated_at
		FROM experiments
		WHERE id = ? AND tenant_id = ?
	`

	var (
		exp                                 experiment.Experiment
		variants, metrics, allocation, blob string
		startDate, endDate                  timestamp
		createdAt, updatedAt                timestamp
	)
	err := r.db.QueryRowContext(ctx, query, id, tenantID).Scan(
		&exp.ID,
		&exp.TenantID,
		&exp.Name,
		&exp.Description,
		&exp.Hypothesis,
		&variants,
		&metrics,
		&allocation,
		&exp.Status,
		&startDate,
		&endDate,
		&exp.CreatedBy,
		&blob,
		&createdAt,
		&updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get experiment: %w", err)
	}

	if err := json.Unmarshal([]byte(variants), &exp.Variants); err != nil {
		return nil, fmt.Errorf("failed to decode variants: %w", err)
	}
	if err := json.Unmarshal([]byte(metrics), &exp.SuccessMetrics); err != nil {
		return nil, fmt.Errorf("failed to decode success metrics: %w", err)
	}
	if err := json.Unmarshal([]byte(allocation), &exp.TrafficAllocation); err != nil {
		return nil, fmt.Errorf("failed to decode traffic allocation: %w", err)
	}
	if exp.Results, err = decodeResults(blob); err != nil {
		return nil, err
	}
	exp.StartDate = startDate.ptr()
	exp.EndDate = endDate.ptr()
	exp.CreatedAt = createdAt.Time
	exp.UpdatedAt = updatedAt.Time

	return &exp, nil
}

// List returns summaries newest first. Conversions are counted live; the
// winner comes from the cached results blob.
func (r *ExperimentRepository) List(ctx context.Context, tenantID string) ([]experiment.Summary, error) {
	query := `
		SELECT
			e.id, e.name, e.status, e.start_date, e.end_date, e.results, e.created_at,
			(SELECT COUNT(*) FROM experiment_participants p
			 WHERE p.experiment_id = e.id AND p.converted_at IS NOT NULL) AS conversions
		FROM experiments e
		WHERE e.tenant_id = ?
		ORDER BY e.created_at DESC, e.rowid DESC
	`

	rows, err := r.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list experiments: %w", err)
	}
	defer rows.Close()

	summaries := []experiment.Summary{}
	for rows.Next() {
		var (
			s                  experiment.Summary
			startDate, endDate timestamp
			createdAt          timestamp
			blob               string
		)
		if err := rows.Scan(
			&s.ID,
			&s.Name,
			&s.Status,
			&startDate,
			&endDate,
			&blob,
			&createdAt,
			&s.Conversions,
		); err != nil {
			return nil, fmt.Errorf("failed to scan experiment: %w", err)
		}
		results, err := decodeResults(blob)
		if err != nil {
			return nil, err
		}
		s.StartDate = startDate.ptr()
		s.EndDate = endDate.ptr()
		s.CreatedAt = createdAt.Time
		s.Winner = results.Winner()
		summaries = append(summaries, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating experiment rows: %w", err)
	}

	return summaries, nil
}

// UpdateStatus sets status, and results when given, in one statement
// guarded by the expected current status.
func (r *ExperimentRepository) UpdateStatus(ctx context.Context, tenantID, id string, change experiment.StatusChange) error {
	var blob any
	if change.Results != nil {
		encoded, err := encodeResults(change.Results)
		if err != nil {
			return err
		}
		blob = encoded
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE experiments
		SET status = ?, results = COALESCE(?, results), updated_at = ?
		WHERE id = ? AND tenant_id = ? AND status = ?`,
		change.To, blob, formatTime(change.UpdatedAt), id, tenantID, change.From,
	)
	if err != nil {
		return fmt.Errorf("failed to update experiment status: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n > 0 {
		return nil
	}

	var current string
	err = r.db.QueryRowContext(ctx,
		`SELECT status FROM experiments WHERE id = ? AND tenant_id = ?`, id, tenantID,
	).Scan(&current)
	if err == sql.ErrNoRows {
		return repository.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to read experiment status: %w", err)
	}
	return repository.ErrConflict
}

func encodeResults(results experiment.CachedResults) (string, error) {
	if results == nil {
		return "{}", nil
	}
	data, err := json.Marshal(results)
	if err != nil {
		return "", fmt.Errorf("failed to encode results: %w", err)
	}
	return string(data), nil
}

func decodeResults(blob string) (experiment.CachedResults, error) {
	results := experiment.CachedResults{}
	if blob == "" {
		return results, nil
	}
	if err := json.Unmarshal([]byte(blob), &results); err != nil {
		return nil, fmt.Errorf("failed to decode results: %w", err)
	}
	return results, nil
}
