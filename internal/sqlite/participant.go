package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rpggio/splitlab/internal/domain/experiment"
	"github.com/rpggio/splitlab/internal/domain/participant"
	"github.com/rpggio/splitlab/internal/domain/stats"
	"github.com/rpggio/splitlab/internal/repository"
)

var (
	_ participant.Repository           = (*ParticipantRepository)(nil)
	_ experiment.ParticipantRepository = (*ParticipantRepository)(nil)
)

const participantColumns = `id, experiment_id, user_id, customer_id, session_id,
	variant_name, assigned_at, converted_at, conversion_value`

// ParticipantRepository stores variant assignments and their conversions
type ParticipantRepository struct {
	db *DB
}

// NewParticipantRepository creates a new ParticipantRepository
func NewParticipantRepository(db *DB) *ParticipantRepository {
	return &ParticipantRepository{db: db}
}

// Upsert inserts the assignment or resolves the (experiment, identity)
// conflict according to policy, in one statement.
func (r *ParticipantRepository) Upsert(ctx context.Context, a *participant.Assignment, policy participant.Policy) (*participant.Assignment, error) {
	onConflict := `variant_name = excluded.variant_name, assigned_at = excluded.assigned_at`
	if policy == participant.PolicySticky {
		// no-op update so RETURNING still yields the existing row
		onConflict = `variant_name = experiment_participants.variant_name`
	}

	query := `
		INSERT INTO experiment_participants (
			id, experiment_id, user_id, customer_id, session_id,
			identity_key, variant_name, assigned_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(experiment_id, identity_key) DO UPDATE SET ` + onConflict + `
		RETURNING ` + participantColumns

	row := r.db.QueryRowContext(ctx, query,
		a.ID,
		a.ExperimentID,
		a.UserID,
		a.CustomerID,
		a.SessionID,
		a.Identity().Key(),
		a.VariantName,
		formatTime(a.AssignedAt),
	)
	stored, err := scanAssignment(row)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, repository.ErrForeignKeyViolation
		}
		return nil, fmt.Errorf("failed to upsert assignment: %w", err)
	}

	return stored, nil
}

// Get retrieves an assignment by ID
func (r *ParticipantRepository) Get(ctx context.Context, id string) (*participant.Assignment, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+participantColumns+` FROM experiment_participants WHERE id = ?`, id)
	stored, err := scanAssignment(row)
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}
	return stored, nil
}

// UpdateConversion overwrites the conversion fields. When experimentID is
// non-empty the update only matches rows of that experiment.
func (r *ParticipantRepository) UpdateConversion(ctx context.Context, id, experimentID string, convertedAt time.Time, value *float64) (*participant.Assignment, error) {
	query := `UPDATE experiment_participants SET converted_at = ?, conversion_value = ? WHERE id = ?`
	args := []interface{}{formatTime(convertedAt), value, id}
	if experimentID != "" {
		query += ` AND experiment_id = ?`
		args = append(args, experimentID)
	}
	query += ` RETURNING ` + participantColumns

	stored, err := scanAssignment(r.db.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update conversion: %w", err)
	}
	return stored, nil
}

// Aggregates returns per-variant participant and conversion totals
func (r *ParticipantRepository) Aggregates(ctx context.Context, experimentID string) ([]stats.Counts, error) {
	query := `
		SELECT
			variant_name,
			COUNT(*) AS participants,
			COUNT(converted_at) AS conversions,
			COALESCE(SUM(CASE WHEN converted_at IS NOT NULL THEN conversion_value END), 0) AS total_value
		FROM experiment_participants
		WHERE experiment_id = ?
		GROUP BY variant_name
	`

	rows, err := r.db.QueryContext(ctx, query, experimentID)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate participants: %w", err)
	}
	defer rows.Close()

	var counts []stats.Counts
	for rows.Next() {
		var c stats.Counts
		if err := rows.Scan(&c.Variant, &c.Participants, &c.Conversions, &c.TotalValue); err != nil {
			return nil, fmt.Errorf("failed to scan aggregate: %w", err)
		}
		counts = append(counts, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating aggregate rows: %w", err)
	}

	return counts, nil
}

func scanAssignment(row *sql.Row) (*participant.Assignment, error) {
	var (
		a                             participant.Assignment
		userID, customerID, sessionID sql.NullString
		assignedAt, convertedAt       timestamp
		value                         sql.NullFloat64
	)
	if err := row.Scan(
		&a.ID,
		&a.ExperimentID,
		&userID,
		&customerID,
		&sessionID,
		&a.VariantName,
		&assignedAt,
		&convertedAt,
		&value,
	); err != nil {
		return nil, err
	}
	a.UserID = stringPtr(userID)
	a.CustomerID = stringPtr(customerID)
	a.SessionID = stringPtr(sessionID)
	a.AssignedAt = assignedAt.Time
	a.ConvertedAt = convertedAt.ptr()
	if value.Valid {
		v := value.Float64
		a.ConversionValue = &v
	}
	return &a, nil
}

func stringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}
