package sqlite

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/rpggio/splitlab/internal/repository"
)

// APIKeyResolver resolves tenant ids from bearer tokens stored as sha256 hashes.
type APIKeyResolver struct {
	db *DB
}

// NewAPIKeyResolver creates a new APIKeyResolver
func NewAPIKeyResolver(db *DB) *APIKeyResolver {
	return &APIKeyResolver{db: db}
}

// ResolveTenant returns the tenant owning token and stamps last_used.
func (r *APIKeyResolver) ResolveTenant(ctx context.Context, token string) (string, error) {
	hash := HashToken(token)
	var tenantID string
	err := r.db.QueryRowContext(ctx, `SELECT tenant_id FROM api_keys WHERE key_hash = ?`, hash).Scan(&tenantID)
	if err == sql.ErrNoRows || (err == nil && tenantID == "") {
		return "", repository.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve api key: %w", err)
	}

	// best effort; a failed stamp must not reject a valid key
	_, _ = r.db.ExecContext(ctx, `UPDATE api_keys SET last_used = ? WHERE key_hash = ?`, formatTime(time.Now()), hash)

	return tenantID, nil
}

// CreateKey stores the hash of token for tenantID.
func (r *APIKeyResolver) CreateKey(ctx context.Context, tenantID, token, description string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO api_keys (key_hash, tenant_id, description, created_at) VALUES (?, ?, ?, ?)`,
		HashToken(token), tenantID, description, formatTime(time.Now()),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrConflict
		}
		return fmt.Errorf("failed to create api key: %w", err)
	}
	return nil
}

// HashToken returns the hex sha256 of token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
