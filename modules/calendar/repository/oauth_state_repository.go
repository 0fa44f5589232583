package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"chatcal/core/database"
	"chatcal/core/logger"
)

// ErrStateNotFound indicates the state value was never issued, already
// consumed, or expired.
var ErrStateNotFound = errors.New("calendar: oauth state not found")

// OAuthStateRepository tracks one-time CSRF state values for the consent
// redirect flow. A state may be consumed exactly once.
type OAuthStateRepository interface {
	Save(ctx context.Context, state string, expiresAt time.Time) error
	Consume(ctx context.Context, state string) error
	CleanupExpired(ctx context.Context) (int64, error)
}

type oauthStateRepository struct {
	db database.IDatabase
}

func NewOAuthStateRepository(db database.IDatabase) OAuthStateRepository {
	return &oauthStateRepository{db: db}
}

func (r *oauthStateRepository) Save(ctx context.Context, state string, expiresAt time.Time) error {
	query := `INSERT INTO oauth_states (state, expires_at) VALUES ($1, $2)`
	if err := r.db.ExecContext(ctx, query, state, expiresAt); err != nil {
		logger.Error("OAuthStateRepository:Save:Error", "error", err)
		return err
	}
	return nil
}

func (r *oauthStateRepository) Consume(ctx context.Context, state string) error {
	query := `DELETE FROM oauth_states WHERE state = $1 AND expires_at > NOW() RETURNING state`
	var consumed string
	err := r.db.QueryRowContext(ctx, query, state).Scan(&consumed)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrStateNotFound
	}
	if err != nil {
		logger.Error("OAuthStateRepository:Consume:Error", "error", err)
		return err
	}
	return nil
}

func (r *oauthStateRepository) CleanupExpired(ctx context.Context) (int64, error) {
	query := `DELETE FROM oauth_states WHERE expires_at <= NOW()`
	result, err := r.db.SQLx().ExecContext(ctx, query)
	if err != nil {
		logger.Error("OAuthStateRepository:CleanupExpired:Error", "error", err)
		return 0, err
	}
	deleted, _ := result.RowsAffected()
	return deleted, nil
}
