package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"chatcal/core/database"
	"chatcal/core/logger"
	"chatcal/modules/auth/entity"
)

var ErrUserNotFound = errors.New("auth: user not found")

type AuthRepositoryInterface interface {
	UpsertUser(ctx context.Context, user *entity.User) (*entity.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*entity.User, error)
	GetUserByGoogleSub(ctx context.Context, sub string) (*entity.User, error)
}

type authRepository struct {
	db database.IDatabase
}

func NewAuthRepository(db database.IDatabase) AuthRepositoryInterface {
	return &authRepository{db: db}
}

// UpsertUser inserts the user on first sign-in, refreshing profile fields on
// subsequent ones. Identity is keyed on the Google subject, not the email.
func (r *authRepository) UpsertUser(ctx context.Context, user *entity.User) (*entity.User, error) {
	query := `
		INSERT INTO users (id, google_sub, email, name, picture, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		ON CONFLICT (google_sub) DO UPDATE
		SET email = EXCLUDED.email,
		    name = EXCLUDED.name,
		    picture = EXCLUDED.picture,
		    updated_at = NOW()
		RETURNING id, google_sub, email, name, picture, created_at, updated_at`

	var saved entity.User
	err := r.db.GetContext(ctx, &saved, query,
		uuid.New(), user.GoogleSub, user.Email, user.Name, user.Picture)
	if err != nil {
		logger.Error("AuthRepository:UpsertUser:Error", "error", err)
		return nil, err
	}
	return &saved, nil
}

func (r *authRepository) GetUserByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	query := `SELECT id, google_sub, email, name, picture, created_at, updated_at
		FROM users WHERE id = $1`

	var user entity.User
	err := r.db.GetContext(ctx, &user, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		logger.Error("AuthRepository:GetUserByID:Error", "error", err)
		return nil, err
	}
	return &user, nil
}

func (r *authRepository) GetUserByGoogleSub(ctx context.Context, sub string) (*entity.User, error) {
	query := `SELECT id, google_sub, email, name, picture, created_at, updated_at
		FROM users WHERE google_sub = $1`

	var user entity.User
	err := r.db.GetContext(ctx, &user, query, sub)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		logger.Error("AuthRepository:GetUserByGoogleSub:Error", "error", err)
		return nil, err
	}
	return &user, nil
}
