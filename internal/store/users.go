package store

import (
	"context"
	"database/sql"
	"errors"

	"fulfillment-service/internal/errs"
	"fulfillment-service/internal/models"
)

// GetUserByID retrieves a user by ID
func (s *Store) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := s.db.GetContext(ctx, &user, "SELECT * FROM users WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NewNotFoundError("user", id)
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateUser inserts a user
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, name, email, is_admin)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`

	return s.db.GetContext(ctx, &user.CreatedAt, query,
		user.ID, user.Name, user.Email, user.IsAdmin)
}
