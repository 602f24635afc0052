package database

import (
	"context"
	"database/sql"
	"fmt"

	"tably-server/models"

	"github.com/google/uuid"
)

const userColumns = `id, restaurant_id, phone, full_name, password_hash, role, is_active, created_at`

func scanUser(row *sql.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(
		&u.ID, &u.RestaurantID, &u.Phone, &u.FullName, &u.PasswordHash,
		&u.Role, &u.IsActive, &u.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return &u, nil
}

func (db *DB) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(db.QueryRowContext(ctx, query, id))
}

func (db *DB) GetUserByPhone(ctx context.Context, phone string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE phone = $1`
	return scanUser(db.QueryRowContext(ctx, query, phone))
}

func (db *DB) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (restaurant_id, phone, full_name, password_hash, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, is_active, created_at
	`
	err := db.QueryRowContext(ctx, query,
		user.RestaurantID, user.Phone, user.FullName, user.PasswordHash, user.Role,
	).Scan(&user.ID, &user.IsActive, &user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err, "") {
			return fmt.Errorf("phone already registered")
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}
