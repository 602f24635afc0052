package database

import (
	"context"
	"database/sql"
	"fmt"

	"tably-server/models"

	"github.com/google/uuid"
)

const restaurantColumns = `id, name, slug, whatsapp_api_url, whatsapp_api_key, whatsapp_instance_id, settings, is_active, created_at, updated_at`

func scanRestaurant(row *sql.Row) (*models.Restaurant, error) {
	var r models.Restaurant
	err := row.Scan(
		&r.ID, &r.Name, &r.Slug, &r.WhatsappAPIURL, &r.WhatsappAPIKey,
		&r.WhatsappInstanceID, &r.Settings, &r.IsActive, &r.CreatedAt, &r.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan restaurant: %w", err)
	}
	r.Settings.CheckinProgram.Normalize()
	return &r, nil
}

func (db *DB) GetRestaurantByID(ctx context.Context, id uuid.UUID) (*models.Restaurant, error) {
	query := `SELECT ` + restaurantColumns + ` FROM restaurants WHERE id = $1 AND is_active = TRUE`
	return scanRestaurant(db.QueryRowContext(ctx, query, id))
}

func (db *DB) GetRestaurantBySlug(ctx context.Context, slug string) (*models.Restaurant, error) {
	query := `SELECT ` + restaurantColumns + ` FROM restaurants WHERE slug = $1 AND is_active = TRUE`
	return scanRestaurant(db.QueryRowContext(ctx, query, slug))
}

func (db *DB) UpdateRestaurantSettings(ctx context.Context, id uuid.UUID, settings models.RestaurantSettings) error {
	result, err := db.ExecContext(ctx,
		`UPDATE restaurants SET settings = $1, updated_at = now() WHERE id = $2`,
		settings, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update restaurant settings: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}
