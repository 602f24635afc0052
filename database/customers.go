package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"tably-server/models"

	"github.com/google/uuid"
)

const customerColumns = `id, restaurant_id, name, email, phone, cpf, whatsapp, source, total_visits, total_spent, loyalty_points, customer_segment, last_visit, created_at, updated_at`

func scanCustomer(row *sql.Row) (*models.Customer, error) {
	var c models.Customer
	err := row.Scan(
		&c.ID, &c.RestaurantID, &c.Name, &c.Email, &c.Phone, &c.CPF, &c.Whatsapp,
		&c.Source, &c.TotalVisits, &c.TotalSpent, &c.LoyaltyPoints,
		&c.CustomerSegment, &c.LastVisit, &c.CreatedAt, &c.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan customer: %w", err)
	}
	return &c, nil
}

func (db *DB) GetCustomer(ctx context.Context, id, restaurantID uuid.UUID) (*models.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE id = $1 AND restaurant_id = $2`
	return scanCustomer(db.QueryRowContext(ctx, query, id, restaurantID))
}

func (db *DB) FindCustomerByPhone(ctx context.Context, phone string, restaurantID uuid.UUID) (*models.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE phone = $1 AND restaurant_id = $2`
	return scanCustomer(db.QueryRowContext(ctx, query, phone, restaurantID))
}

func (db *DB) FindCustomerByCPF(ctx context.Context, cpf string, restaurantID uuid.UUID) (*models.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE cpf = $1 AND restaurant_id = $2`
	return scanCustomer(db.QueryRowContext(ctx, query, cpf, restaurantID))
}

func (db *DB) CreateCustomer(ctx context.Context, customer *models.Customer) error {
	query := `
		INSERT INTO customers (restaurant_id, name, email, phone, cpf, whatsapp, source)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, total_visits, loyalty_points, customer_segment, created_at, updated_at
	`
	err := db.QueryRowContext(ctx, query,
		customer.RestaurantID, customer.Name, customer.Email, customer.Phone,
		customer.CPF, customer.Whatsapp, customer.Source,
	).Scan(
		&customer.ID, &customer.TotalVisits, &customer.LoyaltyPoints,
		&customer.CustomerSegment, &customer.CreatedAt, &customer.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create customer: %w", err)
	}
	return nil
}

func (db *DB) UpdateCustomer(ctx context.Context, customer *models.Customer) error {
	query := `
		UPDATE customers
		SET name = $3, email = $4, phone = $5, cpf = $6, whatsapp = $7, updated_at = now()
		WHERE id = $1 AND restaurant_id = $2
	`
	result, err := db.ExecContext(ctx, query,
		customer.ID, customer.RestaurantID, customer.Name, customer.Email,
		customer.Phone, customer.CPF, customer.Whatsapp,
	)
	if err != nil {
		return fmt.Errorf("failed to update customer: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (db *DB) RenameCustomer(ctx context.Context, id uuid.UUID, name string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE customers SET name = $1, updated_at = now() WHERE id = $2`, name, id)
	if err != nil {
		return fmt.Errorf("failed to rename customer: %w", err)
	}
	return nil
}

// IncrementVisits bumps the visit counter in a single statement so concurrent
// check-ins never lose an update, and returns the new count.
func (db *DB) IncrementVisits(ctx context.Context, id uuid.UUID, visitTime time.Time) (int, error) {
	var totalVisits int
	query := `
		UPDATE customers
		SET total_visits = total_visits + 1, last_visit = $2, updated_at = now()
		WHERE id = $1
		RETURNING total_visits
	`
	err := db.QueryRowContext(ctx, query, id, visitTime).Scan(&totalVisits)
	if err == sql.ErrNoRows {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to increment visits: %w", err)
	}
	return totalVisits, nil
}

// RefreshCustomerStats recomputes the visit counter from the check-in history
// and derives the customer segment from it.
func (db *DB) RefreshCustomerStats(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE customers c
		SET total_visits = (SELECT COUNT(*) FROM checkins WHERE customer_id = c.id),
		    customer_segment = CASE
		        WHEN (SELECT COUNT(*) FROM checkins WHERE customer_id = c.id) >= 10 THEN 'vip'
		        WHEN (SELECT COUNT(*) FROM checkins WHERE customer_id = c.id) >= 3 THEN 'regular'
		        ELSE 'new'
		    END,
		    updated_at = now()
		WHERE c.id = $1
	`
	if _, err := db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to refresh customer stats: %w", err)
	}
	return nil
}

// AddLoyaltyPoints credits points to the customer. The source is recorded only
// in logs; there is no per-transaction ledger table yet.
func (db *DB) AddLoyaltyPoints(ctx context.Context, id uuid.UUID, points int, source string) error {
	if points <= 0 {
		return nil
	}
	_, err := db.ExecContext(ctx,
		`UPDATE customers SET loyalty_points = loyalty_points + $1, updated_at = now() WHERE id = $2`,
		points, id)
	if err != nil {
		return fmt.Errorf("failed to add loyalty points (source=%s): %w", source, err)
	}
	return nil
}

func (db *DB) ListCustomers(ctx context.Context, restaurantID uuid.UUID, search string, limit, offset int) ([]models.Customer, int, error) {
	countQuery := `
		SELECT COUNT(*) FROM customers
		WHERE restaurant_id = $1
		AND ($2 = '' OR name ILIKE '%' || $2 || '%' OR phone LIKE '%' || $2 || '%')
	`
	var total int
	if err := db.QueryRowContext(ctx, countQuery, restaurantID, search).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count customers: %w", err)
	}

	query := `
		SELECT ` + customerColumns + ` FROM customers
		WHERE restaurant_id = $1
		AND ($2 = '' OR name ILIKE '%' || $2 || '%' OR phone LIKE '%' || $2 || '%')
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`
	rows, err := db.QueryContext(ctx, query, restaurantID, search, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list customers: %w", err)
	}
	defer rows.Close()

	var customers []models.Customer
	for rows.Next() {
		var c models.Customer
		err := rows.Scan(
			&c.ID, &c.RestaurantID, &c.Name, &c.Email, &c.Phone, &c.CPF, &c.Whatsapp,
			&c.Source, &c.TotalVisits, &c.TotalSpent, &c.LoyaltyPoints,
			&c.CustomerSegment, &c.LastVisit, &c.CreatedAt, &c.UpdatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan customer: %w", err)
		}
		customers = append(customers, c)
	}
	return customers, total, rows.Err()
}
