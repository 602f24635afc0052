package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"tably-server/models"

	"github.com/google/uuid"
)

const checkinColumns = `id, customer_id, restaurant_id, table_number, coupon_id, checkin_time, checkout_time, expires_at, status, created_at, updated_at`

func scanCheckin(row *sql.Row) (*models.Checkin, error) {
	var ch models.Checkin
	err := row.Scan(
		&ch.ID, &ch.CustomerID, &ch.RestaurantID, &ch.TableNumber, &ch.CouponID,
		&ch.CheckinTime, &ch.CheckoutTime, &ch.ExpiresAt, &ch.Status,
		&ch.CreatedAt, &ch.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan checkin: %w", err)
	}
	return &ch, nil
}

func (db *DB) GetCheckin(ctx context.Context, id uuid.UUID) (*models.Checkin, error) {
	query := `SELECT ` + checkinColumns + ` FROM checkins WHERE id = $1`
	return scanCheckin(db.QueryRowContext(ctx, query, id))
}

// ActiveCheckin returns the unexpired active session for the pair, or ErrNotFound.
func (db *DB) ActiveCheckin(ctx context.Context, customerID, restaurantID uuid.UUID) (*models.Checkin, error) {
	query := `
		SELECT ` + checkinColumns + ` FROM checkins
		WHERE customer_id = $1 AND restaurant_id = $2 AND status = 'active' AND expires_at > now()
	`
	return scanCheckin(db.QueryRowContext(ctx, query, customerID, restaurantID))
}

// ExpireStaleCheckins completes active sessions that have passed their expiry.
// Run before inserting a new session so the partial unique index on
// (customer_id, restaurant_id) WHERE status='active' only ever blocks a
// genuinely live session.
func (db *DB) ExpireStaleCheckins(ctx context.Context, customerID, restaurantID uuid.UUID) error {
	query := `
		UPDATE checkins SET status = 'completed', checkout_time = expires_at, updated_at = now()
		WHERE customer_id = $1 AND restaurant_id = $2 AND status = 'active' AND expires_at <= now()
	`
	if _, err := db.ExecContext(ctx, query, customerID, restaurantID); err != nil {
		return fmt.Errorf("failed to expire stale checkins: %w", err)
	}
	return nil
}

// CreateCheckin inserts a new active session. A concurrent duplicate is caught
// by the unique index and surfaced as ErrDuplicateActiveSession.
func (db *DB) CreateCheckin(ctx context.Context, checkin *models.Checkin) error {
	query := `
		INSERT INTO checkins (customer_id, restaurant_id, table_number, coupon_id, checkin_time, expires_at, status)
		VALUES ($1, $2, $3, $4, $5, $6, 'active')
		RETURNING id, created_at, updated_at
	`
	err := db.QueryRowContext(ctx, query,
		checkin.CustomerID, checkin.RestaurantID, checkin.TableNumber,
		checkin.CouponID, checkin.CheckinTime, checkin.ExpiresAt,
	).Scan(&checkin.ID, &checkin.CreatedAt, &checkin.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, "idx_checkins_one_active") {
			return ErrDuplicateActiveSession
		}
		return fmt.Errorf("failed to create checkin: %w", err)
	}
	checkin.Status = models.CheckinStatusActive
	return nil
}

// CompleteCheckin transitions an active session to completed. Sessions that are
// already completed or cancelled are not found by this query and never change.
func (db *DB) CompleteCheckin(ctx context.Context, id uuid.UUID, checkoutTime time.Time) (*models.Checkin, error) {
	query := `
		UPDATE checkins SET status = 'completed', checkout_time = $2, updated_at = now()
		WHERE id = $1 AND status = 'active'
		RETURNING ` + checkinColumns + `
	`
	return scanCheckin(db.QueryRowContext(ctx, query, id, checkoutTime))
}

// PreviousCheckin returns the most recent session for the pair other than
// excludeID, used by the anti-fraud frequency check.
func (db *DB) PreviousCheckin(ctx context.Context, customerID, restaurantID, excludeID uuid.UUID) (*models.Checkin, error) {
	query := `
		SELECT ` + checkinColumns + ` FROM checkins
		WHERE customer_id = $1 AND restaurant_id = $2 AND id != $3
		ORDER BY checkin_time DESC
		LIMIT 1
	`
	return scanCheckin(db.QueryRowContext(ctx, query, customerID, restaurantID, excludeID))
}

// ActiveCheckinsWithCustomer is one row of the live-floor listing.
type ActiveCheckinsWithCustomer struct {
	Checkin       models.Checkin `json:"checkin"`
	CustomerName  string         `json:"customer_name"`
	CustomerPhone *string        `json:"customer_phone"`
}

func (db *DB) ActiveCheckins(ctx context.Context, restaurantID uuid.UUID) ([]ActiveCheckinsWithCustomer, error) {
	query := `
		SELECT ch.id, ch.customer_id, ch.restaurant_id, ch.table_number, ch.coupon_id,
		       ch.checkin_time, ch.checkout_time, ch.expires_at, ch.status,
		       ch.created_at, ch.updated_at, c.name, c.phone
		FROM checkins ch
		JOIN customers c ON c.id = ch.customer_id
		WHERE ch.restaurant_id = $1 AND ch.status = 'active' AND ch.expires_at > now()
		ORDER BY ch.checkin_time ASC
	`
	rows, err := db.QueryContext(ctx, query, restaurantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list active checkins: %w", err)
	}
	defer rows.Close()

	var result []ActiveCheckinsWithCustomer
	for rows.Next() {
		var item ActiveCheckinsWithCustomer
		ch := &item.Checkin
		err := rows.Scan(
			&ch.ID, &ch.CustomerID, &ch.RestaurantID, &ch.TableNumber, &ch.CouponID,
			&ch.CheckinTime, &ch.CheckoutTime, &ch.ExpiresAt, &ch.Status,
			&ch.CreatedAt, &ch.UpdatedAt, &item.CustomerName, &item.CustomerPhone,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan active checkin: %w", err)
		}
		result = append(result, item)
	}
	return result, rows.Err()
}

// CheckinAnalytics summarizes completed sessions for the dashboard.
type CheckinAnalytics struct {
	TotalCheckins               int                   `json:"total_checkins"`
	MostFrequentCustomers       []FrequentCustomer    `json:"most_frequent_customers"`
	AverageVisitDurationSeconds float64               `json:"average_visit_duration_seconds"`
	CheckinsByDay               []CheckinsByDayBucket `json:"checkins_by_day"`
}

type FrequentCustomer struct {
	CustomerID   uuid.UUID `json:"customer_id"`
	CustomerName string    `json:"customer_name"`
	CheckinCount int       `json:"checkin_count"`
}

type CheckinsByDayBucket struct {
	Date  time.Time `json:"date"`
	Count int       `json:"count"`
}

func (db *DB) GetCheckinAnalytics(ctx context.Context, restaurantID uuid.UUID, since *time.Time) (*CheckinAnalytics, error) {
	analytics := &CheckinAnalytics{}

	countQuery := `
		SELECT COUNT(*) FROM checkins
		WHERE restaurant_id = $1 AND status = 'completed' AND ($2::timestamptz IS NULL OR checkin_time >= $2)
	`
	if err := db.QueryRowContext(ctx, countQuery, restaurantID, since).Scan(&analytics.TotalCheckins); err != nil {
		return nil, fmt.Errorf("failed to count checkins: %w", err)
	}

	frequentQuery := `
		SELECT ch.customer_id, c.name, COUNT(ch.id) AS checkin_count
		FROM checkins ch
		JOIN customers c ON c.id = ch.customer_id
		WHERE ch.restaurant_id = $1 AND ch.status = 'completed' AND ($2::timestamptz IS NULL OR ch.checkin_time >= $2)
		GROUP BY ch.customer_id, c.name
		ORDER BY checkin_count DESC
		LIMIT 10
	`
	rows, err := db.QueryContext(ctx, frequentQuery, restaurantID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query frequent customers: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var fc FrequentCustomer
		if err := rows.Scan(&fc.CustomerID, &fc.CustomerName, &fc.CheckinCount); err != nil {
			return nil, fmt.Errorf("failed to scan frequent customer: %w", err)
		}
		analytics.MostFrequentCustomers = append(analytics.MostFrequentCustomers, fc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	durationQuery := `
		SELECT COALESCE(AVG(EXTRACT(EPOCH FROM (checkout_time - checkin_time))), 0)
		FROM checkins
		WHERE restaurant_id = $1 AND status = 'completed' AND checkout_time IS NOT NULL
		AND ($2::timestamptz IS NULL OR checkin_time >= $2)
	`
	if err := db.QueryRowContext(ctx, durationQuery, restaurantID, since).Scan(&analytics.AverageVisitDurationSeconds); err != nil {
		return nil, fmt.Errorf("failed to compute average duration: %w", err)
	}

	byDayQuery := `
		SELECT DATE_TRUNC('day', checkin_time) AS day, COUNT(id)
		FROM checkins
		WHERE restaurant_id = $1 AND status = 'completed' AND checkin_time >= now() - INTERVAL '30 days'
		GROUP BY day
		ORDER BY day ASC
	`
	dayRows, err := db.QueryContext(ctx, byDayQuery, restaurantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query checkins by day: %w", err)
	}
	defer dayRows.Close()
	for dayRows.Next() {
		var bucket CheckinsByDayBucket
		if err := dayRows.Scan(&bucket.Date, &bucket.Count); err != nil {
			return nil, fmt.Errorf("failed to scan checkins by day: %w", err)
		}
		analytics.CheckinsByDay = append(analytics.CheckinsByDay, bucket)
	}
	return analytics, dayRows.Err()
}
