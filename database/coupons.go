package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"tably-server/models"

	"github.com/google/uuid"
)

const couponColumns = `id, code, restaurant_id, customer_id, reward_id, title, description, value, reward_type, visit_milestone, status, expires_at, redeemed_at, cancelled_at, created_at, updated_at`

func scanCoupon(row *sql.Row) (*models.Coupon, error) {
	var c models.Coupon
	err := row.Scan(
		&c.ID, &c.Code, &c.RestaurantID, &c.CustomerID, &c.RewardID, &c.Title,
		&c.Description, &c.Value, &c.RewardType, &c.VisitMilestone, &c.Status,
		&c.ExpiresAt, &c.RedeemedAt, &c.CancelledAt, &c.CreatedAt, &c.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan coupon: %w", err)
	}
	return &c, nil
}

func (db *DB) GetCoupon(ctx context.Context, id, restaurantID uuid.UUID) (*models.Coupon, error) {
	query := `SELECT ` + couponColumns + ` FROM coupons WHERE id = $1 AND restaurant_id = $2`
	return scanCoupon(db.QueryRowContext(ctx, query, id, restaurantID))
}

func (db *DB) GetCouponByCode(ctx context.Context, code string, restaurantID uuid.UUID) (*models.Coupon, error) {
	query := `SELECT ` + couponColumns + ` FROM coupons WHERE code = $1 AND restaurant_id = $2`
	return scanCoupon(db.QueryRowContext(ctx, query, code, restaurantID))
}

// FindMilestoneCoupon looks up the coupon already issued for this milestone, if any.
func (db *DB) FindMilestoneCoupon(ctx context.Context, customerID, rewardID uuid.UUID, visitMilestone int) (*models.Coupon, error) {
	query := `
		SELECT ` + couponColumns + ` FROM coupons
		WHERE customer_id = $1 AND reward_id = $2 AND visit_milestone = $3
	`
	return scanCoupon(db.QueryRowContext(ctx, query, customerID, rewardID, visitMilestone))
}

// CreateCoupon inserts the coupon. When the milestone unique index rejects the
// insert, the already-issued coupon is returned with created=false so callers can
// treat a concurrent duplicate as "already issued". A collision on the code
// itself surfaces as ErrCouponCodeCollision and the caller retries with a fresh
// code.
func (db *DB) CreateCoupon(ctx context.Context, coupon *models.Coupon) (created bool, err error) {
	query := `
		INSERT INTO coupons (code, restaurant_id, customer_id, reward_id, title, description, value, reward_type, visit_milestone, status, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 'active', $10)
		RETURNING id, created_at, updated_at
	`
	err = db.QueryRowContext(ctx, query,
		coupon.Code, coupon.RestaurantID, coupon.CustomerID, coupon.RewardID,
		coupon.Title, coupon.Description, coupon.Value, coupon.RewardType,
		coupon.VisitMilestone, coupon.ExpiresAt,
	).Scan(&coupon.ID, &coupon.CreatedAt, &coupon.UpdatedAt)
	if err == nil {
		coupon.Status = models.CouponStatusActive
		return true, nil
	}

	if isUniqueViolation(err, "idx_coupons_milestone") && coupon.VisitMilestone != nil {
		existing, findErr := db.FindMilestoneCoupon(ctx, coupon.CustomerID, coupon.RewardID, *coupon.VisitMilestone)
		if findErr != nil {
			return false, fmt.Errorf("milestone coupon exists but could not be loaded: %w", findErr)
		}
		*coupon = *existing
		return false, nil
	}
	if isUniqueViolation(err, "coupons_code_key") {
		return false, ErrCouponCodeCollision
	}
	return false, fmt.Errorf("failed to create coupon: %w", err)
}

// RedeemCoupon marks an active coupon redeemed. Returns ErrNotFound when the
// coupon is missing, already redeemed, expired or cancelled.
func (db *DB) RedeemCoupon(ctx context.Context, id, restaurantID uuid.UUID, redeemedAt time.Time) (*models.Coupon, error) {
	query := `
		UPDATE coupons SET status = 'redeemed', redeemed_at = $3, updated_at = now()
		WHERE id = $1 AND restaurant_id = $2 AND status = 'active'
		AND (expires_at IS NULL OR expires_at > $3)
		RETURNING ` + couponColumns + `
	`
	return scanCoupon(db.QueryRowContext(ctx, query, id, restaurantID, redeemedAt))
}

// ExpireStaleCoupons flips active coupons past their expiry to expired.
func (db *DB) ExpireStaleCoupons(ctx context.Context, restaurantID uuid.UUID) (int64, error) {
	result, err := db.ExecContext(ctx, `
		UPDATE coupons SET status = 'expired', updated_at = now()
		WHERE restaurant_id = $1 AND status = 'active' AND expires_at IS NOT NULL AND expires_at <= now()
	`, restaurantID)
	if err != nil {
		return 0, fmt.Errorf("failed to expire coupons: %w", err)
	}
	return result.RowsAffected()
}

func (db *DB) ListCustomerCoupons(ctx context.Context, customerID, restaurantID uuid.UUID) ([]models.Coupon, error) {
	query := `
		SELECT ` + couponColumns + ` FROM coupons
		WHERE customer_id = $1 AND restaurant_id = $2
		ORDER BY created_at DESC
	`
	rows, err := db.QueryContext(ctx, query, customerID, restaurantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list coupons: %w", err)
	}
	defer rows.Close()

	var coupons []models.Coupon
	for rows.Next() {
		var c models.Coupon
		err := rows.Scan(
			&c.ID, &c.Code, &c.RestaurantID, &c.CustomerID, &c.RewardID, &c.Title,
			&c.Description, &c.Value, &c.RewardType, &c.VisitMilestone, &c.Status,
			&c.ExpiresAt, &c.RedeemedAt, &c.CancelledAt, &c.CreatedAt, &c.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan coupon: %w", err)
		}
		coupons = append(coupons, c)
	}
	return coupons, rows.Err()
}

// CountCustomerCoupons counts coupons a customer holds for one reward,
// used by the per-customer usage limit.
func (db *DB) CountCustomerCoupons(ctx context.Context, customerID, rewardID uuid.UUID) (int, error) {
	var count int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM coupons WHERE customer_id = $1 AND reward_id = $2`,
		customerID, rewardID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count coupons: %w", err)
	}
	return count, nil
}
