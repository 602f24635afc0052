package database

import (
	"context"
	"database/sql"
	"fmt"

	"tably-server/models"

	"github.com/google/uuid"
)

const rewardColumns = `id, restaurant_id, customer_id, title, description, reward_type, value, wheel_config, is_active, valid_from, valid_until, total_uses_limit, current_uses, max_uses_per_customer, coupon_validity_days, days_valid, created_by, created_at, updated_at`

func scanReward(row *sql.Row) (*models.Reward, error) {
	var r models.Reward
	err := row.Scan(
		&r.ID, &r.RestaurantID, &r.CustomerID, &r.Title, &r.Description,
		&r.RewardType, &r.Value, &r.WheelConfig, &r.IsActive, &r.ValidFrom,
		&r.ValidUntil, &r.TotalUsesLimit, &r.CurrentUses, &r.MaxUsesPerCustomer,
		&r.CouponValidityDays, &r.DaysValid, &r.CreatedBy, &r.CreatedAt, &r.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan reward: %w", err)
	}
	return &r, nil
}

func (db *DB) GetReward(ctx context.Context, id uuid.UUID) (*models.Reward, error) {
	query := `SELECT ` + rewardColumns + ` FROM rewards WHERE id = $1`
	return scanReward(db.QueryRowContext(ctx, query, id))
}

func (db *DB) ListRewards(ctx context.Context, restaurantID uuid.UUID, limit, offset int) ([]models.Reward, int, error) {
	var total int
	if err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM rewards WHERE restaurant_id = $1`, restaurantID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count rewards: %w", err)
	}

	query := `
		SELECT ` + rewardColumns + ` FROM rewards
		WHERE restaurant_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := db.QueryContext(ctx, query, restaurantID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list rewards: %w", err)
	}
	defer rows.Close()

	var rewards []models.Reward
	for rows.Next() {
		var r models.Reward
		err := rows.Scan(
			&r.ID, &r.RestaurantID, &r.CustomerID, &r.Title, &r.Description,
			&r.RewardType, &r.Value, &r.WheelConfig, &r.IsActive, &r.ValidFrom,
			&r.ValidUntil, &r.TotalUsesLimit, &r.CurrentUses, &r.MaxUsesPerCustomer,
			&r.CouponValidityDays, &r.DaysValid, &r.CreatedBy, &r.CreatedAt, &r.UpdatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan reward: %w", err)
		}
		rewards = append(rewards, r)
	}
	return rewards, total, rows.Err()
}

func (db *DB) CreateReward(ctx context.Context, reward *models.Reward) error {
	query := `
		INSERT INTO rewards (restaurant_id, customer_id, title, description, reward_type, value, wheel_config, is_active, valid_from, valid_until, total_uses_limit, max_uses_per_customer, coupon_validity_days, days_valid, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id, current_uses, created_at, updated_at
	`
	err := db.QueryRowContext(ctx, query,
		reward.RestaurantID, reward.CustomerID, reward.Title, reward.Description,
		reward.RewardType, reward.Value, reward.WheelConfig, reward.IsActive,
		reward.ValidFrom, reward.ValidUntil, reward.TotalUsesLimit,
		reward.MaxUsesPerCustomer, reward.CouponValidityDays, reward.DaysValid,
		reward.CreatedBy,
	).Scan(&reward.ID, &reward.CurrentUses, &reward.CreatedAt, &reward.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create reward: %w", err)
	}
	return nil
}

func (db *DB) UpdateReward(ctx context.Context, reward *models.Reward) error {
	query := `
		UPDATE rewards
		SET title = $2, description = $3, reward_type = $4, value = $5, wheel_config = $6,
		    is_active = $7, valid_from = $8, valid_until = $9, total_uses_limit = $10,
		    max_uses_per_customer = $11, coupon_validity_days = $12, days_valid = $13,
		    updated_at = now()
		WHERE id = $1 AND restaurant_id = $14
	`
	result, err := db.ExecContext(ctx, query,
		reward.ID, reward.Title, reward.Description, reward.RewardType, reward.Value,
		reward.WheelConfig, reward.IsActive, reward.ValidFrom, reward.ValidUntil,
		reward.TotalUsesLimit, reward.MaxUsesPerCustomer, reward.CouponValidityDays,
		reward.DaysValid, reward.RestaurantID,
	)
	if err != nil {
		return fmt.Errorf("failed to update reward: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (db *DB) DeleteReward(ctx context.Context, id, restaurantID uuid.UUID) error {
	result, err := db.ExecContext(ctx,
		`DELETE FROM rewards WHERE id = $1 AND restaurant_id = $2`, id, restaurantID)
	if err != nil {
		return fmt.Errorf("failed to delete reward: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (db *DB) IncrementRewardUses(ctx context.Context, id uuid.UUID) error {
	_, err := db.ExecContext(ctx,
		`UPDATE rewards SET current_uses = current_uses + 1, updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to increment reward uses: %w", err)
	}
	return nil
}

// RewardsAnalytics summarizes the reward program for the dashboard.
type RewardsAnalytics struct {
	TotalRewards         int            `json:"total_rewards"`
	ActiveRewards        int            `json:"active_rewards"`
	RewardsByType        map[string]int `json:"rewards_by_type"`
	TotalCouponsIssued   int            `json:"total_coupons_generated"`
	TotalCouponsRedeemed int            `json:"total_coupons_redeemed"`
	RedemptionRate       float64        `json:"redemption_rate"`
}

func (db *DB) GetRewardsAnalytics(ctx context.Context, restaurantID uuid.UUID) (*RewardsAnalytics, error) {
	analytics := &RewardsAnalytics{RewardsByType: map[string]int{}}

	err := db.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE is_active) FROM rewards WHERE restaurant_id = $1
	`, restaurantID).Scan(&analytics.TotalRewards, &analytics.ActiveRewards)
	if err != nil {
		return nil, fmt.Errorf("failed to count rewards: %w", err)
	}

	rows, err := db.QueryContext(ctx, `
		SELECT reward_type, COUNT(*) FROM rewards WHERE restaurant_id = $1 GROUP BY reward_type
	`, restaurantID)
	if err != nil {
		return nil, fmt.Errorf("failed to group rewards by type: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var rewardType string
		var count int
		if err := rows.Scan(&rewardType, &count); err != nil {
			return nil, fmt.Errorf("failed to scan reward type count: %w", err)
		}
		analytics.RewardsByType[rewardType] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	err = db.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE status = 'redeemed') FROM coupons WHERE restaurant_id = $1
	`, restaurantID).Scan(&analytics.TotalCouponsIssued, &analytics.TotalCouponsRedeemed)
	if err != nil {
		return nil, fmt.Errorf("failed to count coupons: %w", err)
	}

	if analytics.TotalCouponsIssued > 0 {
		analytics.RedemptionRate = float64(analytics.TotalCouponsRedeemed) / float64(analytics.TotalCouponsIssued) * 100
	}
	return analytics, nil
}
