package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	CouponStatusActive    = "active"
	CouponStatusRedeemed  = "redeemed"
	CouponStatusExpired   = "expired"
	CouponStatusCancelled = "cancelled"
)

type Coupon struct {
	ID             uuid.UUID  `json:"id" db:"id"`
	Code           string     `json:"code" db:"code"`
	RestaurantID   uuid.UUID  `json:"restaurant_id" db:"restaurant_id"`
	CustomerID     uuid.UUID  `json:"customer_id" db:"customer_id"`
	RewardID       uuid.UUID  `json:"reward_id" db:"reward_id"`
	Title          string     `json:"title" db:"title"`
	Description    *string    `json:"description" db:"description"`
	Value          float64    `json:"value" db:"value"`
	RewardType     string     `json:"reward_type" db:"reward_type"`
	VisitMilestone *int       `json:"visit_milestone" db:"visit_milestone"`
	Status         string     `json:"status" db:"status"`
	ExpiresAt      *time.Time `json:"expires_at" db:"expires_at"`
	RedeemedAt     *time.Time `json:"redeemed_at" db:"redeemed_at"`
	CancelledAt    *time.Time `json:"cancelled_at" db:"cancelled_at"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
}

// Usable reports whether the coupon can still be presented at check-in or redeemed.
func (c *Coupon) Usable(now time.Time) bool {
	if c.Status != CouponStatusActive {
		return false
	}
	if c.ExpiresAt != nil && now.After(*c.ExpiresAt) {
		return false
	}
	return true
}

func (Coupon) TableName() string {
	return "coupons"
}

// The partial unique index on (customer_id, reward_id, visit_milestone) is what
// makes milestone issuance idempotent: a concurrent duplicate insert fails with
// 23505 and the caller returns the existing coupon instead.
func (Coupon) CreateTableSQL() string {
	return `
	CREATE TABLE IF NOT EXISTS coupons (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		code TEXT NOT NULL UNIQUE,
		restaurant_id UUID NOT NULL REFERENCES restaurants(id) ON DELETE CASCADE,
		customer_id UUID NOT NULL REFERENCES customers(id) ON DELETE CASCADE,
		reward_id UUID NOT NULL REFERENCES rewards(id) ON DELETE CASCADE,
		title TEXT NOT NULL,
		description TEXT,
		value NUMERIC(10,2) DEFAULT 0,
		reward_type TEXT NOT NULL,
		visit_milestone INTEGER,
		status TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'redeemed', 'expired', 'cancelled')),
		expires_at TIMESTAMP WITH TIME ZONE,
		redeemed_at TIMESTAMP WITH TIME ZONE,
		cancelled_at TIMESTAMP WITH TIME ZONE,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT now(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT now()
	);

	CREATE INDEX IF NOT EXISTS idx_coupons_restaurant_id ON coupons(restaurant_id);
	CREATE INDEX IF NOT EXISTS idx_coupons_customer_id ON coupons(customer_id);
	CREATE INDEX IF NOT EXISTS idx_coupons_code ON coupons(code);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_coupons_milestone ON coupons(customer_id, reward_id, visit_milestone) WHERE visit_milestone IS NOT NULL;
	`
}
