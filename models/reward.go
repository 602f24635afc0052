package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	RewardTypeDiscountPercentage = "discount_percentage"
	RewardTypeDiscountFixed      = "discount_fixed"
	RewardTypeFreeItem           = "free_item"
	RewardTypePointsMultiplier   = "points_multiplier"
	RewardTypeCashback           = "cashback"
	RewardTypeSpinTheWheel       = "spin_the_wheel"
)

type Reward struct {
	ID                 uuid.UUID   `json:"id" db:"id"`
	RestaurantID       uuid.UUID   `json:"restaurant_id" db:"restaurant_id"`
	CustomerID         *uuid.UUID  `json:"customer_id" db:"customer_id"`
	Title              string      `json:"title" db:"title"`
	Description        *string     `json:"description" db:"description"`
	RewardType         string      `json:"reward_type" db:"reward_type"`
	Value              float64     `json:"value" db:"value"`
	WheelConfig        WheelConfig `json:"wheel_config" db:"wheel_config"`
	IsActive           bool        `json:"is_active" db:"is_active"`
	ValidFrom          *time.Time  `json:"valid_from" db:"valid_from"`
	ValidUntil         *time.Time  `json:"valid_until" db:"valid_until"`
	TotalUsesLimit     *int        `json:"total_uses_limit" db:"total_uses_limit"`
	CurrentUses        int         `json:"current_uses" db:"current_uses"`
	MaxUsesPerCustomer *int        `json:"max_uses_per_customer" db:"max_uses_per_customer"`
	CouponValidityDays *int        `json:"coupon_validity_days" db:"coupon_validity_days"`
	DaysValid          *int        `json:"days_valid" db:"days_valid"`
	CreatedBy          *uuid.UUID  `json:"created_by" db:"created_by"`
	CreatedAt          time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time   `json:"updated_at" db:"updated_at"`
}

// WheelConfig holds the prize items of a spin_the_wheel reward.
type WheelConfig struct {
	Items []WheelItem `json:"items"`
}

// WheelItem is one wheel slice. Probability is a relative weight, the set does
// not have to sum to 100. Items with zero probability are never selected.
type WheelItem struct {
	ID          string     `json:"id,omitempty"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Probability float64    `json:"probability"`
	Color       string     `json:"color,omitempty"`
	Value       float64    `json:"value,omitempty"`
	RewardType  string     `json:"reward_type,omitempty"`
	RewardID    *uuid.UUID `json:"reward_id,omitempty"`
}

// EnsureItemIDs assigns an id to wheel items that were created without one.
func (wc *WheelConfig) EnsureItemIDs() {
	for i := range wc.Items {
		if wc.Items[i].ID == "" {
			wc.Items[i].ID = uuid.NewString()
		}
	}
}

// Value stores NULL for rewards without a wheel so the column stays nullable.
func (wc WheelConfig) Value() (driver.Value, error) {
	if len(wc.Items) == 0 {
		return nil, nil
	}
	return json.Marshal(wc)
}

func (wc *WheelConfig) Scan(src interface{}) error {
	if src == nil {
		return nil
	}
	data, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("unexpected type %T for wheel config", src)
	}
	return json.Unmarshal(data, wc)
}

// IsValid reports whether the reward can currently issue coupons.
func (r *Reward) IsValid(now time.Time) bool {
	if !r.IsActive {
		return false
	}
	if r.ValidFrom != nil && now.Before(*r.ValidFrom) {
		return false
	}
	if r.ValidUntil != nil && now.After(*r.ValidUntil) {
		return false
	}
	if r.TotalUsesLimit != nil && r.CurrentUses >= *r.TotalUsesLimit {
		return false
	}
	return true
}

func (Reward) TableName() string {
	return "rewards"
}

func (Reward) CreateTableSQL() string {
	return `
	CREATE TABLE IF NOT EXISTS rewards (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		restaurant_id UUID NOT NULL REFERENCES restaurants(id) ON DELETE CASCADE,
		customer_id UUID REFERENCES customers(id) ON DELETE SET NULL,
		title TEXT NOT NULL,
		description TEXT,
		reward_type TEXT NOT NULL CHECK (reward_type IN ('discount_percentage', 'discount_fixed', 'free_item', 'points_multiplier', 'cashback', 'spin_the_wheel')),
		value NUMERIC(10,2) DEFAULT 0,
		wheel_config JSONB,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		valid_from TIMESTAMP WITH TIME ZONE,
		valid_until TIMESTAMP WITH TIME ZONE,
		total_uses_limit INTEGER,
		current_uses INTEGER NOT NULL DEFAULT 0,
		max_uses_per_customer INTEGER,
		coupon_validity_days INTEGER,
		days_valid INTEGER,
		created_by UUID REFERENCES users(id),
		created_at TIMESTAMP WITH TIME ZONE DEFAULT now(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT now()
	);

	CREATE INDEX IF NOT EXISTS idx_rewards_restaurant_id ON rewards(restaurant_id);
	CREATE INDEX IF NOT EXISTS idx_rewards_reward_type ON rewards(reward_type);
	`
}
