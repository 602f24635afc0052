package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	CheckinStatusActive    = "active"
	CheckinStatusCompleted = "completed"
	CheckinStatusCancelled = "cancelled"
)

type Checkin struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	CustomerID   uuid.UUID  `json:"customer_id" db:"customer_id"`
	RestaurantID uuid.UUID  `json:"restaurant_id" db:"restaurant_id"`
	TableNumber  *string    `json:"table_number" db:"table_number"`
	CouponID     *uuid.UUID `json:"coupon_id" db:"coupon_id"`
	CheckinTime  time.Time  `json:"checkin_time" db:"checkin_time"`
	CheckoutTime *time.Time `json:"checkout_time" db:"checkout_time"`
	ExpiresAt    time.Time  `json:"expires_at" db:"expires_at"`
	Status       string     `json:"status" db:"status"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}

func (Checkin) TableName() string {
	return "checkins"
}

// The partial unique index is what enforces "at most one active session per
// customer per restaurant" under concurrent inserts. Stale active rows are
// completed before insert so an expired session never blocks a new one.
func (Checkin) CreateTableSQL() string {
	return `
	CREATE TABLE IF NOT EXISTS checkins (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		customer_id UUID NOT NULL REFERENCES customers(id) ON DELETE CASCADE,
		restaurant_id UUID NOT NULL REFERENCES restaurants(id) ON DELETE CASCADE,
		table_number TEXT,
		coupon_id UUID,
		checkin_time TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now(),
		checkout_time TIMESTAMP WITH TIME ZONE,
		expires_at TIMESTAMP WITH TIME ZONE NOT NULL,
		status TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'completed', 'cancelled')),
		created_at TIMESTAMP WITH TIME ZONE DEFAULT now(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT now()
	);

	CREATE INDEX IF NOT EXISTS idx_checkins_restaurant_id ON checkins(restaurant_id);
	CREATE INDEX IF NOT EXISTS idx_checkins_customer_id ON checkins(customer_id);
	CREATE INDEX IF NOT EXISTS idx_checkins_checkin_time ON checkins(checkin_time);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_checkins_one_active ON checkins(customer_id, restaurant_id) WHERE status = 'active';
	`
}
