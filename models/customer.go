package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	SegmentNew     = "new"
	SegmentRegular = "regular"
	SegmentVIP     = "vip"
)

const AnonymousCustomerName = "Anonymous Customer"

type Customer struct {
	ID              uuid.UUID  `json:"id" db:"id"`
	RestaurantID    uuid.UUID  `json:"restaurant_id" db:"restaurant_id"`
	Name            string     `json:"name" db:"name"`
	Email           *string    `json:"email" db:"email"`
	Phone           *string    `json:"phone" db:"phone"`
	CPF             *string    `json:"cpf" db:"cpf"`
	Whatsapp        *string    `json:"whatsapp" db:"whatsapp"`
	Source          string     `json:"source" db:"source"`
	TotalVisits     int        `json:"total_visits" db:"total_visits"`
	TotalSpent      float64    `json:"total_spent" db:"total_spent"`
	LoyaltyPoints   int        `json:"loyalty_points" db:"loyalty_points"`
	CustomerSegment string     `json:"customer_segment" db:"customer_segment"`
	LastVisit       *time.Time `json:"last_visit" db:"last_visit"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at" db:"updated_at"`
}

// SegmentForVisits derives the customer segment from the visit count.
func SegmentForVisits(totalVisits int) string {
	switch {
	case totalVisits >= 10:
		return SegmentVIP
	case totalVisits >= 3:
		return SegmentRegular
	default:
		return SegmentNew
	}
}

func (Customer) TableName() string {
	return "customers"
}

func (Customer) CreateTableSQL() string {
	return `
	CREATE TABLE IF NOT EXISTS customers (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		restaurant_id UUID NOT NULL REFERENCES restaurants(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		email TEXT,
		phone TEXT,
		cpf TEXT,
		whatsapp TEXT,
		source TEXT DEFAULT 'manual',
		total_visits INTEGER NOT NULL DEFAULT 0,
		total_spent NUMERIC(10,2) NOT NULL DEFAULT 0,
		loyalty_points INTEGER NOT NULL DEFAULT 0 CHECK (loyalty_points >= 0),
		customer_segment TEXT NOT NULL DEFAULT 'new' CHECK (customer_segment IN ('new', 'regular', 'vip')),
		last_visit TIMESTAMP WITH TIME ZONE,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT now(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT now()
	);

	CREATE INDEX IF NOT EXISTS idx_customers_restaurant_id ON customers(restaurant_id);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_customers_restaurant_phone ON customers(restaurant_id, phone) WHERE phone IS NOT NULL;
	CREATE UNIQUE INDEX IF NOT EXISTS idx_customers_restaurant_cpf ON customers(restaurant_id, cpf) WHERE cpf IS NOT NULL;
	`
}
