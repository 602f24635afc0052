package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	RestaurantID *uuid.UUID `json:"restaurant_id" db:"restaurant_id"`
	Phone        string     `json:"phone" db:"phone"`
	FullName     *string    `json:"full_name" db:"full_name"`
	PasswordHash *string    `json:"-" db:"password_hash"`
	Role         string     `json:"role" db:"role"`
	IsActive     bool       `json:"is_active" db:"is_active"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
}

func (User) TableName() string {
	return "users"
}

func (User) CreateTableSQL() string {
	return `
	CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		restaurant_id UUID REFERENCES restaurants(id) ON DELETE SET NULL,
		phone TEXT NOT NULL UNIQUE,
		full_name TEXT,
		password_hash TEXT,
		role TEXT DEFAULT 'staff' CHECK (role IN ('staff', 'admin')),
		is_active BOOLEAN DEFAULT TRUE,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT now()
	);

	CREATE INDEX IF NOT EXISTS idx_users_phone ON users(phone);
	CREATE INDEX IF NOT EXISTS idx_users_restaurant_id ON users(restaurant_id);
	`
}
