package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	MessageTypeCheckinReward = "checkin_reward"
	MessageTypeManual        = "manual"
)

type WhatsappMessage struct {
	ID                uuid.UUID  `json:"id" db:"id"`
	RestaurantID      uuid.UUID  `json:"restaurant_id" db:"restaurant_id"`
	CustomerID        *uuid.UUID `json:"customer_id" db:"customer_id"`
	PhoneNumber       string     `json:"phone_number" db:"phone_number"`
	MessageText       string     `json:"message_text" db:"message_text"`
	MessageType       string     `json:"message_type" db:"message_type"`
	Status            string     `json:"status" db:"status"`
	WhatsappMessageID *string    `json:"whatsapp_message_id" db:"whatsapp_message_id"`
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`
}

func (WhatsappMessage) TableName() string {
	return "whatsapp_messages"
}

func (WhatsappMessage) CreateTableSQL() string {
	return `
	CREATE TABLE IF NOT EXISTS whatsapp_messages (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		restaurant_id UUID NOT NULL REFERENCES restaurants(id) ON DELETE CASCADE,
		customer_id UUID REFERENCES customers(id) ON DELETE SET NULL,
		phone_number TEXT NOT NULL,
		message_text TEXT NOT NULL,
		message_type TEXT NOT NULL DEFAULT 'manual',
		status TEXT NOT NULL DEFAULT 'sent',
		whatsapp_message_id TEXT,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT now()
	);

	CREATE INDEX IF NOT EXISTS idx_whatsapp_messages_restaurant_id ON whatsapp_messages(restaurant_id);
	CREATE INDEX IF NOT EXISTS idx_whatsapp_messages_phone_number ON whatsapp_messages(phone_number);
	`
}
