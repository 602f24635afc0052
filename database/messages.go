package database

import (
	"context"
	"fmt"

	"tably-server/models"
)

func (db *DB) CreateWhatsappMessage(ctx context.Context, msg *models.WhatsappMessage) error {
	query := `
		INSERT INTO whatsapp_messages (restaurant_id, customer_id, phone_number, message_text, message_type, status, whatsapp_message_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`
	err := db.QueryRowContext(ctx, query,
		msg.RestaurantID, msg.CustomerID, msg.PhoneNumber, msg.MessageText,
		msg.MessageType, msg.Status, msg.WhatsappMessageID,
	).Scan(&msg.ID, &msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record whatsapp message: %w", err)
	}
	return nil
}
