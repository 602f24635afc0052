package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"tably-server/models"

	"github.com/google/uuid"
)

// WhatsappClient talks to an Evolution-style WhatsApp gateway. Each restaurant
// carries its own gateway credentials, so the client is stateless.
type WhatsappClient struct {
	httpClient *http.Client
}

func NewWhatsappClient() *WhatsappClient {
	return &WhatsappClient{
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

type whatsappSendRequest struct {
	Number string `json:"number"`
	Text   string `json:"text"`
}

type whatsappSendResponse struct {
	Key struct {
		ID string `json:"id"`
	} `json:"key"`
}

// Send posts a text message through the gateway and returns the provider
// message id on success.
func (c *WhatsappClient) Send(ctx context.Context, apiURL, apiKey, instanceID, phone, text string) (string, error) {
	payload, err := json.Marshal(whatsappSendRequest{Number: phone, Text: text})
	if err != nil {
		return "", fmt.Errorf("failed to encode whatsapp payload: %w", err)
	}

	url := fmt.Sprintf("%s/message/sendText/%s", apiURL, instanceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build whatsapp request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("whatsapp request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("whatsapp gateway returned status %d", resp.StatusCode)
	}

	var body whatsappSendResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("failed to decode whatsapp response: %w", err)
	}
	return body.Key.ID, nil
}

// WhatsappNotifier sends reward messages through the restaurant's gateway and
// records every attempt in whatsapp_messages. Delivery is best-effort: failures
// are logged and recorded with status failed, never returned.
type WhatsappNotifier struct {
	client   *WhatsappClient
	messages MessageStore
}

func NewWhatsappNotifier(client *WhatsappClient, messages MessageStore) *WhatsappNotifier {
	return &WhatsappNotifier{client: client, messages: messages}
}

func (n *WhatsappNotifier) Notify(ctx context.Context, restaurant *models.Restaurant, customerID *uuid.UUID, phone, message, messageType string) {
	if phone == "" {
		return
	}
	if restaurant.WhatsappAPIURL == nil || restaurant.WhatsappAPIKey == nil || restaurant.WhatsappInstanceID == nil {
		log.Printf("Whatsapp not configured for restaurant %s, skipping message", restaurant.ID)
		return
	}

	record := models.WhatsappMessage{
		RestaurantID: restaurant.ID,
		CustomerID:   customerID,
		PhoneNumber:  phone,
		MessageText:  message,
		MessageType:  messageType,
		Status:       "sent",
	}

	messageID, err := n.client.Send(ctx, *restaurant.WhatsappAPIURL, *restaurant.WhatsappAPIKey, *restaurant.WhatsappInstanceID, phone, message)
	if err != nil {
		log.Printf("Failed to send whatsapp message to %s: %v", phone, err)
		record.Status = "failed"
	} else {
		record.WhatsappMessageID = &messageID
	}

	if err := n.messages.CreateWhatsappMessage(ctx, &record); err != nil {
		log.Printf("Failed to record whatsapp message: %v", err)
	}
}
