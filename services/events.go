package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

const checkinsTopic = "checkins"

// CheckinEvent is the analytics record emitted for every successful check-in.
type CheckinEvent struct {
	CheckinID    uuid.UUID `json:"checkin_id"`
	RestaurantID uuid.UUID `json:"restaurant_id"`
	CustomerID   uuid.UUID `json:"customer_id"`
	VisitNumber  int       `json:"visit_number"`
	CouponUsed   bool      `json:"coupon_used"`
	CheckinTime  time.Time `json:"checkin_time"`
}

// KafkaCheckinPublisher writes check-in events keyed by restaurant so events
// for one restaurant stay ordered within a partition.
type KafkaCheckinPublisher struct {
	writer *kafka.Writer
}

func NewKafkaCheckinPublisher(broker string) *KafkaCheckinPublisher {
	return &KafkaCheckinPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(broker),
			Topic:        checkinsTopic,
			Balancer:     &kafka.Hash{},
			WriteTimeout: 5 * time.Second,
			RequiredAcks: kafka.RequireOne,
		},
	}
}

func (p *KafkaCheckinPublisher) PublishCheckin(ctx context.Context, event CheckinEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode checkin event: %w", err)
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.RestaurantID.String()),
		Value: value,
	})
	if err != nil {
		return fmt.Errorf("failed to publish checkin event: %w", err)
	}
	return nil
}

func (p *KafkaCheckinPublisher) Close() error {
	return p.writer.Close()
}
