package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	IdentificationByPhone = "phone"
	IdentificationByCPF   = "cpf"
)

const (
	RestrictionUnlimited   = "unlimited"
	RestrictionOncePerDay  = "1_per_day"
	RestrictionOncePer6Hrs = "1_per_6_hours"
)

const DefaultCheckinDurationMinutes = 1440

type Restaurant struct {
	ID                 uuid.UUID          `json:"id" db:"id"`
	Name               string             `json:"name" db:"name"`
	Slug               string             `json:"slug" db:"slug"`
	WhatsappAPIURL     *string            `json:"whatsapp_api_url" db:"whatsapp_api_url"`
	WhatsappAPIKey     *string            `json:"-" db:"whatsapp_api_key"`
	WhatsappInstanceID *string            `json:"whatsapp_instance_id" db:"whatsapp_instance_id"`
	Settings           RestaurantSettings `json:"settings" db:"settings"`
	IsActive           bool               `json:"is_active" db:"is_active"`
	CreatedAt          time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at" db:"updated_at"`
}

// RestaurantSettings is the typed form of the restaurants.settings JSONB column.
type RestaurantSettings struct {
	CheckinProgram CheckinProgramSettings `json:"checkin_program"`
}

// CheckinProgramSettings configures the check-in and visit-reward program of one
// restaurant. It is validated when written, so readers can trust the values after
// Normalize has applied defaults.
type CheckinProgramSettings struct {
	Enabled                 bool         `json:"enabled"`
	CheckinDurationMinutes  int          `json:"checkin_duration_minutes"`
	IdentificationMethod    string       `json:"identification_method"`
	RequireCouponForCheckin bool         `json:"require_coupon_for_checkin"`
	CheckinTimeRestriction  string       `json:"checkin_time_restriction"`
	PointsPerCheckin        int          `json:"points_per_checkin"`
	RewardsPerVisit         []RewardRule `json:"rewards_per_visit"`
}

// RewardRule grants a reward when a customer's visit count hits VisitCount exactly.
type RewardRule struct {
	VisitCount      int       `json:"visit_count"`
	RewardID        uuid.UUID `json:"reward_id"`
	MessageTemplate string    `json:"message_template"`
}

// Normalize fills in defaults for zero-valued fields.
func (s *CheckinProgramSettings) Normalize() {
	if s.CheckinDurationMinutes <= 0 {
		s.CheckinDurationMinutes = DefaultCheckinDurationMinutes
	}
	if s.IdentificationMethod == "" {
		s.IdentificationMethod = IdentificationByPhone
	}
	if s.CheckinTimeRestriction == "" {
		s.CheckinTimeRestriction = RestrictionUnlimited
	}
	if s.PointsPerCheckin < 0 {
		s.PointsPerCheckin = 0
	}
}

// Validate rejects settings that would misconfigure the check-in flow. Called on
// every settings write so the rest of the code never sees invalid enum values.
func (s *CheckinProgramSettings) Validate() error {
	switch s.IdentificationMethod {
	case IdentificationByPhone, IdentificationByCPF:
	default:
		return fmt.Errorf("invalid identification_method: %q", s.IdentificationMethod)
	}

	switch s.CheckinTimeRestriction {
	case RestrictionUnlimited, RestrictionOncePerDay, RestrictionOncePer6Hrs:
	default:
		return fmt.Errorf("invalid checkin_time_restriction: %q", s.CheckinTimeRestriction)
	}

	if s.CheckinDurationMinutes <= 0 {
		return fmt.Errorf("checkin_duration_minutes must be positive, got %d", s.CheckinDurationMinutes)
	}

	for i, rule := range s.RewardsPerVisit {
		if rule.VisitCount <= 0 {
			return fmt.Errorf("rewards_per_visit[%d]: visit_count must be positive, got %d", i, rule.VisitCount)
		}
		if rule.RewardID == uuid.Nil {
			return fmt.Errorf("rewards_per_visit[%d]: reward_id is required", i)
		}
	}

	return nil
}

// RestrictionHours returns the anti-fraud window in hours, 0 for unlimited.
func (s CheckinProgramSettings) RestrictionHours() float64 {
	switch s.CheckinTimeRestriction {
	case RestrictionOncePerDay:
		return 24
	case RestrictionOncePer6Hrs:
		return 6
	default:
		return 0
	}
}

// Value implements driver.Valuer so settings are stored as JSONB.
func (s RestaurantSettings) Value() (driver.Value, error) {
	return json.Marshal(s)
}

// Scan implements sql.Scanner for the settings JSONB column.
func (s *RestaurantSettings) Scan(src interface{}) error {
	if src == nil {
		*s = RestaurantSettings{}
		return nil
	}
	data, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("unexpected type %T for restaurant settings", src)
	}
	return json.Unmarshal(data, s)
}

func (Restaurant) TableName() string {
	return "restaurants"
}

func (Restaurant) CreateTableSQL() string {
	return `
	CREATE TABLE IF NOT EXISTS restaurants (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		name TEXT NOT NULL,
		slug TEXT NOT NULL UNIQUE,
		whatsapp_api_url TEXT,
		whatsapp_api_key TEXT,
		whatsapp_instance_id TEXT,
		settings JSONB NOT NULL DEFAULT '{}',
		is_active BOOLEAN DEFAULT TRUE,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT now(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT now()
	);

	CREATE INDEX IF NOT EXISTS idx_restaurants_slug ON restaurants(slug);
	`
}
