package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"tably-server/database"
	"tably-server/models"

	"github.com/google/uuid"
)

// CheckinInput is what the public check-in page (or a staff member) submits.
// Staff can address a known customer directly by id; the public flow identifies
// by phone or CPF per the restaurant's configured method.
type CheckinInput struct {
	CustomerID        *uuid.UUID `json:"customer_id"`
	Phone             string     `json:"phone"`
	CPF               string     `json:"cpf"`
	CustomerName      string     `json:"customer_name"`
	TableNumber       string     `json:"table_number"`
	CouponCode        string     `json:"coupon_code"`
	ExtraValidityDays int        `json:"extra_validity_days"`

	source string
}

// CheckinResult bundles everything a successful check-in produced.
type CheckinResult struct {
	Checkin     *models.Checkin  `json:"checkin"`
	Customer    *models.Customer `json:"customer"`
	VisitNumber int              `json:"visit_number"`
	CouponUsed  *models.Coupon   `json:"coupon_used,omitempty"`
	Reward      *RewardOutcome   `json:"reward,omitempty"`
}

type CheckinService struct {
	restaurants RestaurantStore
	customers   CustomerStore
	checkins    CheckinStore
	coupons     CouponStore
	users       UserStore
	rewards     *RewardService
	loyalty     LoyaltyLedger
	events      CheckinEventPublisher
	now         func() time.Time
}

func NewCheckinService(restaurants RestaurantStore, customers CustomerStore, checkins CheckinStore, coupons CouponStore, users UserStore, rewards *RewardService, loyalty LoyaltyLedger, events CheckinEventPublisher) *CheckinService {
	return &CheckinService{
		restaurants: restaurants,
		customers:   customers,
		checkins:    checkins,
		coupons:     coupons,
		users:       users,
		rewards:     rewards,
		loyalty:     loyalty,
		events:      events,
		now:         time.Now,
	}
}

// PublicCheckin handles a self-service check-in reached through the
// restaurant's public slug. The program has to be enabled.
func (s *CheckinService) PublicCheckin(ctx context.Context, slug string, input CheckinInput) (*CheckinResult, error) {
	restaurant, err := s.restaurants.GetRestaurantBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !restaurant.Settings.CheckinProgram.Enabled {
		return nil, ErrModuleDisabled
	}
	input.CustomerID = nil
	input.source = "checkin_qrcode"
	return s.RecordCheckin(ctx, restaurant, input)
}

// RecordCheckin runs the full check-in pipeline for one customer visit:
// identify, register the session, count the visit, then dispense whatever the
// visit earned. Reward and notification failures never fail the check-in.
func (s *CheckinService) RecordCheckin(ctx context.Context, restaurant *models.Restaurant, input CheckinInput) (*CheckinResult, error) {
	settings := restaurant.Settings.CheckinProgram
	settings.Normalize()
	now := s.now()

	customer, err := s.identifyCustomer(ctx, restaurant, settings, input)
	if err != nil {
		return nil, err
	}

	// A live session blocks a second check-in; an expired one does not.
	if _, err := s.checkins.ActiveCheckin(ctx, customer.ID, restaurant.ID); err == nil {
		return nil, ErrDuplicateActiveSession
	} else if !errors.Is(err, database.ErrNotFound) {
		return nil, err
	}

	couponUsed, err := s.resolveCheckinCoupon(ctx, restaurant, settings, input.CouponCode, now)
	if err != nil {
		return nil, err
	}

	if err := s.checkins.ExpireStaleCheckins(ctx, customer.ID, restaurant.ID); err != nil {
		return nil, err
	}

	checkin := &models.Checkin{
		CustomerID:   customer.ID,
		RestaurantID: restaurant.ID,
		CheckinTime:  now,
		ExpiresAt:    now.Add(time.Duration(settings.CheckinDurationMinutes) * time.Minute),
	}
	if input.TableNumber != "" {
		checkin.TableNumber = &input.TableNumber
	}
	if couponUsed != nil {
		checkin.CouponID = &couponUsed.ID
	}
	if err := s.checkins.CreateCheckin(ctx, checkin); err != nil {
		if errors.Is(err, database.ErrDuplicateActiveSession) {
			return nil, ErrDuplicateActiveSession
		}
		return nil, err
	}

	totalVisits, err := s.customers.IncrementVisits(ctx, customer.ID, now)
	if err != nil {
		return nil, err
	}
	customer.TotalVisits = totalVisits
	customer.CustomerSegment = models.SegmentForVisits(totalVisits)
	customer.LastVisit = &now

	if err := s.customers.RefreshCustomerStats(ctx, customer.ID); err != nil {
		log.Printf("Failed to refresh stats for customer %s: %v", customer.ID, err)
	}

	s.logFrequencyWarning(ctx, settings, customer, checkin, now)

	if settings.PointsPerCheckin > 0 {
		if s.loyalty == nil {
			log.Printf("Loyalty ledger not configured, skipping %d points for customer %s", settings.PointsPerCheckin, customer.ID)
		} else if err := s.loyalty.AddLoyaltyPoints(ctx, customer.ID, settings.PointsPerCheckin, "checkin"); err != nil {
			log.Printf("Failed to add loyalty points for customer %s: %v", customer.ID, err)
		}
	}

	result := &CheckinResult{
		Checkin:     checkin,
		Customer:    customer,
		VisitNumber: totalVisits,
		CouponUsed:  couponUsed,
	}
	result.Reward = s.rewards.EvaluateVisitMilestones(ctx, restaurant, customer, totalVisits, input.ExtraValidityDays)

	if s.events != nil {
		event := CheckinEvent{
			CheckinID:    checkin.ID,
			RestaurantID: restaurant.ID,
			CustomerID:   customer.ID,
			VisitNumber:  totalVisits,
			CouponUsed:   couponUsed != nil,
			CheckinTime:  now,
		}
		if err := s.events.PublishCheckin(ctx, event); err != nil {
			log.Printf("Failed to publish checkin event for %s: %v", checkin.ID, err)
		}
	}

	return result, nil
}

// identifyCustomer resolves the submitted identifier to a customer, creating
// one on first visit. A returning anonymous customer who now supplies a name is
// renamed in place.
func (s *CheckinService) identifyCustomer(ctx context.Context, restaurant *models.Restaurant, settings models.CheckinProgramSettings, input CheckinInput) (*models.Customer, error) {
	var customer *models.Customer
	var err error

	if input.CustomerID != nil {
		customer, err = s.customers.GetCustomer(ctx, *input.CustomerID, restaurant.ID)
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrNotFound
		}
		return customer, err
	}

	switch settings.IdentificationMethod {
	case models.IdentificationByCPF:
		if strings.TrimSpace(input.CPF) == "" {
			return nil, ErrMissingIdentifier
		}
		customer, err = s.customers.FindCustomerByCPF(ctx, input.CPF, restaurant.ID)
	default:
		if strings.TrimSpace(input.Phone) == "" {
			return nil, ErrMissingIdentifier
		}
		customer, err = s.customers.FindCustomerByPhone(ctx, input.Phone, restaurant.ID)
	}

	if err != nil && !errors.Is(err, database.ErrNotFound) {
		return nil, err
	}

	if customer == nil {
		name := strings.TrimSpace(input.CustomerName)
		if name == "" {
			name = models.AnonymousCustomerName
		}
		source := input.source
		if source == "" {
			source = "checkin"
		}
		customer = &models.Customer{
			RestaurantID:    restaurant.ID,
			Name:            name,
			Source:          source,
			CustomerSegment: models.SegmentNew,
		}
		if input.Phone != "" {
			customer.Phone = &input.Phone
		}
		if input.CPF != "" {
			customer.CPF = &input.CPF
		}
		if err := s.customers.CreateCustomer(ctx, customer); err != nil {
			return nil, err
		}
		return customer, nil
	}

	if name := strings.TrimSpace(input.CustomerName); name != "" && customer.Name == models.AnonymousCustomerName {
		if err := s.customers.RenameCustomer(ctx, customer.ID, name); err != nil {
			return nil, err
		}
		customer.Name = name
	}
	return customer, nil
}

// resolveCheckinCoupon validates a presented coupon code. A restaurant that
// requires coupons rejects both missing and invalid codes; otherwise an invalid
// code is dropped silently and the check-in proceeds without it.
func (s *CheckinService) resolveCheckinCoupon(ctx context.Context, restaurant *models.Restaurant, settings models.CheckinProgramSettings, code string, now time.Time) (*models.Coupon, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		if settings.RequireCouponForCheckin {
			return nil, ErrCouponRequired
		}
		return nil, nil
	}

	coupon, err := s.coupons.GetCouponByCode(ctx, code, restaurant.ID)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		return nil, err
	}
	if coupon == nil || !coupon.Usable(now) {
		if settings.RequireCouponForCheckin {
			return nil, ErrInvalidCoupon
		}
		log.Printf("Ignoring unusable coupon code %q at restaurant %s", code, restaurant.ID)
		return nil, nil
	}
	return coupon, nil
}

// logFrequencyWarning flags customers checking in faster than the configured
// restriction allows. It only warns: the restriction is advisory and never
// blocks a visit.
func (s *CheckinService) logFrequencyWarning(ctx context.Context, settings models.CheckinProgramSettings, customer *models.Customer, checkin *models.Checkin, now time.Time) {
	hours := settings.RestrictionHours()
	if hours <= 0 {
		return
	}
	previous, err := s.checkins.PreviousCheckin(ctx, customer.ID, checkin.RestaurantID, checkin.ID)
	if err != nil {
		if !errors.Is(err, database.ErrNotFound) {
			log.Printf("Failed to load previous checkin for customer %s: %v", customer.ID, err)
		}
		return
	}
	elapsed := now.Sub(previous.CheckinTime).Hours()
	if elapsed < hours {
		log.Printf("Customer %s checked in again after %.1fh (restriction %s)", customer.ID, elapsed, settings.CheckinTimeRestriction)
	}
}

// Checkout completes an active session. Staff can only close sessions at their
// own restaurant.
func (s *CheckinService) Checkout(ctx context.Context, userID, checkinID uuid.UUID) (*models.Checkin, error) {
	checkin, err := s.checkins.GetCheckin(ctx, checkinID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrForbidden
		}
		return nil, err
	}
	if user.RestaurantID == nil || *user.RestaurantID != checkin.RestaurantID {
		return nil, ErrForbidden
	}

	completed, err := s.checkins.CompleteCheckin(ctx, checkinID, s.now())
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, fmt.Errorf("checkin %s is not active", checkinID)
		}
		return nil, err
	}

	if err := s.customers.RefreshCustomerStats(ctx, completed.CustomerID); err != nil {
		log.Printf("Failed to refresh stats for customer %s: %v", completed.CustomerID, err)
	}
	return completed, nil
}
