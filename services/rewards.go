package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"tably-server/database"
	"tably-server/models"
	"tably-server/utils"

	"github.com/google/uuid"
)

const defaultRewardMessageTemplate = "Congratulations {{customer_name}}! Your visit number {{visit_count}} at {{restaurant_name}} earned you: {{reward_title}}. Your coupon code is {{coupon_code}}."

const maxCouponCodeAttempts = 5

// RewardOutcome describes what a milestone produced: either an issued coupon or
// a pending wheel spin the customer resolves later.
type RewardOutcome struct {
	RewardID       uuid.UUID           `json:"reward_id"`
	CustomerID     uuid.UUID           `json:"customer_id"`
	RewardTitle    string              `json:"reward_title"`
	RewardType     string              `json:"reward_type"`
	VisitMilestone int                 `json:"visit_milestone"`
	Coupon         *models.Coupon      `json:"coupon,omitempty"`
	PendingSpin    bool                `json:"pending_spin,omitempty"`
	WheelConfig    *models.WheelConfig `json:"wheel_config,omitempty"`
	Message        string              `json:"message,omitempty"`
}

type RewardService struct {
	rewards   RewardStore
	coupons   CouponStore
	customers CustomerStore
	notifier  Notifier
	now       func() time.Time
	randFloat func() float64
}

func NewRewardService(rewards RewardStore, coupons CouponStore, customers CustomerStore, notifier Notifier) *RewardService {
	return &RewardService{
		rewards:   rewards,
		coupons:   coupons,
		customers: customers,
		notifier:  notifier,
		now:       time.Now,
		randFloat: rand.Float64,
	}
}

// EvaluateVisitMilestones checks the restaurant's visit rules against the
// customer's new visit count and issues the matching reward, if any. Rules are
// tried in configured order; a rule that cannot produce an outcome (missing
// reward, milestone already rewarded, generation failure) is skipped and the
// next matching rule is tried. The first rule that produces an outcome wins.
// A nil return means no rule produced anything. Rule failures are logged and
// swallowed so a misconfigured rule can never fail a check-in.
func (s *RewardService) EvaluateVisitMilestones(ctx context.Context, restaurant *models.Restaurant, customer *models.Customer, totalVisits int, extraValidityDays int) *RewardOutcome {
	for _, rule := range restaurant.Settings.CheckinProgram.RewardsPerVisit {
		if rule.VisitCount != totalVisits {
			continue
		}

		outcome, err := s.applyRule(ctx, restaurant, customer, rule, totalVisits, extraValidityDays)
		if err != nil {
			log.Printf("Failed to apply visit reward rule (visit %d, reward %s) for customer %s: %v",
				rule.VisitCount, rule.RewardID, customer.ID, err)
			continue
		}
		if outcome == nil {
			continue
		}
		return outcome
	}
	return nil
}

func (s *RewardService) applyRule(ctx context.Context, restaurant *models.Restaurant, customer *models.Customer, rule models.RewardRule, totalVisits, extraValidityDays int) (*RewardOutcome, error) {
	reward, err := s.rewards.GetReward(ctx, rule.RewardID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			log.Printf("Visit reward rule references missing reward %s, skipping", rule.RewardID)
			return nil, nil
		}
		return nil, err
	}

	// Already rewarded for this milestone (e.g. a retried check-in).
	existing, err := s.coupons.FindMilestoneCoupon(ctx, customer.ID, reward.ID, totalVisits)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		log.Printf("Customer %s already has a coupon for reward %s at visit %d, skipping", customer.ID, reward.ID, totalVisits)
		return nil, nil
	}

	outcome := &RewardOutcome{
		RewardID:       reward.ID,
		CustomerID:     customer.ID,
		RewardTitle:    reward.Title,
		RewardType:     reward.RewardType,
		VisitMilestone: totalVisits,
	}

	if reward.RewardType == models.RewardTypeSpinTheWheel {
		// The coupon is only issued once the customer spins; until then the
		// milestone is a pending spin descriptor carrying the wheel to render.
		outcome.PendingSpin = true
		outcome.WheelConfig = &reward.WheelConfig
		outcome.Message = s.renderTemplate(rule.MessageTemplate, restaurant, customer, reward, "", totalVisits)
		return outcome, nil
	}

	coupon, created, err := s.issueCoupon(ctx, restaurant, customer, reward, totalVisits, extraValidityDays)
	if err != nil {
		return nil, err
	}
	outcome.Coupon = coupon
	outcome.Message = s.renderTemplate(rule.MessageTemplate, restaurant, customer, reward, coupon.Code, totalVisits)

	if created && s.notifier != nil && customer.Phone != nil {
		s.notifier.Notify(ctx, restaurant, &customer.ID, *customer.Phone, outcome.Message, models.MessageTypeCheckinReward)
	}
	return outcome, nil
}

// issueCoupon creates a milestone coupon for the reward. The bool result is
// false when a concurrent check-in already issued the coupon, in which case the
// existing coupon is returned.
func (s *RewardService) issueCoupon(ctx context.Context, restaurant *models.Restaurant, customer *models.Customer, reward *models.Reward, visitMilestone, extraValidityDays int) (*models.Coupon, bool, error) {
	now := s.now()

	if !reward.IsValid(now) {
		return nil, false, fmt.Errorf("reward %s is not currently valid", reward.ID)
	}
	if reward.MaxUsesPerCustomer != nil {
		used, err := s.coupons.CountCustomerCoupons(ctx, customer.ID, reward.ID)
		if err != nil {
			return nil, false, err
		}
		if used >= *reward.MaxUsesPerCustomer {
			return nil, false, ErrRewardNotUsable
		}
	}

	coupon := models.Coupon{
		RestaurantID:   restaurant.ID,
		CustomerID:     customer.ID,
		RewardID:       reward.ID,
		Title:          reward.Title,
		Description:    reward.Description,
		Value:          reward.Value,
		RewardType:     reward.RewardType,
		VisitMilestone: &visitMilestone,
		Status:         models.CouponStatusActive,
		ExpiresAt:      couponExpiry(now, reward, extraValidityDays),
	}

	var created bool
	var err error
	for attempt := 0; attempt < maxCouponCodeAttempts; attempt++ {
		coupon.Code = utils.GenerateCouponCode(customer.Name)
		created, err = s.coupons.CreateCoupon(ctx, &coupon)
		if errors.Is(err, database.ErrCouponCodeCollision) {
			continue
		}
		break
	}
	if err != nil {
		return nil, false, err
	}

	if created {
		if err := s.rewards.IncrementRewardUses(ctx, reward.ID); err != nil {
			log.Printf("Failed to increment uses for reward %s: %v", reward.ID, err)
		}
	}
	return &coupon, created, nil
}

// couponExpiry resolves the coupon expiry from the most specific source that is
// set: per-issue extra validity days, then the reward's coupon_validity_days,
// then days_valid, then the reward's own valid_until.
func couponExpiry(now time.Time, reward *models.Reward, extraValidityDays int) *time.Time {
	if extraValidityDays > 0 {
		t := now.AddDate(0, 0, extraValidityDays)
		return &t
	}
	if reward.CouponValidityDays != nil && *reward.CouponValidityDays > 0 {
		t := now.AddDate(0, 0, *reward.CouponValidityDays)
		return &t
	}
	if reward.DaysValid != nil && *reward.DaysValid > 0 {
		t := now.AddDate(0, 0, *reward.DaysValid)
		return &t
	}
	if reward.ValidUntil != nil {
		t := *reward.ValidUntil
		return &t
	}
	return nil
}

// SpinResult is what a resolved wheel spin returns to the customer.
type SpinResult struct {
	Item   models.WheelItem `json:"item"`
	Index  int              `json:"index"`
	Coupon *models.Coupon   `json:"coupon,omitempty"`
}

// ResolveSpin spins the wheel of a spin_the_wheel reward and issues the coupon
// for the winning item. The milestone unique index makes it idempotent: a
// second spin for the same milestone returns the already-issued coupon without
// spinning again.
func (s *RewardService) ResolveSpin(ctx context.Context, restaurant *models.Restaurant, customerID, rewardID uuid.UUID, visitMilestone int) (*SpinResult, error) {
	customer, err := s.customers.GetCustomer(ctx, customerID, restaurant.ID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	reward, err := s.rewards.GetReward(ctx, rewardID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if reward.RestaurantID != restaurant.ID {
		return nil, ErrNotFound
	}
	if reward.RewardType != models.RewardTypeSpinTheWheel {
		return nil, ErrNotSpinTheWheel
	}

	if existing, err := s.coupons.FindMilestoneCoupon(ctx, customerID, rewardID, visitMilestone); err == nil {
		return &SpinResult{Coupon: existing, Index: -1}, nil
	} else if !errors.Is(err, database.ErrNotFound) {
		return nil, err
	}

	if !reward.IsValid(s.now()) {
		return nil, ErrRewardNotUsable
	}

	item, idx, err := SpinWheel(reward.WheelConfig, s.randFloat)
	if err != nil {
		return nil, err
	}

	now := s.now()
	coupon := models.Coupon{
		RestaurantID:   restaurant.ID,
		CustomerID:     customerID,
		RewardID:       rewardID,
		Title:          item.Title,
		Value:          item.Value,
		RewardType:     item.RewardType,
		VisitMilestone: &visitMilestone,
		Status:         models.CouponStatusActive,
		ExpiresAt:      couponExpiry(now, reward, 0),
	}
	if item.Description != "" {
		coupon.Description = &item.Description
	}
	if coupon.RewardType == "" {
		coupon.RewardType = models.RewardTypeSpinTheWheel
	}

	var created bool
	for attempt := 0; attempt < maxCouponCodeAttempts; attempt++ {
		coupon.Code = utils.GenerateCouponCode(customer.Name)
		created, err = s.coupons.CreateCoupon(ctx, &coupon)
		if errors.Is(err, database.ErrCouponCodeCollision) {
			continue
		}
		break
	}
	if err != nil {
		return nil, err
	}
	if !created {
		// Lost the race to a concurrent spin; the stored coupon is the result.
		return &SpinResult{Coupon: &coupon, Index: -1}, nil
	}

	if err := s.rewards.IncrementRewardUses(ctx, rewardID); err != nil {
		log.Printf("Failed to increment uses for reward %s: %v", rewardID, err)
	}

	if s.notifier != nil && customer.Phone != nil {
		message := s.renderTemplate("", restaurant, customer, reward, coupon.Code, visitMilestone)
		s.notifier.Notify(ctx, restaurant, &customer.ID, *customer.Phone, message, models.MessageTypeCheckinReward)
	}

	return &SpinResult{Item: item, Index: idx, Coupon: &coupon}, nil
}

func (s *RewardService) renderTemplate(template string, restaurant *models.Restaurant, customer *models.Customer, reward *models.Reward, couponCode string, visitCount int) string {
	if template == "" {
		template = defaultRewardMessageTemplate
	}
	replacer := strings.NewReplacer(
		"{{customer_name}}", customer.Name,
		"{{restaurant_name}}", restaurant.Name,
		"{{reward_title}}", reward.Title,
		"{{coupon_code}}", couponCode,
		"{{visit_count}}", strconv.Itoa(visitCount),
	)
	return replacer.Replace(template)
}
