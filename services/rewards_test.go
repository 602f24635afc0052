package services

import (
	"context"
	"testing"
	"time"

	"tably-server/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rewardFixture struct {
	service    *RewardService
	rewards    *fakeRewardStore
	coupons    *fakeCouponStore
	customers  *fakeCustomerStore
	notifier   *fakeNotifier
	restaurant *models.Restaurant
	customer   *models.Customer
	now        time.Time
}

func newRewardFixture(t *testing.T) *rewardFixture {
	t.Helper()
	f := &rewardFixture{
		rewards:   newFakeRewardStore(),
		coupons:   newFakeCouponStore(),
		customers: newFakeCustomerStore(),
		notifier:  &fakeNotifier{},
		now:       time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	f.service = NewRewardService(f.rewards, f.coupons, f.customers, f.notifier)
	f.service.now = func() time.Time { return f.now }

	f.restaurant = &models.Restaurant{
		ID:   uuid.New(),
		Name: "Casa do Sabor",
		Slug: "casa-do-sabor",
	}
	phone := "11999990000"
	f.customer = &models.Customer{
		RestaurantID: f.restaurant.ID,
		Name:         "Maria Silva",
		Phone:        &phone,
	}
	f.customers.add(f.customer)
	return f
}

func (f *rewardFixture) addReward(t *testing.T, reward *models.Reward) *models.Reward {
	t.Helper()
	reward.RestaurantID = f.restaurant.ID
	reward.IsActive = true
	f.rewards.add(reward)
	return reward
}

func (f *rewardFixture) withRules(rules ...models.RewardRule) {
	f.restaurant.Settings.CheckinProgram.RewardsPerVisit = rules
}

func TestEvaluateVisitMilestonesExactMatchOnly(t *testing.T) {
	f := newRewardFixture(t)
	reward := f.addReward(t, &models.Reward{Title: "Free Coffee", RewardType: models.RewardTypeFreeItem})
	f.withRules(models.RewardRule{VisitCount: 5, RewardID: reward.ID})

	for _, visits := range []int{4, 6} {
		outcome := f.service.EvaluateVisitMilestones(context.Background(), f.restaurant, f.customer, visits, 0)
		assert.Nil(t, outcome, "visit %d must not trigger the rule", visits)
	}

	outcome := f.service.EvaluateVisitMilestones(context.Background(), f.restaurant, f.customer, 5, 0)
	require.NotNil(t, outcome)
	require.NotNil(t, outcome.Coupon)
	assert.Equal(t, reward.ID, outcome.RewardID)
	assert.Equal(t, f.customer.ID, outcome.CustomerID)
	assert.Equal(t, 5, outcome.VisitMilestone)
	require.NotNil(t, outcome.Coupon.VisitMilestone)
	assert.Equal(t, 5, *outcome.Coupon.VisitMilestone)
}

func TestEvaluateVisitMilestonesFirstMatchWins(t *testing.T) {
	f := newRewardFixture(t)
	first := f.addReward(t, &models.Reward{Title: "First", RewardType: models.RewardTypeFreeItem})
	second := f.addReward(t, &models.Reward{Title: "Second", RewardType: models.RewardTypeFreeItem})
	f.withRules(
		models.RewardRule{VisitCount: 3, RewardID: first.ID},
		models.RewardRule{VisitCount: 3, RewardID: second.ID},
	)

	outcome := f.service.EvaluateVisitMilestones(context.Background(), f.restaurant, f.customer, 3, 0)
	require.NotNil(t, outcome)
	assert.Equal(t, first.ID, outcome.RewardID)
	assert.Len(t, f.coupons.coupons, 1)
}

func TestEvaluateVisitMilestonesSkipsMissingReward(t *testing.T) {
	f := newRewardFixture(t)
	f.withRules(models.RewardRule{VisitCount: 2, RewardID: uuid.New()})

	outcome := f.service.EvaluateVisitMilestones(context.Background(), f.restaurant, f.customer, 2, 0)
	assert.Nil(t, outcome)
	assert.Empty(t, f.coupons.coupons)
}

func TestEvaluateVisitMilestonesSkipsAlreadyIssuedMilestone(t *testing.T) {
	f := newRewardFixture(t)
	reward := f.addReward(t, &models.Reward{Title: "Free Coffee", RewardType: models.RewardTypeFreeItem})
	f.withRules(models.RewardRule{VisitCount: 5, RewardID: reward.ID})

	first := f.service.EvaluateVisitMilestones(context.Background(), f.restaurant, f.customer, 5, 0)
	require.NotNil(t, first)

	second := f.service.EvaluateVisitMilestones(context.Background(), f.restaurant, f.customer, 5, 0)
	assert.Nil(t, second)
	assert.Len(t, f.coupons.coupons, 1)
	assert.Len(t, f.notifier.sent, 1)
}

func TestEvaluateVisitMilestonesMissingRewardTriesNextRule(t *testing.T) {
	f := newRewardFixture(t)
	valid := f.addReward(t, &models.Reward{Title: "Free Coffee", RewardType: models.RewardTypeFreeItem})
	f.withRules(
		models.RewardRule{VisitCount: 5, RewardID: uuid.New()},
		models.RewardRule{VisitCount: 5, RewardID: valid.ID},
	)

	outcome := f.service.EvaluateVisitMilestones(context.Background(), f.restaurant, f.customer, 5, 0)
	require.NotNil(t, outcome)
	assert.Equal(t, valid.ID, outcome.RewardID)
	require.NotNil(t, outcome.Coupon)
	assert.Len(t, f.coupons.coupons, 1)
}

func TestEvaluateVisitMilestonesIssuedMilestoneTriesNextRule(t *testing.T) {
	f := newRewardFixture(t)
	first := f.addReward(t, &models.Reward{Title: "First", RewardType: models.RewardTypeFreeItem})
	second := f.addReward(t, &models.Reward{Title: "Second", RewardType: models.RewardTypeFreeItem})
	f.withRules(
		models.RewardRule{VisitCount: 5, RewardID: first.ID},
		models.RewardRule{VisitCount: 5, RewardID: second.ID},
	)

	initial := f.service.EvaluateVisitMilestones(context.Background(), f.restaurant, f.customer, 5, 0)
	require.NotNil(t, initial)
	assert.Equal(t, first.ID, initial.RewardID)

	// The first rule's milestone is already rewarded, so the second rule fires.
	repeat := f.service.EvaluateVisitMilestones(context.Background(), f.restaurant, f.customer, 5, 0)
	require.NotNil(t, repeat)
	assert.Equal(t, second.ID, repeat.RewardID)
	require.NotNil(t, repeat.Coupon)
	assert.Len(t, f.coupons.coupons, 2)
}

func TestEvaluateVisitMilestonesFailedRuleTriesNextRule(t *testing.T) {
	f := newRewardFixture(t)
	inactive := &models.Reward{
		RestaurantID: f.restaurant.ID,
		Title:        "Retired Reward",
		RewardType:   models.RewardTypeFreeItem,
		IsActive:     false,
	}
	f.rewards.add(inactive)
	valid := f.addReward(t, &models.Reward{Title: "Free Coffee", RewardType: models.RewardTypeFreeItem})
	f.withRules(
		models.RewardRule{VisitCount: 5, RewardID: inactive.ID},
		models.RewardRule{VisitCount: 5, RewardID: valid.ID},
	)

	outcome := f.service.EvaluateVisitMilestones(context.Background(), f.restaurant, f.customer, 5, 0)
	require.NotNil(t, outcome)
	assert.Equal(t, valid.ID, outcome.RewardID)
	assert.Len(t, f.coupons.coupons, 1)
}

func TestEvaluateVisitMilestonesNotifiesCustomer(t *testing.T) {
	f := newRewardFixture(t)
	reward := f.addReward(t, &models.Reward{Title: "Free Dessert", RewardType: models.RewardTypeFreeItem})
	f.withRules(models.RewardRule{
		VisitCount:      3,
		RewardID:        reward.ID,
		MessageTemplate: "Hi {{customer_name}}, visit {{visit_count}} at {{restaurant_name}} earned {{reward_title}}! Code: {{coupon_code}}",
	})

	outcome := f.service.EvaluateVisitMilestones(context.Background(), f.restaurant, f.customer, 3, 0)
	require.NotNil(t, outcome)
	require.Len(t, f.notifier.sent, 1)

	sent := f.notifier.sent[0]
	assert.Equal(t, "11999990000", sent.Phone)
	assert.Equal(t, models.MessageTypeCheckinReward, sent.MessageType)
	expected := "Hi Maria Silva, visit 3 at Casa do Sabor earned Free Dessert! Code: " + outcome.Coupon.Code
	assert.Equal(t, expected, sent.Message)
}

func TestEvaluateVisitMilestonesIncrementsRewardUses(t *testing.T) {
	f := newRewardFixture(t)
	reward := f.addReward(t, &models.Reward{Title: "Free Coffee", RewardType: models.RewardTypeFreeItem})
	f.withRules(models.RewardRule{VisitCount: 1, RewardID: reward.ID})

	outcome := f.service.EvaluateVisitMilestones(context.Background(), f.restaurant, f.customer, 1, 0)
	require.NotNil(t, outcome)
	assert.Equal(t, 1, f.rewards.rewards[reward.ID].CurrentUses)
}

func TestEvaluateVisitMilestonesRespectsPerCustomerLimit(t *testing.T) {
	f := newRewardFixture(t)
	limit := 1
	reward := f.addReward(t, &models.Reward{Title: "Free Coffee", RewardType: models.RewardTypeFreeItem, MaxUsesPerCustomer: &limit})
	f.withRules(
		models.RewardRule{VisitCount: 2, RewardID: reward.ID},
		models.RewardRule{VisitCount: 4, RewardID: reward.ID},
	)

	require.NotNil(t, f.service.EvaluateVisitMilestones(context.Background(), f.restaurant, f.customer, 2, 0))

	// Second milestone for the same reward exceeds the per-customer limit.
	outcome := f.service.EvaluateVisitMilestones(context.Background(), f.restaurant, f.customer, 4, 0)
	assert.Nil(t, outcome)
	assert.Len(t, f.coupons.coupons, 1)
}

func TestCouponExpiryHierarchy(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ten, thirty := 10, 30
	validUntil := now.AddDate(0, 1, 0)

	tests := []struct {
		name      string
		reward    models.Reward
		extraDays int
		expected  *time.Time
	}{
		{
			name:      "extra validity days take precedence",
			reward:    models.Reward{CouponValidityDays: &ten, DaysValid: &thirty, ValidUntil: &validUntil},
			extraDays: 3,
			expected:  timePtr(now.AddDate(0, 0, 3)),
		},
		{
			name:     "coupon_validity_days beats days_valid",
			reward:   models.Reward{CouponValidityDays: &ten, DaysValid: &thirty},
			expected: timePtr(now.AddDate(0, 0, 10)),
		},
		{
			name:     "days_valid beats valid_until",
			reward:   models.Reward{DaysValid: &thirty, ValidUntil: &validUntil},
			expected: timePtr(now.AddDate(0, 0, 30)),
		},
		{
			name:     "valid_until as fallback",
			reward:   models.Reward{ValidUntil: &validUntil},
			expected: &validUntil,
		},
		{
			name:     "no expiry configured",
			reward:   models.Reward{},
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := couponExpiry(now, &tt.reward, tt.extraDays)
			if tt.expected == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.True(t, got.Equal(*tt.expected), "expected %v, got %v", tt.expected, got)
		})
	}
}

func timePtr(t time.Time) *time.Time { return &t }

func TestSpinTheWheelMilestoneDefersCoupon(t *testing.T) {
	f := newRewardFixture(t)
	reward := f.addReward(t, &models.Reward{
		Title:      "Lucky Wheel",
		RewardType: models.RewardTypeSpinTheWheel,
		WheelConfig: models.WheelConfig{Items: []models.WheelItem{
			{ID: "a", Title: "Free Drink", Probability: 50},
			{ID: "b", Title: "10% Off", Probability: 50},
		}},
	})
	f.withRules(models.RewardRule{VisitCount: 5, RewardID: reward.ID})

	outcome := f.service.EvaluateVisitMilestones(context.Background(), f.restaurant, f.customer, 5, 0)
	require.NotNil(t, outcome)
	assert.True(t, outcome.PendingSpin)
	assert.Equal(t, f.customer.ID, outcome.CustomerID)
	assert.Nil(t, outcome.Coupon)
	require.NotNil(t, outcome.WheelConfig)
	assert.Len(t, outcome.WheelConfig.Items, 2)
	assert.Empty(t, f.coupons.coupons)
	assert.Empty(t, f.notifier.sent)
}

func TestResolveSpinIssuesCouponForWinningItem(t *testing.T) {
	f := newRewardFixture(t)
	reward := f.addReward(t, &models.Reward{
		Title:      "Lucky Wheel",
		RewardType: models.RewardTypeSpinTheWheel,
		WheelConfig: models.WheelConfig{Items: []models.WheelItem{
			{ID: "a", Title: "Free Drink", Probability: 100, Value: 15, RewardType: models.RewardTypeFreeItem},
		}},
	})

	result, err := f.service.ResolveSpin(context.Background(), f.restaurant, f.customer.ID, reward.ID, 5)
	require.NoError(t, err)
	require.NotNil(t, result.Coupon)
	assert.Equal(t, "a", result.Item.ID)
	assert.Equal(t, "Free Drink", result.Coupon.Title)
	assert.Equal(t, models.RewardTypeFreeItem, result.Coupon.RewardType)
	assert.Equal(t, 15.0, result.Coupon.Value)
	require.NotNil(t, result.Coupon.VisitMilestone)
	assert.Equal(t, 5, *result.Coupon.VisitMilestone)
	assert.Equal(t, 1, f.rewards.rewards[reward.ID].CurrentUses)
	assert.Len(t, f.notifier.sent, 1)
}

func TestResolveSpinIsIdempotentPerMilestone(t *testing.T) {
	f := newRewardFixture(t)
	reward := f.addReward(t, &models.Reward{
		Title:      "Lucky Wheel",
		RewardType: models.RewardTypeSpinTheWheel,
		WheelConfig: models.WheelConfig{Items: []models.WheelItem{
			{ID: "a", Title: "Free Drink", Probability: 100},
		}},
	})

	first, err := f.service.ResolveSpin(context.Background(), f.restaurant, f.customer.ID, reward.ID, 5)
	require.NoError(t, err)

	second, err := f.service.ResolveSpin(context.Background(), f.restaurant, f.customer.ID, reward.ID, 5)
	require.NoError(t, err)
	require.NotNil(t, second.Coupon)
	assert.Equal(t, first.Coupon.ID, second.Coupon.ID)
	assert.Len(t, f.coupons.coupons, 1)
	assert.Equal(t, 1, f.rewards.rewards[reward.ID].CurrentUses)
}

func TestResolveSpinRejectsNonWheelReward(t *testing.T) {
	f := newRewardFixture(t)
	reward := f.addReward(t, &models.Reward{Title: "Free Coffee", RewardType: models.RewardTypeFreeItem})

	_, err := f.service.ResolveSpin(context.Background(), f.restaurant, f.customer.ID, reward.ID, 5)
	assert.ErrorIs(t, err, ErrNotSpinTheWheel)
}

func TestResolveSpinRejectsForeignReward(t *testing.T) {
	f := newRewardFixture(t)
	foreign := &models.Reward{
		ID:           uuid.New(),
		RestaurantID: uuid.New(),
		Title:        "Other Wheel",
		RewardType:   models.RewardTypeSpinTheWheel,
		IsActive:     true,
	}
	f.rewards.add(foreign)

	_, err := f.service.ResolveSpin(context.Background(), f.restaurant, f.customer.ID, foreign.ID, 5)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRenderTemplateUsesDefaultWhenEmpty(t *testing.T) {
	f := newRewardFixture(t)
	reward := &models.Reward{Title: "Free Coffee"}

	message := f.service.renderTemplate("", f.restaurant, f.customer, reward, "MARIA1234", 5)
	assert.Contains(t, message, "Maria Silva")
	assert.Contains(t, message, "Casa do Sabor")
	assert.Contains(t, message, "Free Coffee")
	assert.Contains(t, message, "MARIA1234")
	assert.Contains(t, message, "5")
}
