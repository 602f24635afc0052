package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRewardIsValid(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)
	limit := 2

	tests := []struct {
		name   string
		reward Reward
		want   bool
	}{
		{"active without window", Reward{IsActive: true}, true},
		{"inactive", Reward{IsActive: false}, false},
		{"not yet valid", Reward{IsActive: true, ValidFrom: &future}, false},
		{"already expired", Reward{IsActive: true, ValidUntil: &past}, false},
		{"inside window", Reward{IsActive: true, ValidFrom: &past, ValidUntil: &future}, true},
		{"uses exhausted", Reward{IsActive: true, TotalUsesLimit: &limit, CurrentUses: 2}, false},
		{"uses remaining", Reward{IsActive: true, TotalUsesLimit: &limit, CurrentUses: 1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.reward.IsValid(now))
		})
	}
}

func TestCouponUsable(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	assert.True(t, (&Coupon{Status: CouponStatusActive}).Usable(now))
	assert.True(t, (&Coupon{Status: CouponStatusActive, ExpiresAt: &future}).Usable(now))
	assert.False(t, (&Coupon{Status: CouponStatusActive, ExpiresAt: &past}).Usable(now))
	assert.False(t, (&Coupon{Status: CouponStatusRedeemed}).Usable(now))
	assert.False(t, (&Coupon{Status: CouponStatusCancelled}).Usable(now))
}

func TestWheelConfigEnsureItemIDs(t *testing.T) {
	wc := WheelConfig{Items: []WheelItem{
		{ID: "keep", Title: "A"},
		{Title: "B"},
	}}
	wc.EnsureItemIDs()

	assert.Equal(t, "keep", wc.Items[0].ID)
	assert.NotEmpty(t, wc.Items[1].ID)
}
