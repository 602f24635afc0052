package services

import (
	"context"
	"time"

	"tably-server/models"

	"github.com/google/uuid"
)

// Store interfaces are satisfied by *database.DB. Keeping them small lets the
// check-in and reward flows be exercised in tests with in-memory fakes.

type RestaurantStore interface {
	GetRestaurantByID(ctx context.Context, id uuid.UUID) (*models.Restaurant, error)
	GetRestaurantBySlug(ctx context.Context, slug string) (*models.Restaurant, error)
}

type CustomerStore interface {
	GetCustomer(ctx context.Context, id, restaurantID uuid.UUID) (*models.Customer, error)
	FindCustomerByPhone(ctx context.Context, phone string, restaurantID uuid.UUID) (*models.Customer, error)
	FindCustomerByCPF(ctx context.Context, cpf string, restaurantID uuid.UUID) (*models.Customer, error)
	CreateCustomer(ctx context.Context, customer *models.Customer) error
	RenameCustomer(ctx context.Context, id uuid.UUID, name string) error
	IncrementVisits(ctx context.Context, id uuid.UUID, visitTime time.Time) (int, error)
	RefreshCustomerStats(ctx context.Context, id uuid.UUID) error
}

// LoyaltyLedger is an optional capability: a check-in service wired without one
// skips point crediting instead of failing.
type LoyaltyLedger interface {
	AddLoyaltyPoints(ctx context.Context, id uuid.UUID, points int, source string) error
}

type CheckinStore interface {
	GetCheckin(ctx context.Context, id uuid.UUID) (*models.Checkin, error)
	ActiveCheckin(ctx context.Context, customerID, restaurantID uuid.UUID) (*models.Checkin, error)
	ExpireStaleCheckins(ctx context.Context, customerID, restaurantID uuid.UUID) error
	CreateCheckin(ctx context.Context, checkin *models.Checkin) error
	CompleteCheckin(ctx context.Context, id uuid.UUID, checkoutTime time.Time) (*models.Checkin, error)
	PreviousCheckin(ctx context.Context, customerID, restaurantID, excludeID uuid.UUID) (*models.Checkin, error)
}

type CouponStore interface {
	GetCoupon(ctx context.Context, id, restaurantID uuid.UUID) (*models.Coupon, error)
	GetCouponByCode(ctx context.Context, code string, restaurantID uuid.UUID) (*models.Coupon, error)
	FindMilestoneCoupon(ctx context.Context, customerID, rewardID uuid.UUID, visitMilestone int) (*models.Coupon, error)
	CreateCoupon(ctx context.Context, coupon *models.Coupon) (bool, error)
	CountCustomerCoupons(ctx context.Context, customerID, rewardID uuid.UUID) (int, error)
}

type RewardStore interface {
	GetReward(ctx context.Context, id uuid.UUID) (*models.Reward, error)
	IncrementRewardUses(ctx context.Context, id uuid.UUID) error
}

type UserStore interface {
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type MessageStore interface {
	CreateWhatsappMessage(ctx context.Context, msg *models.WhatsappMessage) error
}

// Notifier delivers a message to a customer. Implementations are best-effort:
// they log failures and never return them, so a broken gateway cannot fail a
// check-in.
type Notifier interface {
	Notify(ctx context.Context, restaurant *models.Restaurant, customerID *uuid.UUID, phone, message, messageType string)
}

// CheckinEventPublisher feeds the analytics pipeline. Optional and best-effort.
type CheckinEventPublisher interface {
	PublishCheckin(ctx context.Context, event CheckinEvent) error
}
