package services

import (
	"context"
	"time"

	"tably-server/database"
	"tably-server/models"

	"github.com/google/uuid"
)

// In-memory stores backing the service tests. They enforce the same uniqueness
// rules as the real schema so the concurrency-sensitive paths behave the same.

type fakeRestaurantStore struct {
	restaurants map[uuid.UUID]*models.Restaurant
}

func newFakeRestaurantStore() *fakeRestaurantStore {
	return &fakeRestaurantStore{restaurants: map[uuid.UUID]*models.Restaurant{}}
}

func (s *fakeRestaurantStore) add(r *models.Restaurant) {
	s.restaurants[r.ID] = r
}

func (s *fakeRestaurantStore) GetRestaurantByID(_ context.Context, id uuid.UUID) (*models.Restaurant, error) {
	if r, ok := s.restaurants[id]; ok {
		copied := *r
		return &copied, nil
	}
	return nil, database.ErrNotFound
}

func (s *fakeRestaurantStore) GetRestaurantBySlug(_ context.Context, slug string) (*models.Restaurant, error) {
	for _, r := range s.restaurants {
		if r.Slug == slug {
			copied := *r
			return &copied, nil
		}
	}
	return nil, database.ErrNotFound
}

type fakeCustomerStore struct {
	customers map[uuid.UUID]*models.Customer
}

func newFakeCustomerStore() *fakeCustomerStore {
	return &fakeCustomerStore{customers: map[uuid.UUID]*models.Customer{}}
}

func (s *fakeCustomerStore) add(c *models.Customer) {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	s.customers[c.ID] = c
}

func (s *fakeCustomerStore) GetCustomer(_ context.Context, id, restaurantID uuid.UUID) (*models.Customer, error) {
	if c, ok := s.customers[id]; ok && c.RestaurantID == restaurantID {
		copied := *c
		return &copied, nil
	}
	return nil, database.ErrNotFound
}

func (s *fakeCustomerStore) FindCustomerByPhone(_ context.Context, phone string, restaurantID uuid.UUID) (*models.Customer, error) {
	for _, c := range s.customers {
		if c.RestaurantID == restaurantID && c.Phone != nil && *c.Phone == phone {
			copied := *c
			return &copied, nil
		}
	}
	return nil, database.ErrNotFound
}

func (s *fakeCustomerStore) FindCustomerByCPF(_ context.Context, cpf string, restaurantID uuid.UUID) (*models.Customer, error) {
	for _, c := range s.customers {
		if c.RestaurantID == restaurantID && c.CPF != nil && *c.CPF == cpf {
			copied := *c
			return &copied, nil
		}
	}
	return nil, database.ErrNotFound
}

func (s *fakeCustomerStore) CreateCustomer(_ context.Context, customer *models.Customer) error {
	customer.ID = uuid.New()
	customer.CreatedAt = time.Now()
	copied := *customer
	s.customers[customer.ID] = &copied
	return nil
}

func (s *fakeCustomerStore) RenameCustomer(_ context.Context, id uuid.UUID, name string) error {
	c, ok := s.customers[id]
	if !ok {
		return database.ErrNotFound
	}
	c.Name = name
	return nil
}

func (s *fakeCustomerStore) IncrementVisits(_ context.Context, id uuid.UUID, visitTime time.Time) (int, error) {
	c, ok := s.customers[id]
	if !ok {
		return 0, database.ErrNotFound
	}
	c.TotalVisits++
	c.LastVisit = &visitTime
	return c.TotalVisits, nil
}

func (s *fakeCustomerStore) RefreshCustomerStats(_ context.Context, id uuid.UUID) error {
	c, ok := s.customers[id]
	if !ok {
		return database.ErrNotFound
	}
	c.CustomerSegment = models.SegmentForVisits(c.TotalVisits)
	return nil
}

type fakeLedger struct {
	credits map[uuid.UUID]int
	err     error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{credits: map[uuid.UUID]int{}}
}

func (l *fakeLedger) AddLoyaltyPoints(_ context.Context, id uuid.UUID, points int, _ string) error {
	if l.err != nil {
		return l.err
	}
	l.credits[id] += points
	return nil
}

type fakeCheckinStore struct {
	checkins map[uuid.UUID]*models.Checkin
	now      func() time.Time
}

func newFakeCheckinStore(now func() time.Time) *fakeCheckinStore {
	return &fakeCheckinStore{checkins: map[uuid.UUID]*models.Checkin{}, now: now}
}

func (s *fakeCheckinStore) GetCheckin(_ context.Context, id uuid.UUID) (*models.Checkin, error) {
	if ch, ok := s.checkins[id]; ok {
		copied := *ch
		return &copied, nil
	}
	return nil, database.ErrNotFound
}

func (s *fakeCheckinStore) ActiveCheckin(_ context.Context, customerID, restaurantID uuid.UUID) (*models.Checkin, error) {
	for _, ch := range s.checkins {
		if ch.CustomerID == customerID && ch.RestaurantID == restaurantID &&
			ch.Status == models.CheckinStatusActive && ch.ExpiresAt.After(s.now()) {
			copied := *ch
			return &copied, nil
		}
	}
	return nil, database.ErrNotFound
}

func (s *fakeCheckinStore) ExpireStaleCheckins(_ context.Context, customerID, restaurantID uuid.UUID) error {
	for _, ch := range s.checkins {
		if ch.CustomerID == customerID && ch.RestaurantID == restaurantID &&
			ch.Status == models.CheckinStatusActive && !ch.ExpiresAt.After(s.now()) {
			ch.Status = models.CheckinStatusCompleted
			expired := ch.ExpiresAt
			ch.CheckoutTime = &expired
		}
	}
	return nil
}

func (s *fakeCheckinStore) CreateCheckin(_ context.Context, checkin *models.Checkin) error {
	for _, ch := range s.checkins {
		if ch.CustomerID == checkin.CustomerID && ch.RestaurantID == checkin.RestaurantID &&
			ch.Status == models.CheckinStatusActive {
			return database.ErrDuplicateActiveSession
		}
	}
	checkin.ID = uuid.New()
	checkin.Status = models.CheckinStatusActive
	copied := *checkin
	s.checkins[checkin.ID] = &copied
	return nil
}

func (s *fakeCheckinStore) CompleteCheckin(_ context.Context, id uuid.UUID, checkoutTime time.Time) (*models.Checkin, error) {
	ch, ok := s.checkins[id]
	if !ok || ch.Status != models.CheckinStatusActive {
		return nil, database.ErrNotFound
	}
	ch.Status = models.CheckinStatusCompleted
	ch.CheckoutTime = &checkoutTime
	copied := *ch
	return &copied, nil
}

func (s *fakeCheckinStore) PreviousCheckin(_ context.Context, customerID, restaurantID, excludeID uuid.UUID) (*models.Checkin, error) {
	var latest *models.Checkin
	for _, ch := range s.checkins {
		if ch.CustomerID != customerID || ch.RestaurantID != restaurantID || ch.ID == excludeID {
			continue
		}
		if latest == nil || ch.CheckinTime.After(latest.CheckinTime) {
			latest = ch
		}
	}
	if latest == nil {
		return nil, database.ErrNotFound
	}
	copied := *latest
	return &copied, nil
}

type fakeCouponStore struct {
	coupons map[uuid.UUID]*models.Coupon
}

func newFakeCouponStore() *fakeCouponStore {
	return &fakeCouponStore{coupons: map[uuid.UUID]*models.Coupon{}}
}

func (s *fakeCouponStore) GetCoupon(_ context.Context, id, restaurantID uuid.UUID) (*models.Coupon, error) {
	if c, ok := s.coupons[id]; ok && c.RestaurantID == restaurantID {
		copied := *c
		return &copied, nil
	}
	return nil, database.ErrNotFound
}

func (s *fakeCouponStore) GetCouponByCode(_ context.Context, code string, restaurantID uuid.UUID) (*models.Coupon, error) {
	for _, c := range s.coupons {
		if c.RestaurantID == restaurantID && c.Code == code {
			copied := *c
			return &copied, nil
		}
	}
	return nil, database.ErrNotFound
}

func (s *fakeCouponStore) FindMilestoneCoupon(_ context.Context, customerID, rewardID uuid.UUID, visitMilestone int) (*models.Coupon, error) {
	for _, c := range s.coupons {
		if c.CustomerID == customerID && c.RewardID == rewardID &&
			c.VisitMilestone != nil && *c.VisitMilestone == visitMilestone {
			copied := *c
			return &copied, nil
		}
	}
	return nil, database.ErrNotFound
}

func (s *fakeCouponStore) CreateCoupon(ctx context.Context, coupon *models.Coupon) (bool, error) {
	if coupon.VisitMilestone != nil {
		if existing, err := s.FindMilestoneCoupon(ctx, coupon.CustomerID, coupon.RewardID, *coupon.VisitMilestone); err == nil {
			*coupon = *existing
			return false, nil
		}
	}
	for _, c := range s.coupons {
		if c.Code == coupon.Code {
			return false, database.ErrCouponCodeCollision
		}
	}
	coupon.ID = uuid.New()
	coupon.Status = models.CouponStatusActive
	coupon.CreatedAt = time.Now()
	copied := *coupon
	s.coupons[coupon.ID] = &copied
	return true, nil
}

func (s *fakeCouponStore) CountCustomerCoupons(_ context.Context, customerID, rewardID uuid.UUID) (int, error) {
	count := 0
	for _, c := range s.coupons {
		if c.CustomerID == customerID && c.RewardID == rewardID {
			count++
		}
	}
	return count, nil
}

type fakeRewardStore struct {
	rewards map[uuid.UUID]*models.Reward
}

func newFakeRewardStore() *fakeRewardStore {
	return &fakeRewardStore{rewards: map[uuid.UUID]*models.Reward{}}
}

func (s *fakeRewardStore) add(r *models.Reward) {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	s.rewards[r.ID] = r
}

func (s *fakeRewardStore) GetReward(_ context.Context, id uuid.UUID) (*models.Reward, error) {
	if r, ok := s.rewards[id]; ok {
		copied := *r
		return &copied, nil
	}
	return nil, database.ErrNotFound
}

func (s *fakeRewardStore) IncrementRewardUses(_ context.Context, id uuid.UUID) error {
	if r, ok := s.rewards[id]; ok {
		r.CurrentUses++
	}
	return nil
}

type fakeUserStore struct {
	users map[uuid.UUID]*models.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: map[uuid.UUID]*models.User{}}
}

func (s *fakeUserStore) add(u *models.User) {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	s.users[u.ID] = u
}

func (s *fakeUserStore) GetUser(_ context.Context, id uuid.UUID) (*models.User, error) {
	if u, ok := s.users[id]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, database.ErrNotFound
}

type notifiedMessage struct {
	Phone       string
	Message     string
	MessageType string
}

type fakeNotifier struct {
	sent []notifiedMessage
}

func (n *fakeNotifier) Notify(_ context.Context, _ *models.Restaurant, _ *uuid.UUID, phone, message, messageType string) {
	n.sent = append(n.sent, notifiedMessage{Phone: phone, Message: message, MessageType: messageType})
}

type fakeMessageStore struct {
	records []models.WhatsappMessage
}

func (s *fakeMessageStore) CreateWhatsappMessage(_ context.Context, msg *models.WhatsappMessage) error {
	msg.ID = uuid.New()
	s.records = append(s.records, *msg)
	return nil
}

type fakePublisher struct {
	events []CheckinEvent
	err    error
}

func (p *fakePublisher) PublishCheckin(_ context.Context, event CheckinEvent) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}
