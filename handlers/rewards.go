package handlers

import (
	"net/http"
	"strconv"

	"tably-server/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type rewardRequest struct {
	Title              string             `json:"title" binding:"required"`
	Description        *string            `json:"description"`
	RewardType         string             `json:"reward_type" binding:"required"`
	Value              float64            `json:"value"`
	WheelConfig        models.WheelConfig `json:"wheel_config"`
	IsActive           *bool              `json:"is_active"`
	ValidFrom          *string            `json:"valid_from"`
	ValidUntil         *string            `json:"valid_until"`
	TotalUsesLimit     *int               `json:"total_uses_limit"`
	MaxUsesPerCustomer *int               `json:"max_uses_per_customer"`
	CouponValidityDays *int               `json:"coupon_validity_days"`
	DaysValid          *int               `json:"days_valid"`
}

func (r *rewardRequest) apply(reward *models.Reward) error {
	reward.Title = r.Title
	reward.Description = r.Description
	reward.RewardType = r.RewardType
	reward.Value = r.Value
	reward.WheelConfig = r.WheelConfig
	reward.WheelConfig.EnsureItemIDs()
	reward.IsActive = true
	if r.IsActive != nil {
		reward.IsActive = *r.IsActive
	}
	reward.TotalUsesLimit = r.TotalUsesLimit
	reward.MaxUsesPerCustomer = r.MaxUsesPerCustomer
	reward.CouponValidityDays = r.CouponValidityDays
	reward.DaysValid = r.DaysValid

	var err error
	if reward.ValidFrom, err = parseTimePtr(r.ValidFrom); err != nil {
		return err
	}
	if reward.ValidUntil, err = parseTimePtr(r.ValidUntil); err != nil {
		return err
	}
	return nil
}

func validRewardType(t string) bool {
	switch t {
	case models.RewardTypeDiscountPercentage, models.RewardTypeDiscountFixed,
		models.RewardTypeFreeItem, models.RewardTypePointsMultiplier,
		models.RewardTypeCashback, models.RewardTypeSpinTheWheel:
		return true
	}
	return false
}

// ListRewards returns the restaurant's rewards, newest first
func ListRewards(c *gin.Context) {
	restaurantID, ok := currentRestaurantID(c)
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": "User is not assigned to a restaurant"})
		return
	}
	limit, offset := pagination(c)

	rewards, total, err := db.ListRewards(c.Request.Context(), restaurantID, limit, offset)
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rewards": rewards, "total": total, "limit": limit, "offset": offset})
}

// GetReward returns a single reward
func GetReward(c *gin.Context) {
	restaurantID, ok := currentRestaurantID(c)
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": "User is not assigned to a restaurant"})
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid reward id"})
		return
	}

	reward, err := db.GetReward(c.Request.Context(), id)
	if err != nil || reward.RestaurantID != restaurantID {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"reward": reward})
}

// CreateReward creates a reward for the staff member's restaurant
func CreateReward(c *gin.Context) {
	restaurantID, ok := currentRestaurantID(c)
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": "User is not assigned to a restaurant"})
		return
	}

	var req rewardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}
	if !validRewardType(req.RewardType) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid reward type"})
		return
	}
	if req.RewardType == models.RewardTypeSpinTheWheel && len(req.WheelConfig.Items) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Spin the wheel rewards need at least one wheel item"})
		return
	}

	reward := models.Reward{RestaurantID: restaurantID}
	if userID, ok := currentUserID(c); ok {
		reward.CreatedBy = &userID
	}
	if err := req.apply(&reward); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date format, use RFC 3339"})
		return
	}

	if err := db.CreateReward(c.Request.Context(), &reward); err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"reward": reward})
}

// UpdateReward replaces the editable fields of a reward
func UpdateReward(c *gin.Context) {
	restaurantID, ok := currentRestaurantID(c)
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": "User is not assigned to a restaurant"})
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid reward id"})
		return
	}

	var req rewardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}
	if !validRewardType(req.RewardType) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid reward type"})
		return
	}

	reward := models.Reward{ID: id, RestaurantID: restaurantID}
	if err := req.apply(&reward); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date format, use RFC 3339"})
		return
	}

	if err := db.UpdateReward(c.Request.Context(), &reward); err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reward": reward})
}

// DeleteReward removes a reward
func DeleteReward(c *gin.Context) {
	restaurantID, ok := currentRestaurantID(c)
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": "User is not assigned to a restaurant"})
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid reward id"})
		return
	}

	if err := db.DeleteReward(c.Request.Context(), id, restaurantID); err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Reward deleted"})
}

// GetRewardsAnalytics returns the reward program dashboard numbers
func GetRewardsAnalytics(c *gin.Context) {
	restaurantID, ok := currentRestaurantID(c)
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": "User is not assigned to a restaurant"})
		return
	}

	analytics, err := db.GetRewardsAnalytics(c.Request.Context(), restaurantID)
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, analytics)
}

// SpinWheel resolves a pending wheel spin earned at a visit milestone. Public:
// the customer spins from the check-in confirmation page.
func SpinWheel(c *gin.Context) {
	restaurant, err := restaurants.GetRestaurantBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		errorResponse(c, err)
		return
	}

	var req struct {
		RewardID       uuid.UUID `json:"reward_id" binding:"required"`
		CustomerID     uuid.UUID `json:"customer_id" binding:"required"`
		VisitMilestone int       `json:"visit_milestone" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	result, err := rewardService.ResolveSpin(c.Request.Context(), restaurant, req.CustomerID, req.RewardID, req.VisitMilestone)
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// pagination reads limit/offset query params with sane bounds
func pagination(c *gin.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
