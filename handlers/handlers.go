package handlers

import (
	"errors"
	"log"
	"net/http"

	"tably-server/config"
	"tably-server/database"
	"tably-server/services"

	"github.com/gin-gonic/gin"
)

var (
	db             *database.DB
	restaurants    services.RestaurantStore
	settingsCache  *services.SettingsCache
	checkinService *services.CheckinService
	rewardService  *services.RewardService
	notifier       services.Notifier
)

// InitializeHandlers wires the handler package to its services. Called once at
// startup before routes are registered.
func InitializeHandlers(d *database.DB, cache *services.SettingsCache, checkins *services.CheckinService, rewards *services.RewardService, n services.Notifier) {
	db = d
	settingsCache = cache
	restaurants = cache
	checkinService = checkins
	rewardService = rewards
	notifier = n
}

// errorResponse maps service errors to HTTP responses. Unknown errors are
// logged and hidden behind a generic 500 outside development.
func errorResponse(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound), errors.Is(err, database.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	case errors.Is(err, services.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
	case errors.Is(err, services.ErrModuleDisabled):
		c.JSON(http.StatusForbidden, gin.H{"error": "Check-in is not available for this restaurant"})
	case errors.Is(err, services.ErrMissingIdentifier):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Customer identifier is required"})
	case errors.Is(err, services.ErrDuplicateActiveSession):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Customer already has an active check-in"})
	case errors.Is(err, services.ErrCouponRequired):
		c.JSON(http.StatusBadRequest, gin.H{"error": "A valid coupon is required to check in"})
	case errors.Is(err, services.ErrInvalidCoupon):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Coupon is invalid or expired"})
	case errors.Is(err, services.ErrRewardNotUsable):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Reward cannot be used"})
	case errors.Is(err, services.ErrNotSpinTheWheel), errors.Is(err, services.ErrWheelConfigInvalid):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		log.Printf("Internal error: %v", err)
		if config.AppConfig != nil && config.AppConfig.Environment == "development" {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
