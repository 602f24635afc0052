package handlers

import (
	"net/http"

	"tably-server/models"

	"github.com/gin-gonic/gin"
)

// GetRestaurant returns the public profile of a restaurant by slug, including
// whether the check-in program is enabled. Used by the public check-in page.
func GetRestaurant(c *gin.Context) {
	restaurant, err := restaurants.GetRestaurantBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"restaurant": gin.H{
			"id":   restaurant.ID,
			"name": restaurant.Name,
			"slug": restaurant.Slug,
			"checkin_program": gin.H{
				"enabled":               restaurant.Settings.CheckinProgram.Enabled,
				"identification_method": restaurant.Settings.CheckinProgram.IdentificationMethod,
				"require_coupon":        restaurant.Settings.CheckinProgram.RequireCouponForCheckin,
			},
		},
	})
}

// GetCheckinSettings returns the check-in program configuration
func GetCheckinSettings(c *gin.Context) {
	restaurantID, ok := currentRestaurantID(c)
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": "User is not assigned to a restaurant"})
		return
	}

	restaurant, err := restaurants.GetRestaurantByID(c.Request.Context(), restaurantID)
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"checkin_program": restaurant.Settings.CheckinProgram})
}

// UpdateCheckinSettings validates and stores the check-in program configuration
func UpdateCheckinSettings(c *gin.Context) {
	restaurantID, ok := currentRestaurantID(c)
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": "User is not assigned to a restaurant"})
		return
	}

	var settings models.CheckinProgramSettings
	if err := c.ShouldBindJSON(&settings); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}
	settings.Normalize()
	if err := settings.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	restaurant, err := restaurants.GetRestaurantByID(c.Request.Context(), restaurantID)
	if err != nil {
		errorResponse(c, err)
		return
	}

	updated := restaurant.Settings
	updated.CheckinProgram = settings
	if err := settingsCache.UpdateRestaurantSettings(c.Request.Context(), restaurantID, updated); err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"checkin_program": settings})
}
