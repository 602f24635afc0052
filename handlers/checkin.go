package handlers

import (
	"net/http"
	"time"

	"tably-server/config"
	"tably-server/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	qrcode "github.com/skip2/go-qrcode"
)

// PublicCheckin handles the self-service check-in page reached by slug
func PublicCheckin(c *gin.Context) {
	var input services.CheckinInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}
	// Self-service check-ins never extend coupon validity
	input.ExtraValidityDays = 0

	result, err := checkinService.PublicCheckin(c.Request.Context(), c.Param("slug"), input)
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// RecordCheckin registers a visit on behalf of a customer (staff endpoint)
func RecordCheckin(c *gin.Context) {
	restaurantID, ok := currentRestaurantID(c)
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": "User is not assigned to a restaurant"})
		return
	}

	var input services.CheckinInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	restaurant, err := restaurants.GetRestaurantByID(c.Request.Context(), restaurantID)
	if err != nil {
		errorResponse(c, err)
		return
	}

	result, err := checkinService.RecordCheckin(c.Request.Context(), restaurant, input)
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// CheckoutCheckin completes an active check-in session
func CheckoutCheckin(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
		return
	}
	checkinID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid checkin id"})
		return
	}

	checkin, err := checkinService.Checkout(c.Request.Context(), userID, checkinID)
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"checkin": checkin})
}

// GetActiveCheckins lists the live sessions of the staff member's restaurant
func GetActiveCheckins(c *gin.Context) {
	restaurantID, ok := currentRestaurantID(c)
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": "User is not assigned to a restaurant"})
		return
	}

	active, err := db.ActiveCheckins(c.Request.Context(), restaurantID)
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"checkins": active, "count": len(active)})
}

// GetCheckinAnalytics returns the check-in dashboard numbers. The optional
// period query accepts 7d, 30d or 90d.
func GetCheckinAnalytics(c *gin.Context) {
	restaurantID, ok := currentRestaurantID(c)
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": "User is not assigned to a restaurant"})
		return
	}

	var since *time.Time
	switch c.Query("period") {
	case "7d":
		t := time.Now().AddDate(0, 0, -7)
		since = &t
	case "30d":
		t := time.Now().AddDate(0, 0, -30)
		since = &t
	case "90d":
		t := time.Now().AddDate(0, 0, -90)
		since = &t
	case "":
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid period, use 7d, 30d or 90d"})
		return
	}

	analytics, err := db.GetCheckinAnalytics(c.Request.Context(), restaurantID, since)
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, analytics)
}

// CheckinQRCode renders the QR code that points customers at the public
// check-in page for the restaurant.
func CheckinQRCode(c *gin.Context) {
	restaurant, err := restaurants.GetRestaurantBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		errorResponse(c, err)
		return
	}

	url := config.AppConfig.FrontendURL + "/checkin/" + restaurant.Slug
	png, err := qrcode.Encode(url, qrcode.Medium, 256)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate QR code"})
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}
