package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ValidateCoupon looks up a coupon by code and reports whether it is usable
func ValidateCoupon(c *gin.Context) {
	restaurantID, ok := currentRestaurantID(c)
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": "User is not assigned to a restaurant"})
		return
	}
	code := c.Param("code")

	coupon, err := db.GetCouponByCode(c.Request.Context(), code, restaurantID)
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"coupon": coupon,
		"usable": coupon.Usable(time.Now()),
	})
}

// RedeemCoupon marks an active coupon as redeemed. Expired coupons are swept
// first so a stale active row cannot be redeemed.
func RedeemCoupon(c *gin.Context) {
	restaurantID, ok := currentRestaurantID(c)
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": "User is not assigned to a restaurant"})
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid coupon id"})
		return
	}

	if _, err := db.ExpireStaleCoupons(c.Request.Context(), restaurantID); err != nil {
		errorResponse(c, err)
		return
	}

	coupon, err := db.RedeemCoupon(c.Request.Context(), id, restaurantID, time.Now())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Coupon cannot be redeemed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"coupon": coupon})
}

// ListCustomerCoupons returns all coupons a customer holds at the restaurant
func ListCustomerCoupons(c *gin.Context) {
	restaurantID, ok := currentRestaurantID(c)
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": "User is not assigned to a restaurant"})
		return
	}
	customerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid customer id"})
		return
	}

	coupons, err := db.ListCustomerCoupons(c.Request.Context(), customerID, restaurantID)
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"coupons": coupons, "count": len(coupons)})
}
