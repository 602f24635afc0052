package handlers

import (
	"net/http"

	"tably-server/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ListCustomers returns the restaurant's customer base with optional search
func ListCustomers(c *gin.Context) {
	restaurantID, ok := currentRestaurantID(c)
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": "User is not assigned to a restaurant"})
		return
	}
	limit, offset := pagination(c)

	customers, total, err := db.ListCustomers(c.Request.Context(), restaurantID, c.Query("search"), limit, offset)
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"customers": customers, "total": total, "limit": limit, "offset": offset})
}

// GetCustomer returns one customer profile
func GetCustomer(c *gin.Context) {
	restaurantID, ok := currentRestaurantID(c)
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": "User is not assigned to a restaurant"})
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid customer id"})
		return
	}

	customer, err := db.GetCustomer(c.Request.Context(), id, restaurantID)
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"customer": customer})
}

// UpdateCustomer edits a customer's contact details
func UpdateCustomer(c *gin.Context) {
	restaurantID, ok := currentRestaurantID(c)
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": "User is not assigned to a restaurant"})
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid customer id"})
		return
	}

	var req struct {
		Name     string  `json:"name" binding:"required"`
		Email    *string `json:"email"`
		Phone    *string `json:"phone"`
		CPF      *string `json:"cpf"`
		Whatsapp *string `json:"whatsapp"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	customer := models.Customer{
		ID:           id,
		RestaurantID: restaurantID,
		Name:         req.Name,
		Email:        req.Email,
		Phone:        req.Phone,
		CPF:          req.CPF,
		Whatsapp:     req.Whatsapp,
	}
	if err := db.UpdateCustomer(c.Request.Context(), &customer); err != nil {
		errorResponse(c, err)
		return
	}

	updated, err := db.GetCustomer(c.Request.Context(), id, restaurantID)
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"customer": updated})
}

// SendCustomerMessage delivers a one-off WhatsApp message to a customer through
// the restaurant's gateway. Delivery is best-effort; the attempt is recorded
// either way.
func SendCustomerMessage(c *gin.Context) {
	restaurantID, ok := currentRestaurantID(c)
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": "User is not assigned to a restaurant"})
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid customer id"})
		return
	}

	var req struct {
		Message string `json:"message" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Message text is required"})
		return
	}

	customer, err := db.GetCustomer(c.Request.Context(), id, restaurantID)
	if err != nil {
		errorResponse(c, err)
		return
	}

	phone := ""
	if customer.Whatsapp != nil && *customer.Whatsapp != "" {
		phone = *customer.Whatsapp
	} else if customer.Phone != nil {
		phone = *customer.Phone
	}
	if phone == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Customer has no phone number"})
		return
	}

	restaurant, err := restaurants.GetRestaurantByID(c.Request.Context(), restaurantID)
	if err != nil {
		errorResponse(c, err)
		return
	}

	notifier.Notify(c.Request.Context(), restaurant, &customer.ID, phone, req.Message, models.MessageTypeManual)
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}

// CreateCustomer adds a customer manually (front desk registration)
func CreateCustomer(c *gin.Context) {
	restaurantID, ok := currentRestaurantID(c)
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": "User is not assigned to a restaurant"})
		return
	}

	var req struct {
		Name     string  `json:"name" binding:"required"`
		Email    *string `json:"email"`
		Phone    *string `json:"phone"`
		CPF      *string `json:"cpf"`
		Whatsapp *string `json:"whatsapp"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	customer := models.Customer{
		RestaurantID: restaurantID,
		Name:         req.Name,
		Email:        req.Email,
		Phone:        req.Phone,
		CPF:          req.CPF,
		Whatsapp:     req.Whatsapp,
		Source:       "manual",
	}
	if err := db.CreateCustomer(c.Request.Context(), &customer); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Customer with this phone or CPF already exists"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"customer": customer})
}
