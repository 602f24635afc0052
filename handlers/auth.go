package handlers

import (
	"net/http"
	"strings"
	"time"

	"tably-server/config"
	"tably-server/models"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Claims represents the JWT claims
type Claims struct {
	UserID       string `json:"user_id"`
	RestaurantID string `json:"restaurant_id,omitempty"`
	jwt.RegisteredClaims
}

// generateJWTToken generates a JWT token (15 days expiration)
func generateJWTToken(userID, restaurantID string) (string, error) {
	claims := &Claims{
		UserID:       userID,
		RestaurantID: restaurantID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(15 * 24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(config.AppConfig.JWTSecret))
}

// RegisterUser creates a staff account tied to a restaurant
func RegisterUser(c *gin.Context) {
	var req struct {
		Phone        string     `json:"phone" binding:"required"`
		Password     string     `json:"password" binding:"required,min=6"`
		FullName     string     `json:"full_name"`
		RestaurantID *uuid.UUID `json:"restaurant_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
		return
	}
	hashStr := string(hash)

	user := models.User{
		RestaurantID: req.RestaurantID,
		Phone:        req.Phone,
		PasswordHash: &hashStr,
		Role:         "staff",
	}
	if req.FullName != "" {
		user.FullName = &req.FullName
	}

	if err := db.CreateUser(c.Request.Context(), &user); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Phone already registered"})
		return
	}

	restaurantID := ""
	if user.RestaurantID != nil {
		restaurantID = user.RestaurantID.String()
	}
	token, err := generateJWTToken(user.ID.String(), restaurantID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"user": user, "token": token})
}

// LoginUser authenticates a staff member by phone and password
func LoginUser(c *gin.Context) {
	var req struct {
		Phone    string `json:"phone" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	user, err := db.GetUserByPhone(c.Request.Context(), req.Phone)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}
	if !user.IsActive {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Account is deactivated"})
		return
	}
	if user.PasswordHash == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	restaurantID := ""
	if user.RestaurantID != nil {
		restaurantID = user.RestaurantID.String()
	}
	token, err := generateJWTToken(user.ID.String(), restaurantID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user, "token": token})
}

// AuthMiddleware validates the Bearer token and stores the user and restaurant
// ids on the context.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			c.Abort()
			return
		}

		claims := &Claims{}
		token, err := jwt.ParseWithClaims(strings.TrimPrefix(header, "Bearer "), claims, func(t *jwt.Token) (interface{}, error) {
			return []byte(config.AppConfig.JWTSecret), nil
		})
		if err != nil || !token.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("restaurant_id", claims.RestaurantID)
		c.Next()
	}
}

// currentUserID reads the authenticated user id set by AuthMiddleware.
func currentUserID(c *gin.Context) (uuid.UUID, bool) {
	raw := c.GetString("user_id")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// currentRestaurantID reads the authenticated user's restaurant id. Staff
// accounts without a restaurant cannot reach restaurant-scoped endpoints.
func currentRestaurantID(c *gin.Context) (uuid.UUID, bool) {
	raw := c.GetString("restaurant_id")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
