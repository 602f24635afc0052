package services

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"tably-server/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const settingsCacheTTL = 5 * time.Minute

// restaurantBackend is the slice of the store the cache sits in front of.
type restaurantBackend interface {
	RestaurantStore
	UpdateRestaurantSettings(ctx context.Context, id uuid.UUID, settings models.RestaurantSettings) error
}

// restaurantCacheEntry carries the api key alongside the restaurant because the
// key is stripped from the restaurant's own JSON form.
type restaurantCacheEntry struct {
	Restaurant models.Restaurant `json:"restaurant"`
	APIKey     *string           `json:"api_key"`
}

// SettingsCache is a read-through cache for restaurant records. Check-in and
// settings lookups run on every public page load, so they are served from Redis
// when possible. A nil Redis client degrades to direct store access.
type SettingsCache struct {
	store restaurantBackend
	rdb   *redis.Client
}

func NewSettingsCache(store restaurantBackend, rdb *redis.Client) *SettingsCache {
	return &SettingsCache{store: store, rdb: rdb}
}

func restaurantIDKey(id uuid.UUID) string  { return "restaurant:id:" + id.String() }
func restaurantSlugKey(slug string) string { return "restaurant:slug:" + slug }

func (c *SettingsCache) GetRestaurantByID(ctx context.Context, id uuid.UUID) (*models.Restaurant, error) {
	if r := c.cached(ctx, restaurantIDKey(id)); r != nil {
		return r, nil
	}
	r, err := c.store.GetRestaurantByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.put(ctx, r)
	return r, nil
}

func (c *SettingsCache) GetRestaurantBySlug(ctx context.Context, slug string) (*models.Restaurant, error) {
	if r := c.cached(ctx, restaurantSlugKey(slug)); r != nil {
		return r, nil
	}
	r, err := c.store.GetRestaurantBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	c.put(ctx, r)
	return r, nil
}

// UpdateRestaurantSettings writes through to the store and drops the cached
// copy so the next read sees the new settings.
func (c *SettingsCache) UpdateRestaurantSettings(ctx context.Context, id uuid.UUID, settings models.RestaurantSettings) error {
	if err := c.store.UpdateRestaurantSettings(ctx, id, settings); err != nil {
		return err
	}
	c.Invalidate(ctx, id)
	return nil
}

// Invalidate removes both cache keys for the restaurant.
func (c *SettingsCache) Invalidate(ctx context.Context, id uuid.UUID) {
	if c.rdb == nil {
		return
	}
	keys := []string{restaurantIDKey(id)}
	if r, err := c.store.GetRestaurantByID(ctx, id); err == nil {
		keys = append(keys, restaurantSlugKey(r.Slug))
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		log.Printf("Failed to invalidate restaurant cache for %s: %v", id, err)
	}
}

func (c *SettingsCache) cached(ctx context.Context, key string) *models.Restaurant {
	if c.rdb == nil {
		return nil
	}
	data, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Printf("Redis get failed for %s: %v", key, err)
		}
		return nil
	}
	var entry restaurantCacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		log.Printf("Dropping corrupt cache entry %s: %v", key, err)
		c.rdb.Del(ctx, key)
		return nil
	}
	entry.Restaurant.WhatsappAPIKey = entry.APIKey
	return &entry.Restaurant
}

func (c *SettingsCache) put(ctx context.Context, r *models.Restaurant) {
	if c.rdb == nil {
		return
	}
	data, err := json.Marshal(restaurantCacheEntry{Restaurant: *r, APIKey: r.WhatsappAPIKey})
	if err != nil {
		return
	}
	pipe := c.rdb.Pipeline()
	pipe.Set(ctx, restaurantIDKey(r.ID), data, settingsCacheTTL)
	pipe.Set(ctx, restaurantSlugKey(r.Slug), data, settingsCacheTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("Failed to cache restaurant %s: %v", r.ID, err)
	}
}
