package database

import (
	"database/sql"
	"errors"
	"fmt"
	"log"

	"tably-server/models"

	"github.com/lib/pq"
)

// Storage-level sentinel errors. Services translate these into their own error
// taxonomy before they reach a handler.
var (
	ErrNotFound               = errors.New("record not found")
	ErrDuplicateActiveSession = errors.New("customer already has an active check-in")
	ErrCouponCodeCollision    = errors.New("coupon code already exists")
)

type DB struct {
	*sql.DB
}

var Database *DB

// Connect establishes a connection to the PostgreSQL database
func Connect(databaseURL string) (*DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	Database = &DB{db}
	return Database, nil
}

// InitializeTables creates all tables if they don't exist
func (db *DB) InitializeTables() error {
	// Enable pgcrypto extension
	if _, err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "pgcrypto";`); err != nil {
		return fmt.Errorf("failed to enable pgcrypto extension: %w", err)
	}

	// Order respects foreign key dependencies
	tables := []interface{}{
		models.Restaurant{},
		models.User{},
		models.Customer{},
		models.Reward{},
		models.Coupon{},
		models.Checkin{},
		models.WhatsappMessage{},
	}

	for _, model := range tables {
		if tableModel, ok := model.(interface {
			TableName() string
			CreateTableSQL() string
		}); ok {
			tableName := tableModel.TableName()
			createSQL := tableModel.CreateTableSQL()

			log.Printf("Creating table: %s", tableName)
			if _, err := db.Exec(createSQL); err != nil {
				return fmt.Errorf("failed to create table %s: %w", tableName, err)
			}
		}
	}

	// Run schema migrations
	if err := db.runMigrations(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Println("All tables created successfully!")
	return nil
}

// runMigrations handles schema updates for existing tables
func (db *DB) runMigrations() error {
	migrations := []string{
		// Older databases may predate the coupon link on checkins
		`ALTER TABLE checkins ADD COLUMN IF NOT EXISTS coupon_id UUID;`,

		// Older databases may predate the milestone column on coupons
		`ALTER TABLE coupons ADD COLUMN IF NOT EXISTS visit_milestone INTEGER;`,

		// Backfill segments for rows created before the column existed
		`UPDATE customers SET customer_segment = 'new' WHERE customer_segment IS NULL;`,

		// Gateway credentials were added after the initial restaurants schema
		`ALTER TABLE restaurants ADD COLUMN IF NOT EXISTS whatsapp_api_url TEXT;`,
		`ALTER TABLE restaurants ADD COLUMN IF NOT EXISTS whatsapp_api_key TEXT;`,
		`ALTER TABLE restaurants ADD COLUMN IF NOT EXISTS whatsapp_instance_id TEXT;`,
	}

	for i, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			log.Printf("Warning: Migration %d failed: %v", i+1, err)
			// Continue with other migrations even if one fails
		}
	}

	log.Println("Migrations completed!")
	return nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.DB.Close()
}

// isUniqueViolation reports whether err is a violation of the named constraint.
// An empty constraint matches any unique violation.
func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	if pqErr.Code != "23505" {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}
