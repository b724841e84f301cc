package database

import (
	"context"
	"errors"
	"log"
	"os"
	"time"

	"github.com/reem20050/workforce-intel/pkg/models"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// APIKey represents the api_keys table
type APIKey struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	Key        string     `gorm:"unique;not null" json:"key"`
	Name       string     `gorm:"not null" json:"name"`
	KeyPreview string     `json:"key_preview"`
	RateLimit  int        `gorm:"default:10000" json:"rate_limit"`
	CreatedAt  time.Time  `json:"created_at"`
	LastUsed   *time.Time `json:"last_used"`
}

// APIUsage represents the api_usage table
type APIUsage struct {
	ID               uint   `gorm:"primaryKey" json:"id"`
	KeyID            uint   `gorm:"uniqueIndex:idx_key_date;not null" json:"key_id"`
	Date             string `gorm:"uniqueIndex:idx_key_date;not null" json:"date"`
	RequestCount     int    `gorm:"default:0" json:"request_count"`
	TotalSuggestions int    `gorm:"default:0" json:"total_suggestions"`
	TotalCandidates  int    `gorm:"default:0" json:"total_candidates"`
}

// MasterUser represents the master_users table
type MasterUser struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"unique;not null" json:"username"`
	PasswordHash string    `gorm:"not null" json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
}

// InitDB initializes the database connection and migrates the schema
func InitDB() *gorm.DB {
	var db *gorm.DB
	var err error

	dsn := os.Getenv("DATABASE_URL")
	if dsn != "" {
		db, err = gorm.Open(postgres.New(postgres.Config{
			DSN:                  dsn,
			PreferSimpleProtocol: true,
		}), &gorm.Config{
			PrepareStmt: false,
		})
	} else {
		dbPath := os.Getenv("DATA_PATH")
		if dbPath == "" {
			dbPath = "workforce.db"
		}
		db, err = gorm.Open(sqlite.Open(dbPath), &gorm.Config{})
	}

	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	// Auto Migration
	db.AutoMigrate(
		&models.Site{},
		&models.Employee{},
		&models.Shift{},
		&models.ShiftAssignment{},
		&models.WeeklyInsight{},
		&APIKey{},
		&APIUsage{},
		&MasterUser{},
	)

	return db
}

// InsightStore persists weekly insight snapshots as append-only rows.
// Snapshots are never updated or deleted; a new run supersedes the last.
type InsightStore struct {
	DB *gorm.DB
}

// NewInsightStore returns a store writing through the given connection
func NewInsightStore(db *gorm.DB) *InsightStore {
	return &InsightStore{DB: db}
}

// Append inserts one snapshot row
func (s *InsightStore) Append(ctx context.Context, insight *models.WeeklyInsight) error {
	return s.DB.WithContext(ctx).Create(insight).Error
}

// Latest returns the newest snapshot, or nil when none exists
func (s *InsightStore) Latest(ctx context.Context) (*models.WeeklyInsight, error) {
	var insight models.WeeklyInsight
	err := s.DB.WithContext(ctx).Order("created_at desc, id desc").First(&insight).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &insight, nil
}
