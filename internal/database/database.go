// Package database opens the listing and user stores selected by
// STORE_DRIVER.
package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"valuedrive/internal/models"
	"valuedrive/internal/repositories"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var ErrUnsupportedDriver = errors.New("unsupported store driver")

// DefaultSQLitePath is used when STORE_DRIVER=sqlite and no DSN is set.
const DefaultSQLitePath = "valuedrive.db"

type Opts struct {
	Driver          string // memory / sqlite / postgres / mysql / mongo
	DSN             string
	MongoURI        string
	MongoDatabase   string
	UniqueCarNumber bool
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	LogLevel        string // silent / error / warn / info
}

// Stores bundles the repositories of one driver.
type Stores struct {
	Listings repositories.ListingRepository
	Users    repositories.UserRepository
	close    func(context.Context) error
}

// Close releases the underlying connection.
func (s *Stores) Close(ctx context.Context) error {
	if s.close == nil {
		return nil
	}
	return s.close(ctx)
}

// Open connects to the configured store and prepares its schema.
func Open(ctx context.Context, o Opts) (*Stores, error) {
	switch o.Driver {
	case "memory":
		return &Stores{
			Listings: repositories.NewMockListingRepository(),
			Users:    repositories.NewMockUserRepository(),
		}, nil
	case "mongo":
		return openMongo(ctx, o)
	case "sqlite", "postgres", "mysql":
		db, err := NewGorm(o)
		if err != nil {
			return nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		return &Stores{
			Listings: repositories.NewGORMListingRepository(db),
			Users:    repositories.NewGORMUserRepository(db),
			close:    func(context.Context) error { return sqlDB.Close() },
		}, nil
	}
	return nil, fmt.Errorf("%q: %w", o.Driver, ErrUnsupportedDriver)
}

// NewGorm opens a SQL store and migrates the listing and user tables.
func NewGorm(o Opts) (*gorm.DB, error) {
	var dial gorm.Dialector
	switch o.Driver {
	case "sqlite":
		dsn := o.DSN
		if dsn == "" {
			dsn = DefaultSQLitePath
		}
		dial = sqlite.Open(dsn)
	case "postgres":
		dial = postgres.Open(o.DSN)
	case "mysql":
		dial = mysql.Open(o.DSN)
	default:
		return nil, fmt.Errorf("%q: %w", o.Driver, ErrUnsupportedDriver)
	}

	lvl := logger.Warn
	switch o.LogLevel {
	case "silent":
		lvl = logger.Silent
	case "error":
		lvl = logger.Error
	case "info":
		lvl = logger.Info
	}
	db, err := gorm.Open(dial, &gorm.Config{
		Logger:         logger.Default.LogMode(lvl),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", o.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if o.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(o.MaxOpenConns)
	}
	if o.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(o.MaxIdleConns)
	}
	if o.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(o.ConnMaxLifetime)
	}

	if err := db.AutoMigrate(&models.Listing{}, &models.User{}); err != nil {
		return nil, fmt.Errorf("automigrate failed: %w", err)
	}
	if o.UniqueCarNumber {
		if err := uniqueCarNumberIndex(db); err != nil {
			return nil, err
		}
	}
	return db, nil
}

// UniqueCarNumberIndex backs UNIQUE_CAR_NUMBER on SQL stores.
const UniqueCarNumberIndex = "ux_listings_car_number"

func uniqueCarNumberIndex(db *gorm.DB) error {
	if db.Migrator().HasIndex(&models.Listing{}, UniqueCarNumberIndex) {
		return nil
	}
	err := db.Exec("CREATE UNIQUE INDEX " + UniqueCarNumberIndex + " ON listings (car_number)").Error
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", UniqueCarNumberIndex, err)
	}
	return nil
}

func openMongo(ctx context.Context, o Opts) (*Stores, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(o.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	db := client.Database(o.MongoDatabase)
	listings, err := repositories.NewMongoListingRepository(ctx, db, o.UniqueCarNumber)
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	users, err := repositories.NewMongoUserRepository(ctx, db)
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return &Stores{Listings: listings, Users: users, close: client.Disconnect}, nil
}
