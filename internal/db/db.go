package db

import (
	"fmt"
	"log"
	"strings"
	"townhall/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to the database named by databaseURL. A "postgres://" URL
// selects PostgreSQL; "sqlite://<path>" selects the embedded SQLite driver.
func Open(databaseURL string) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		dialector = postgres.Open(databaseURL)
		log.Println("Connecting to PostgreSQL database...")
	case strings.HasPrefix(databaseURL, "sqlite://"):
		dsn := strings.TrimPrefix(databaseURL, "sqlite://")
		dialector = sqlite.Open(dsn)
		log.Println("Connecting to SQLite database at", dsn)
	default:
		return nil, fmt.Errorf("invalid DATABASE_URL %q: must start with postgres:// or sqlite://", databaseURL)
	}

	gdb, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	if dialector.Name() == "sqlite" {
		// SQLite 只允许一个写连接
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
	}

	log.Println("Database connection established")
	return gdb, nil
}

// Migrate creates or updates every table the forum uses.
func Migrate(gdb *gorm.DB) error {
	err := gdb.AutoMigrate(
		&models.User{},
		&models.Post{},
		&models.PostVote{},
		&models.Comment{},
		&models.CommentVote{},
		&models.Poll{},
		&models.PollOption{},
		&models.PollVote{},
		&models.Media{},
		&models.Report{},
	)
	if err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	log.Println("Database migration completed")
	return nil
}
