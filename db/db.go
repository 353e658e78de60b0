package db

import (
	"errors"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// ResolveDSN picks the database connection string. A Postgres-scheme
// DATABASE_URL wins, then TURSO_DATABASE_URL, then a raw DATABASE_URL.
func ResolveDSN() (string, error) {
	raw := os.Getenv("DATABASE_URL")
	if strings.HasPrefix(raw, "postgres://") || strings.HasPrefix(raw, "postgresql://") {
		return raw, nil
	}

	if turso := os.Getenv("TURSO_DATABASE_URL"); turso != "" {
		return turso, nil
	}

	if raw != "" {
		return raw, nil
	}

	return "", errors.New("no database configured: set DATABASE_URL or TURSO_DATABASE_URL")
}

func NewStorage() (*gorm.DB, error) {

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using process environment")
	}

	connString, err := ResolveDSN()
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(postgres.Open(connString), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxOpenConns(25)

	sqlDB.SetMaxIdleConns(25)

	return db, nil
}
