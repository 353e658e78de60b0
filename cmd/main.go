package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/signaldesk/signaldesk-server/cmd/api"
	"github.com/signaldesk/signaldesk-server/cmd/models"
	"github.com/signaldesk/signaldesk-server/db"
)

func main() {
	// Check for command-line arguments
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "migrate":
			runMigrations()
			return
		case "clear-db":
			runDatabaseClear()
			return
		case "seed-admin":
			runAdminSeed()
			return
		case "check-admin":
			runAdminCheck()
			return
		default:
			log.Fatalf("Unknown command: %s", os.Args[1])
		}
	}

	// Start the server
	startServer()
}

func runMigrations() {
	DB, err := db.NewStorage()
	if err != nil {
		log.Fatalf("Database initialization error: %v", err)
	}
	defer func() {
		sqlDB, _ := DB.DB()
		sqlDB.Close()
		log.Println("Database connection closed")
	}()
	log.Println("Connected to the database for migrations")

	// Perform migrations
	if err := performMigrations(DB); err != nil {
		log.Fatalf("Migration error: %v", err)
	}
	log.Println("Migrations completed successfully")
}

func performMigrations(DB *gorm.DB) error {

	migrations := map[interface{}]string{
		&models.User{}:         "User",
		&models.Signal{}:       "Signal",
		&models.Payment{}:      "Payment",
		&models.Subscription{}: "Subscription",
		&models.ActivityLog{}:  "ActivityLog",
		&models.AppSettings{}:  "AppSettings",
		&models.Device{}:       "Device",
	}

	log.Println("Starting database migrations...")
	for model, name := range migrations {
		log.Printf("Migrating %s table...", name)
		if err := DB.AutoMigrate(model); err != nil {
			return fmt.Errorf("error migrating %s table: %w", name, err)
		}
		log.Printf("%s migration successful", name)
	}

	log.Println("All migrations completed successfully")
	return nil
}

func startServer() {
	// Initialize database connection
	DB, err := db.NewStorage()
	if err != nil {
		log.Fatalf("Database initialization error: %v", err)
	}
	defer func() {
		sqlDB, _ := DB.DB()
		sqlDB.Close()
		log.Println("Database connection closed")
	}()
	log.Println("Connected to the database")

	// Graceful shutdown setup
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	// Start the API server
	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}
	server := api.NewApiServer(":"+port, DB)

	go func() {
		if err := server.Run(); err != nil {
			log.Fatalf("Server error: %v", err)
		}
	}()
	log.Printf("Server running on port %s", port)

	<-quit
	log.Println("Shutting down server...")
}

// runAdminSeed creates or updates the admin account from ADMIN_EMAIL and
// ADMIN_PASSWORD. Safe to run repeatedly.
func runAdminSeed() {
	email := os.Getenv("ADMIN_EMAIL")
	password := os.Getenv("ADMIN_PASSWORD")
	if email == "" || password == "" {
		log.Fatal("ADMIN_EMAIL and ADMIN_PASSWORD must be set")
	}

	DB, err := db.NewStorage()
	if err != nil {
		log.Fatalf("Database initialization error: %v", err)
	}
	defer func() {
		sqlDB, _ := DB.DB()
		sqlDB.Close()
	}()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), 12)
	if err != nil {
		log.Fatalf("Error hashing password: %v", err)
	}

	var user models.User
	result := DB.Where("email = ?", email).First(&user)
	if result.Error != nil {
		if result.Error != gorm.ErrRecordNotFound {
			log.Fatalf("Error looking up admin user: %v", result.Error)
		}
		user = models.User{
			FullName:     "Administrator",
			Email:        email,
			PasswordHash: string(hash),
			Role:         models.RoleAdmin,
			Active:       true,
		}
		if err := DB.Create(&user).Error; err != nil {
			log.Fatalf("Error creating admin user: %v", err)
		}
		log.Printf("Admin user %s created", email)
		return
	}

	updates := map[string]interface{}{
		"password_hash": string(hash),
		"role":          models.RoleAdmin,
		"active":        true,
	}
	if err := DB.Model(&user).Updates(updates).Error; err != nil {
		log.Fatalf("Error updating admin user: %v", err)
	}
	log.Printf("Admin user %s updated", email)
}

// runAdminCheck verifies that the stored admin hash matches ADMIN_PASSWORD.
// Diagnostic only; prints the result and exits.
func runAdminCheck() {
	email := os.Getenv("ADMIN_EMAIL")
	password := os.Getenv("ADMIN_PASSWORD")
	if email == "" || password == "" {
		log.Fatal("ADMIN_EMAIL and ADMIN_PASSWORD must be set")
	}

	DB, err := db.NewStorage()
	if err != nil {
		log.Fatalf("Database initialization error: %v", err)
	}
	defer func() {
		sqlDB, _ := DB.DB()
		sqlDB.Close()
	}()

	var user models.User
	if err := DB.Where("email = ?", email).First(&user).Error; err != nil {
		log.Fatalf("Admin user %s not found: %v", email, err)
	}

	log.Printf("Admin user found: id=%d role=%s active=%t", user.ID, user.Role, user.Active)
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		log.Println("Password check FAILED: stored hash does not match ADMIN_PASSWORD")
		os.Exit(1)
	}
	log.Println("Password check OK")
}

func clearDatabase(DB *gorm.DB, tables []interface{}) error {
	if len(tables) == 0 {
		// Default: Drop all tables
		tables = []interface{}{
			&models.ActivityLog{},
			&models.Device{},
			&models.Payment{},
			&models.Subscription{},
			&models.Signal{},
			&models.AppSettings{},
			&models.User{},
		}
	}

	log.Println("Dropping tables...")

	for _, table := range tables {
		if err := DB.Migrator().DropTable(table); err != nil {
			log.Printf("Warning dropping table %T: %v", table, err)
		} else {
			log.Printf("Table %T dropped", table)
		}
	}

	return nil
}

func runDatabaseClear() {
	DB, err := db.NewStorage()
	if err != nil {
		log.Fatalf("Database initialization error: %v", err)
	}
	defer func() {
		sqlDB, _ := DB.DB()
		sqlDB.Close()
		log.Println("Database connection closed")
	}()

	log.Println("Preparing to clear database...")

	// Optional: Add a confirmation prompt
	var confirmation string
	fmt.Print("Are you sure you want to clear the database? (yes/no): ")
	fmt.Scanln(&confirmation)

	if confirmation != "yes" {
		log.Println("Database clearing cancelled.")
		return
	}

	// Ask for specific tables to clear
	var tableNames string
	fmt.Print("Enter table names to clear (comma separated) or leave blank to clear all: ")
	fmt.Scanln(&tableNames)

	var tables []interface{}
	if tableNames != "" {
		tableList := splitTableNames(tableNames)
		for _, table := range tableList {
			switch strings.TrimSpace(table) {
			case "User":
				tables = append(tables, &models.User{})
			case "Signal":
				tables = append(tables, &models.Signal{})
			case "Payment":
				tables = append(tables, &models.Payment{})
			case "Subscription":
				tables = append(tables, &models.Subscription{})
			case "ActivityLog":
				tables = append(tables, &models.ActivityLog{})
			case "AppSettings":
				tables = append(tables, &models.AppSettings{})
			case "Device":
				tables = append(tables, &models.Device{})
			default:
				log.Printf("Unknown table: %s", table)
			}
		}
	}

	// Clear the specified tables (or all tables if none specified)
	if err := clearDatabase(DB, tables); err != nil {
		log.Fatalf("Error clearing database: %v", err)
	}

	log.Println("Database cleared successfully")
}

func splitTableNames(tableNames string) []string {
	return strings.Split(tableNames, ",")
}
