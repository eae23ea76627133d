package testutil

import (
	"database/sql"
	"fmt"
	"os"
	"testing"

	_ "github.com/go-sql-driver/mysql"
)

const defaultTestDSN = "root:@tcp(localhost:3306)/staybook_test?parseTime=true&loc=UTC"

// SetupTestDB opens the integration database. TEST_DATABASE_DSN overrides the
// default localhost DSN; the test is skipped when MySQL is not reachable.
func SetupTestDB(t *testing.T) *sql.DB {
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		dsn = defaultTestDSN
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("test database not available: %v", err)
	}

	return db
}

// CleanupTestDB empties every table and closes db.
func CleanupTestDB(t *testing.T, db *sql.DB) {
	if db == nil {
		return
	}

	tables := []string{"RefundRetries", "Payments", "Bookings", "Rooms"}
	for _, table := range tables {
		if _, err := db.Exec(fmt.Sprintf("DELETE FROM %s", table)); err != nil {
			t.Logf("failed to clean table %s: %v", table, err)
		}
	}

	db.Close()
}

// SetupTestTables creates the schema used by the repositories.
func SetupTestTables(t *testing.T, db *sql.DB) {
	for _, tbl := range Schema {
		if _, err := db.Exec(tbl.Query); err != nil {
			t.Fatalf("failed to create table %s: %v", tbl.Name, err)
		}
	}
}

type Table struct {
	Name  string
	Query string
}

var Schema = []Table{
	{"Rooms", `
	CREATE TABLE IF NOT EXISTS Rooms (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		hotelId BIGINT UNSIGNED NOT NULL,
		name VARCHAR(150) NOT NULL,
		capacity INT NOT NULL,
		totalInventory INT NOT NULL,
		pricePerNight DECIMAL(10,2) NOT NULL,
		isActive TINYINT(1) NOT NULL DEFAULT 1,
		createdAt DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updatedAt DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		INDEX idx_hotel (hotelId),
		CHECK (capacity >= 1),
		CHECK (totalInventory >= 1)
	)`},
	{"Bookings", `
	CREATE TABLE IF NOT EXISTS Bookings (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		roomId BIGINT UNSIGNED NOT NULL,
		userId BIGINT UNSIGNED NOT NULL,
		checkIn DATE NOT NULL,
		checkOut DATE NOT NULL,
		guests INT NOT NULL,
		units INT NOT NULL,
		totalPrice DECIMAL(10,2) NOT NULL,
		status VARCHAR(20) NOT NULL DEFAULT 'pending',
		specialRequests TEXT NULL,
		cancellationReason VARCHAR(500) NULL,
		cancelledAt DATETIME NULL,
		refundAmount DECIMAL(10,2) NULL,
		createdAt DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updatedAt DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		FOREIGN KEY (roomId) REFERENCES Rooms(id),
		INDEX idx_room_stay (roomId, status, checkIn, checkOut),
		INDEX idx_user (userId),
		CHECK (checkOut > checkIn)
	)`},
	{"Payments", `
	CREATE TABLE IF NOT EXISTS Payments (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		bookingId BIGINT UNSIGNED NOT NULL UNIQUE,
		amount DECIMAL(10,2) NOT NULL,
		currency VARCHAR(3) NOT NULL,
		transactionId VARCHAR(255) NOT NULL UNIQUE,
		status VARCHAR(20) NOT NULL DEFAULT 'pending',
		refundAmount DECIMAL(10,2) NULL,
		refundId VARCHAR(255) NULL,
		refundedAt DATETIME NULL,
		createdAt DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updatedAt DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		FOREIGN KEY (bookingId) REFERENCES Bookings(id)
	)`},
	{"RefundRetries", `
	CREATE TABLE IF NOT EXISTS RefundRetries (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		bookingId BIGINT UNSIGNED NOT NULL,
		transactionId VARCHAR(255) NOT NULL,
		amount DECIMAL(10,2) NOT NULL,
		idempotencyKey VARCHAR(64) NOT NULL UNIQUE,
		status VARCHAR(20) NOT NULL DEFAULT 'pending',
		attempts INT NOT NULL DEFAULT 0,
		lastError TEXT NULL,
		nextAttemptAt DATETIME NOT NULL,
		createdAt DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updatedAt DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		FOREIGN KEY (bookingId) REFERENCES Bookings(id),
		INDEX idx_due (status, nextAttemptAt)
	)`},
}
