// Package registry persists the phone-number/IMEI roster in SQLite.
package registry

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"ussd-gateway/internal/models"
)

// Sentinel errors surfaced to the handler layer for status mapping.
var (
	ErrAlreadyExists = fmt.Errorf("phone number already exists")
	ErrNotFound      = fmt.Errorf("phone number not found")
)

// DB wraps the registry database connection.
type DB struct {
	conn *sql.DB
}

// NewDB opens the registry database and initializes the schema.
func NewDB(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=1")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS phone_numbers (
			phone_number TEXT PRIMARY KEY,
			imei TEXT NOT NULL,
			label TEXT NOT NULL,
			added_at TEXT NOT NULL,
			created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_phone_imei ON phone_numbers(imei)`,
	}

	for _, query := range queries {
		if _, err := db.conn.Exec(query); err != nil {
			return fmt.Errorf("failed to execute schema query: %w", err)
		}
	}

	return nil
}

// Add inserts a new phone number entry. Duplicate numbers are rejected with
// ErrAlreadyExists.
func (db *DB) Add(entry models.PhoneNumberEntry) error {
	var exists int
	err := db.conn.QueryRow(
		`SELECT COUNT(*) FROM phone_numbers WHERE phone_number = ?`,
		entry.PhoneNumber,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check phone number: %w", err)
	}
	if exists > 0 {
		return ErrAlreadyExists
	}

	_, err = db.conn.Exec(
		`INSERT INTO phone_numbers (phone_number, imei, label, added_at) VALUES (?, ?, ?, ?)`,
		entry.PhoneNumber,
		entry.IMEI,
		entry.Label,
		entry.AddedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert phone number: %w", err)
	}

	return nil
}

// List returns all registered phone numbers, oldest first.
func (db *DB) List() ([]models.PhoneNumberEntry, error) {
	rows, err := db.conn.Query(
		`SELECT phone_number, imei, label, added_at FROM phone_numbers ORDER BY added_at, phone_number`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query phone numbers: %w", err)
	}
	defer rows.Close()

	entries := []models.PhoneNumberEntry{}
	for rows.Next() {
		var entry models.PhoneNumberEntry
		if err := rows.Scan(&entry.PhoneNumber, &entry.IMEI, &entry.Label, &entry.AddedAt); err != nil {
			return nil, fmt.Errorf("failed to scan phone number: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating phone numbers: %w", err)
	}

	return entries, nil
}

// Get looks up one entry by phone number.
func (db *DB) Get(phoneNumber string) (models.PhoneNumberEntry, error) {
	var entry models.PhoneNumberEntry
	err := db.conn.QueryRow(
		`SELECT phone_number, imei, label, added_at FROM phone_numbers WHERE phone_number = ?`,
		phoneNumber,
	).Scan(&entry.PhoneNumber, &entry.IMEI, &entry.Label, &entry.AddedAt)
	if err == sql.ErrNoRows {
		return models.PhoneNumberEntry{}, ErrNotFound
	}
	if err != nil {
		return models.PhoneNumberEntry{}, fmt.Errorf("failed to query phone number: %w", err)
	}
	return entry, nil
}

// Delete removes a phone number, reporting ErrNotFound when absent.
func (db *DB) Delete(phoneNumber string) error {
	res, err := db.conn.Exec(`DELETE FROM phone_numbers WHERE phone_number = ?`, phoneNumber)
	if err != nil {
		return fmt.Errorf("failed to delete phone number: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read delete result: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

// Seed inserts the given entries if the registry is empty, stamping them
// with the current time.
func (db *DB) Seed(entries []models.PhoneNumberEntry) error {
	existing, err := db.List()
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	now := time.Now().UTC().Format(time.RFC3339)
	for _, entry := range entries {
		if entry.AddedAt == "" {
			entry.AddedAt = now
		}
		if err := db.Add(entry); err != nil {
			return err
		}
	}

	return nil
}
