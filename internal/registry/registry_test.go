package registry

import (
	"errors"
	"os"
	"testing"

	"github.com/google/uuid"
	"ussd-gateway/internal/models"
)

func setupTestDB(t *testing.T) (*DB, func()) {
	t.Helper()

	dbPath := "./test_registry_" + uuid.New().String() + ".db"
	db, err := NewDB(dbPath)
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}

	cleanup := func() {
		db.Close()
		os.Remove(dbPath)
	}
	return db, cleanup
}

func entry(number string) models.PhoneNumberEntry {
	return models.PhoneNumberEntry{
		PhoneNumber: number,
		IMEI:        "352098060000002",
		Label:       "Phone " + number,
		AddedAt:     "2026-08-01T10:00:00Z",
	}
}

func TestAddAndGet(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	want := entry("+254712345678")
	if err := db.Add(want); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	got, err := db.Get("+254712345678")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != want {
		t.Errorf("Get returned %+v, want %+v", got, want)
	}
}

func TestAdd_DuplicateRejected(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	if err := db.Add(entry("+254712345678")); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	err := db.Add(entry("+254712345678"))
	if !errors.Is(err, ErrAlreadyExists) {
		t.Errorf("Expected ErrAlreadyExists, got %v", err)
	}
}

func TestList_OrderedAndEmptyByDefault(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	entries, err := db.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected empty registry, got %d entries", len(entries))
	}

	first := entry("+254723456789")
	first.AddedAt = "2026-08-01T09:00:00Z"
	second := entry("+254712345678")
	second.AddedAt = "2026-08-01T11:00:00Z"

	if err := db.Add(second); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := db.Add(first); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	entries, err = db.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}
	if entries[0].PhoneNumber != first.PhoneNumber {
		t.Errorf("Expected oldest entry first, got %s", entries[0].PhoneNumber)
	}
}

func TestGet_NotFound(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := db.Get("+254700000000")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	if err := db.Add(entry("+254712345678")); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := db.Delete("+254712345678"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	_, err := db.Get("+254712345678")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Entry still present after delete: %v", err)
	}

	if err := db.Delete("+254712345678"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound on second delete, got %v", err)
	}
}

func TestSeed_OnlyWhenEmpty(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	seed := []models.PhoneNumberEntry{
		{PhoneNumber: "+254712345678", IMEI: "352098060000002", Label: "Demo 1"},
		{PhoneNumber: "+254723456789", IMEI: "353283081234562", Label: "Demo 2"},
	}

	if err := db.Seed(seed); err != nil {
		t.Fatalf("Seed failed: %v", err)
	}

	entries, err := db.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Expected 2 seeded entries, got %d", len(entries))
	}
	if entries[0].AddedAt == "" {
		t.Error("Seed must stamp AddedAt")
	}

	// Re-seeding a populated registry is a no-op.
	if err := db.Seed(seed); err != nil {
		t.Fatalf("Second Seed failed: %v", err)
	}
	entries, _ = db.List()
	if len(entries) != 2 {
		t.Errorf("Seed must not duplicate entries, got %d", len(entries))
	}
}
