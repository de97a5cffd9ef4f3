package service

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	"ussd-gateway/internal/models"
	"ussd-gateway/internal/registry"
	"ussd-gateway/internal/validation"
)

func setupTestService(t *testing.T) (*Service, func()) {
	t.Helper()

	dbPath := "./test_service_" + uuid.New().String() + ".db"
	reg, err := registry.NewDB(dbPath)
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}

	svc := NewService(reg, DefaultOptions())
	cleanup := func() {
		reg.Close()
		os.Remove(dbPath)
	}
	return svc, cleanup
}

func ussdRequest(code, input string, menuPath ...string) models.USSDRequest {
	return models.USSDRequest{
		PhoneNumber: "+254712345678",
		SessionID:   "session-1",
		USSDCode:    code,
		IMEI:        "352098060000002",
		Input:       input,
		MenuPath:    menuPath,
	}
}

func TestProcess_RejectsMissingFields(t *testing.T) {
	svc, cleanup := setupTestService(t)
	defer cleanup()

	tests := []struct {
		field  string
		mutate func(*models.USSDRequest)
	}{
		{"phoneNumber", func(r *models.USSDRequest) { r.PhoneNumber = "" }},
		{"sessionId", func(r *models.USSDRequest) { r.SessionID = "" }},
		{"ussdCode", func(r *models.USSDRequest) { r.USSDCode = "" }},
		{"imei", func(r *models.USSDRequest) { r.IMEI = "" }},
	}

	for _, tt := range tests {
		req := ussdRequest("*144#", "")
		tt.mutate(&req)

		_, err := svc.Process(context.Background(), req)
		var verr *validation.ValidationError
		if !errors.As(err, &verr) {
			t.Errorf("Field %s: expected a validation error, got %v", tt.field, err)
			continue
		}
		if verr.Field != tt.field {
			t.Errorf("Expected error on field %s, got %s", tt.field, verr.Field)
		}
	}
}

func TestProcess_PremiumBalance(t *testing.T) {
	svc, cleanup := setupTestService(t)
	defer cleanup()

	resp, err := svc.Process(context.Background(), ussdRequest("*144#", ""))
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if resp.ContinueSession {
		t.Error("Balance inquiry must be terminal")
	}
	if !strings.Contains(resp.Message, "KSh 250.50") {
		t.Errorf("Expected the premium demo balance:\n%s", resp.Message)
	}
}

func TestProcess_PremiumPurchaseRoundTrip(t *testing.T) {
	svc, cleanup := setupTestService(t)
	defer cleanup()
	ctx := context.Background()

	initial, err := svc.Process(ctx, ussdRequest("*444#", ""))
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if len(initial.Offers) == 0 {
		t.Fatal("Expected personalized data offers")
	}
	first := initial.Offers[0]
	if !strings.Contains(first.Title, "Premium 10% Off!") || !first.Recommended {
		t.Errorf("Premium subscriber must see the discounted combo first, got %+v", first)
	}

	confirm, err := svc.Process(ctx, ussdRequest("*444#", "1", "1"))
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if !strings.Contains(confirm.Message, first.Title) {
		t.Errorf("Confirmation names a different offer:\n%s", confirm.Message)
	}

	success, err := svc.Process(ctx, ussdRequest("*444#", "1", "1", "1"))
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if success.ContinueSession {
		t.Error("Purchase success must be terminal")
	}
	if !strings.Contains(success.Message, first.Title+" has been activated.") {
		t.Errorf("Success names a different offer:\n%s", success.Message)
	}
}

// Two identical requests must render identical screens whether the second is
// served from the personalization cache or not.
func TestProcess_CacheIsTransparent(t *testing.T) {
	svc, cleanup := setupTestService(t)
	defer cleanup()
	ctx := context.Background()

	first, err := svc.Process(ctx, ussdRequest("*234#", ""))
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	second, err := svc.Process(ctx, ussdRequest("*234#", ""))
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if first.Message != second.Message {
		t.Errorf("Cached rendering diverged:\nfirst:\n%s\nsecond:\n%s", first.Message, second.Message)
	}
	if len(first.Offers) != len(second.Offers) {
		t.Fatalf("Offer counts diverged: %d vs %d", len(first.Offers), len(second.Offers))
	}
	for i := range first.Offers {
		if first.Offers[i] != second.Offers[i] {
			t.Errorf("Offer %d diverged: %+v vs %+v", i, first.Offers[i], second.Offers[i])
		}
	}
}

func TestAddPhoneNumber(t *testing.T) {
	svc, cleanup := setupTestService(t)
	defer cleanup()
	ctx := context.Background()

	entry, err := svc.AddPhoneNumber(ctx, "+254700000001", "")
	if err != nil {
		t.Fatalf("AddPhoneNumber failed: %v", err)
	}
	if entry.Label != "Phone +254700000001" {
		t.Errorf("Expected the default label, got %q", entry.Label)
	}
	if len(entry.IMEI) != 15 {
		t.Errorf("Expected a generated 15-digit IMEI, got %q", entry.IMEI)
	}

	_, err = svc.AddPhoneNumber(ctx, "+254700000001", "again")
	if !errors.Is(err, registry.ErrAlreadyExists) {
		t.Errorf("Expected ErrAlreadyExists, got %v", err)
	}

	_, err = svc.AddPhoneNumber(ctx, "0712345678", "")
	var verr *validation.ValidationError
	if !errors.As(err, &verr) {
		t.Errorf("Expected a validation error for a bad number, got %v", err)
	}
}

func TestDeletePhoneNumber(t *testing.T) {
	svc, cleanup := setupTestService(t)
	defer cleanup()
	ctx := context.Background()

	if _, err := svc.AddPhoneNumber(ctx, "+254700000001", "x"); err != nil {
		t.Fatalf("AddPhoneNumber failed: %v", err)
	}
	if err := svc.DeletePhoneNumber(ctx, "+254700000001"); err != nil {
		t.Fatalf("DeletePhoneNumber failed: %v", err)
	}
	if err := svc.DeletePhoneNumber(ctx, "+254700000001"); !errors.Is(err, registry.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if err := svc.DeletePhoneNumber(ctx, ""); err == nil {
		t.Error("Expected a validation error for an empty number")
	}

	entries, err := svc.ListPhoneNumbers(ctx)
	if err != nil {
		t.Fatalf("ListPhoneNumbers failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected an empty registry, got %d entries", len(entries))
	}
}

func TestMergeTunables_ChangesSubsequentResolution(t *testing.T) {
	svc, cleanup := setupTestService(t)
	defer cleanup()
	ctx := context.Background()

	// Demote the premium demo subscriber and verify the next request sees
	// undiscounted prices.
	updated := svc.MergeTunables(ctx, models.TunablesUpdate{
		Customers: map[string]models.CustomerProfile{
			"+254712345678": {
				PhoneNumber:    "+254712345678",
				AccountBalance: 10,
				DataUsage:      2.5,
				VoiceUsage:     45,
				LastTopUp:      "2024-09-28",
				Segment:        models.SegmentRegular,
			},
		},
	})
	if updated.Customers["+254712345678"].Segment != models.SegmentRegular {
		t.Fatalf("Merge did not update the roster: %+v", updated.Customers["+254712345678"])
	}

	resp, err := svc.Process(ctx, ussdRequest("*444#", ""))
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if strings.Contains(resp.Message, "Premium 10% Off!") {
		t.Errorf("Stale personalization served after a roster update:\n%s", resp.Message)
	}
	if !strings.Contains(resp.Message, "1. 1GB Data Bundle - KSh 99") {
		t.Errorf("Expected base prices after demotion:\n%s", resp.Message)
	}
}

func TestMergeTunables_PreservesUntouchedSections(t *testing.T) {
	svc, cleanup := setupTestService(t)
	defer cleanup()

	before := svc.Tunables()
	after := svc.MergeTunables(context.Background(), models.TunablesUpdate{
		OfferMultipliers: &models.OfferMultipliers{Premium: 0.8, Regular: 1.0, LowUsage: 0.7},
	})

	if after.OfferMultipliers.Premium != 0.8 {
		t.Errorf("Multiplier update not applied: %+v", after.OfferMultipliers)
	}
	if after.SpecialPromotions != before.SpecialPromotions {
		t.Errorf("Untouched section changed: %+v", after.SpecialPromotions)
	}
	if len(after.Customers) != len(before.Customers) {
		t.Errorf("Roster changed by a multiplier-only merge: %d vs %d",
			len(after.Customers), len(before.Customers))
	}
}

func TestReplaceTunables_SwapsRoster(t *testing.T) {
	svc, cleanup := setupTestService(t)
	defer cleanup()

	after := svc.ReplaceTunables(context.Background(), models.TunablesUpdate{
		Customers: map[string]models.CustomerProfile{
			"+254700000009": {
				PhoneNumber: "+254700000009",
				Segment:     models.SegmentLowUsage,
				DataUsage:   1.0,
			},
		},
	})

	if len(after.Customers) != 1 {
		t.Fatalf("Replace must swap the roster wholesale, got %d entries", len(after.Customers))
	}
	if _, ok := after.Customers["+254700000009"]; !ok {
		t.Errorf("Replacement roster missing the new subscriber: %+v", after.Customers)
	}
}
