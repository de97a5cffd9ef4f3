package customer

import (
	"sync"

	"ussd-gateway/internal/models"
)

// defaultProfile is returned (with the caller's number injected) for any
// subscriber not present in the roster.
var defaultProfile = models.CustomerProfile{
	AccountBalance:  89.75,
	DataUsage:       5.0,
	VoiceUsage:      75,
	PreferredOffers: []string{"data", "voice"},
	LastTopUp:       "2024-09-26",
	Segment:         models.SegmentRegular,
}

// DefaultRoster returns the built-in demo subscriber roster.
func DefaultRoster() map[string]models.CustomerProfile {
	return map[string]models.CustomerProfile{
		"+254712345678": {
			PhoneNumber:     "+254712345678",
			AccountBalance:  250.5,
			DataUsage:       2.5,
			VoiceUsage:      45,
			PreferredOffers: []string{"data", "voice"},
			LastTopUp:       "2024-09-28",
			Segment:         models.SegmentPremium,
		},
		"+254723456789": {
			PhoneNumber:     "+254723456789",
			AccountBalance:  45.2,
			DataUsage:       8.2,
			VoiceUsage:      120,
			PreferredOffers: []string{"data"},
			LastTopUp:       "2024-09-25",
			Segment:         models.SegmentRegular,
		},
		"+254734567890": {
			PhoneNumber:     "+254734567890",
			AccountBalance:  12.8,
			DataUsage:       15.5,
			VoiceUsage:      200,
			PreferredOffers: []string{"voice", "airtime"},
			LastTopUp:       "2024-09-20",
			Segment:         models.SegmentLowUsage,
		},
	}
}

// Resolver maps subscriber identifiers to profiles. Every identifier
// resolves: unknown numbers get a synthesized default profile. The roster is
// replaceable at runtime through the tunables surface.
type Resolver struct {
	mu     sync.RWMutex
	roster map[string]models.CustomerProfile
}

// NewResolver creates a resolver seeded with the default roster.
func NewResolver() *Resolver {
	return &Resolver{roster: DefaultRoster()}
}

// Resolve returns the profile for a phone number, or the default profile
// with the requesting number substituted in.
func (r *Resolver) Resolve(phoneNumber string) models.CustomerProfile {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if profile, ok := r.roster[phoneNumber]; ok {
		return profile
	}

	profile := defaultProfile
	profile.PhoneNumber = phoneNumber
	profile.PreferredOffers = append([]string(nil), defaultProfile.PreferredOffers...)
	return profile
}

// Roster returns a copy of the current roster.
func (r *Resolver) Roster() map[string]models.CustomerProfile {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]models.CustomerProfile, len(r.roster))
	for k, v := range r.roster {
		out[k] = v
	}
	return out
}

// Merge upserts profiles into the roster, keyed by phone number.
func (r *Resolver) Merge(customers map[string]models.CustomerProfile) {
	if len(customers) == 0 {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for phone, profile := range customers {
		r.roster[phone] = profile
	}
}

// Replace swaps the entire roster.
func (r *Resolver) Replace(customers map[string]models.CustomerProfile) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.roster = make(map[string]models.CustomerProfile, len(customers))
	for phone, profile := range customers {
		r.roster[phone] = profile
	}
}
