package offers

import (
	"ussd-gateway/internal/models"
)

// Offer ids that carry special personalization rules.
const (
	ID1GB    = "data_1gb"
	ID3GB    = "data_3gb"
	ID100Min = "voice_100min"
	IDCombo  = "combo_deal"
)

// dataQuotaGB is the implicit monthly data quota a profile's usage is
// measured against.
const dataQuotaGB = 10.0

// baseCatalog is the fixed offer catalog. It is read-only: Personalize
// copies entries before annotating them.
var baseCatalog = []models.Offer{
	{
		ID:          ID1GB,
		Title:       "1GB Data Bundle",
		Description: "1GB valid for 7 days",
		Price:       99,
		DataAmount:  "1GB",
		Validity:    "7 days",
	},
	{
		ID:          ID3GB,
		Title:       "3GB Data Bundle",
		Description: "3GB valid for 30 days",
		Price:       249,
		DataAmount:  "3GB",
		Validity:    "30 days",
	},
	{
		ID:           ID100Min,
		Title:        "100 Minutes Bundle",
		Description:  "100 minutes to all networks",
		Price:        150,
		VoiceMinutes: "100",
		Validity:     "7 days",
	},
	{
		ID:           IDCombo,
		Title:        "Combo Deal",
		Description:  "2GB + 50 minutes",
		Price:        199,
		DataAmount:   "2GB",
		VoiceMinutes: "50",
		Validity:     "14 days",
	},
}

// Catalog returns a copy of the base catalog in catalog order, without any
// personalization applied.
func Catalog() []models.Offer {
	out := make([]models.Offer, len(baseCatalog))
	copy(out, baseCatalog)
	return out
}

// Personalize derives the customer's annotated view of the catalog: segment
// discounts, recommendation flags and title suffixes, with recommended
// offers stably partitioned to the front. The checks run sequentially
// against the same copy, so rule order cannot change the outcome.
func Personalize(customer models.CustomerProfile) []models.Offer {
	personalized := make([]models.Offer, len(baseCatalog))

	for i, base := range baseCatalog {
		offer := base // copy, never touch the catalog entry

		// Premium customers get a 10% discount across the board and the
		// combo recommended.
		if customer.Segment == models.SegmentPremium {
			offer.Price = discount(base.Price, 0.9)
			if base.ID == IDCombo {
				offer.Recommended = true
				offer.Title += " (Premium 10% Off!)"
			}
		}

		// Low-usage customers get the smallest bundle pushed. The 15% cut is
		// taken from the base price, not compounded.
		if customer.Segment == models.SegmentLowUsage && base.ID == ID1GB {
			offer.Recommended = true
			offer.Price = discount(base.Price, 0.85)
			offer.Title += " (Special Discount!)"
		}

		// Heavy data users get the larger bundle recommended at full price.
		if customer.DataUsage > dataQuotaGB && base.ID == ID3GB {
			offer.Recommended = true
			offer.Title += " (Recommended for You!)"
		}

		personalized[i] = offer
	}

	return partitionRecommended(personalized)
}

// DataView filters an already personalized list down to data bundles. The
// combo belongs to both the data and voice views. Filtering preserves order.
func DataView(personalized []models.Offer) []models.Offer {
	var out []models.Offer
	for _, offer := range personalized {
		if offer.DataAmount != "" || offer.ID == IDCombo {
			out = append(out, offer)
		}
	}
	return out
}

// VoiceView filters an already personalized list down to voice bundles.
func VoiceView(personalized []models.Offer) []models.Offer {
	var out []models.Offer
	for _, offer := range personalized {
		if offer.VoiceMinutes != "" || offer.ID == IDCombo {
			out = append(out, offer)
		}
	}
	return out
}

// discount applies a multiplier to a base price, rounded down to the nearest
// whole currency unit.
func discount(price int, multiplier float64) int {
	return int(float64(price) * multiplier)
}

// partitionRecommended is a stable partition: recommended offers first,
// relative order preserved within each group. Menu selections re-resolve by
// index, so the ordering must be deterministic.
func partitionRecommended(offers []models.Offer) []models.Offer {
	out := make([]models.Offer, 0, len(offers))
	for _, offer := range offers {
		if offer.Recommended {
			out = append(out, offer)
		}
	}
	for _, offer := range offers {
		if !offer.Recommended {
			out = append(out, offer)
		}
	}
	return out
}
