package models

// Segment classifies a subscriber for offer personalization.
type Segment string

const (
	SegmentPremium  Segment = "premium"
	SegmentRegular  Segment = "regular"
	SegmentLowUsage Segment = "low-usage"
)

// CustomerProfile is a read-only snapshot of a subscriber's billing and usage
// state, supplied to the engine once per request.
type CustomerProfile struct {
	PhoneNumber     string   `json:"phoneNumber"`
	AccountBalance  float64  `json:"accountBalance"`
	DataUsage       float64  `json:"dataUsage"`  // GB consumed against a 10GB quota
	VoiceUsage      int      `json:"voiceUsage"` // minutes consumed against a 300min quota
	PreferredOffers []string `json:"preferredOffers"`
	LastTopUp       string   `json:"lastTopUp"`
	Segment         Segment  `json:"segment"`
}

// Offer is a purchasable bundle. Personalization works on copies; the base
// catalog entry is never mutated.
type Offer struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	Price        int    `json:"price"` // whole currency units
	DataAmount   string `json:"dataAmount,omitempty"`
	VoiceMinutes string `json:"voiceMinutes,omitempty"`
	Validity     string `json:"validity"`
	Recommended  bool   `json:"recommended,omitempty"`
}

// USSDRequest is one keystroke of a USSD session. The transport is stateless:
// all session continuity arrives in MenuPath, oldest input first.
type USSDRequest struct {
	PhoneNumber string   `json:"phoneNumber"`
	SessionID   string   `json:"sessionId"`
	USSDCode    string   `json:"ussdCode"`
	IMEI        string   `json:"imei"`
	Input       string   `json:"input,omitempty"`
	MenuPath    []string `json:"menuPath,omitempty"`
}

// USSDResponse is the next screen of a session. ContinueSession=false marks
// the terminal screen.
type USSDResponse struct {
	Message         string   `json:"message"`
	ContinueSession bool     `json:"continueSession"`
	SessionID       string   `json:"sessionId"`
	USSDCode        string   `json:"ussdCode,omitempty"`
	MenuOptions     []string `json:"menuOptions,omitempty"`
	InputRequired   bool     `json:"inputRequired,omitempty"`
	InputType       string   `json:"inputType,omitempty"` // "numeric" or "text"
	Offers          []Offer  `json:"offers,omitempty"`
}

// PhoneNumberEntry is one registered subscriber device.
type PhoneNumberEntry struct {
	PhoneNumber string `json:"phoneNumber"`
	IMEI        string `json:"imei"`
	Label       string `json:"label"`
	AddedAt     string `json:"addedAt"` // RFC3339
}

// AddPhoneNumberRequest is the request body for registering a phone number.
type AddPhoneNumberRequest struct {
	PhoneNumber string `json:"phoneNumber"`
	Label       string `json:"label"`
}

// PhoneNumbersResponse is the list payload for the registry.
type PhoneNumbersResponse struct {
	Success      bool               `json:"success"`
	PhoneNumbers []PhoneNumberEntry `json:"phoneNumbers"`
}

// AddPhoneNumberResponse is returned after a successful registration.
type AddPhoneNumberResponse struct {
	Success     bool             `json:"success"`
	PhoneNumber PhoneNumberEntry `json:"phoneNumber"`
	Message     string           `json:"message"`
}

// OfferMultipliers are per-segment pricing tunables served by the config
// surface. The engine's discount rules are fixed; these are stored and
// reported for operator visibility.
type OfferMultipliers struct {
	Premium  float64 `json:"premium"`
	Regular  float64 `json:"regular"`
	LowUsage float64 `json:"lowUsage"`
}

// SpecialPromotions are promotion tunables served by the config surface.
type SpecialPromotions struct {
	Enabled         bool    `json:"enabled"`
	DiscountPercent float64 `json:"discountPercent"`
	TargetSegment   string  `json:"targetSegment"`
}

// Tunables is the runtime demo configuration: customer roster plus pricing
// and promotion knobs.
type Tunables struct {
	Customers         map[string]CustomerProfile `json:"customers"`
	OfferMultipliers  OfferMultipliers           `json:"offerMultipliers"`
	SpecialPromotions SpecialPromotions          `json:"specialPromotions"`
}

// TunablesUpdate is a partial update to Tunables; nil sections are left
// untouched and customers merge by phone number.
type TunablesUpdate struct {
	Customers         map[string]CustomerProfile `json:"customers,omitempty"`
	OfferMultipliers  *OfferMultipliers          `json:"offerMultipliers,omitempty"`
	SpecialPromotions *SpecialPromotions         `json:"specialPromotions,omitempty"`
}

// TunablesResponse acknowledges a config read or write.
type TunablesResponse struct {
	Success bool     `json:"success"`
	Config  Tunables `json:"config"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}
