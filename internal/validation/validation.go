package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"ussd-gateway/internal/models"
)

// phoneRegex matches E.164 Kenyan mobile numbers, the format the registry
// accepts.
var phoneRegex = regexp.MustCompile(`^\+254[17]\d{8}$`)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

// ValidateUSSDRequest checks the boundary-layer contract: phoneNumber,
// sessionId, ussdCode and imei are all required. Input and menuPath are
// free-form; the engine treats whatever arrives as navigation data.
func ValidateUSSDRequest(req models.USSDRequest) error {
	if req.PhoneNumber == "" {
		return &ValidationError{Field: "phoneNumber", Message: "is required"}
	}
	if req.SessionID == "" {
		return &ValidationError{Field: "sessionId", Message: "is required"}
	}
	if req.USSDCode == "" {
		return &ValidationError{Field: "ussdCode", Message: "is required"}
	}
	if req.IMEI == "" {
		return &ValidationError{Field: "imei", Message: "is required"}
	}
	return nil
}

// ValidatePhoneNumber checks the registry's number format.
func ValidatePhoneNumber(phoneNumber string) error {
	if phoneNumber == "" {
		return &ValidationError{Field: "phoneNumber", Message: "is required"}
	}
	if !phoneRegex.MatchString(phoneNumber) {
		return &ValidationError{
			Field:   "phoneNumber",
			Message: "invalid phone number format, use +254XXXXXXXXX",
		}
	}
	return nil
}

// SanitizeString strips control characters (except whitespace ones) and
// trims surrounding space.
func SanitizeString(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != '\n' && r != '\r' && r != '\t' {
			return -1
		}
		return r
	}, s)

	return strings.TrimSpace(s)
}
