package ussd

import (
	"fmt"
	"strconv"
	"strings"

	"ussd-gateway/internal/models"
)

// Quotas the balance screen reports remaining allowances against.
const (
	dataQuotaGB     = 10.0
	voiceQuotaMin   = 300
	genericDealCost = 199 // flat deduction shown by the generic success screen
)

// newResponse assembles the wire response: the session id is echoed
// verbatim and ContinueSession marks whether another request is expected.
func newResponse(req *models.USSDRequest, message string, continueSession bool) models.USSDResponse {
	return models.USSDResponse{
		Message:         message,
		ContinueSession: continueSession,
		SessionID:       req.SessionID,
	}
}

func balanceMessage(customer models.CustomerProfile) string {
	return fmt.Sprintf(
		"Your account balance is KSh %.2f\n\nData balance: %.1fGB remaining\nVoice balance: %d minutes remaining\n\nThank you for choosing Unitel.",
		customer.AccountBalance,
		dataQuotaGB-customer.DataUsage,
		voiceQuotaMin-customer.VoiceUsage,
	)
}

func accountMessage(customer models.CustomerProfile) string {
	return fmt.Sprintf(
		"MY ACCOUNT\n\nPhone: %s\nBalance: KSh %.2f\nData Used: %sGB this month\nVoice Used: %d minutes\nLast Top-up: %s\nCustomer Type: %s\n\n1. View Statements\n2. Change PIN\n3. Update Profile",
		customer.PhoneNumber,
		customer.AccountBalance,
		strconv.FormatFloat(customer.DataUsage, 'f', -1, 64),
		customer.VoiceUsage,
		customer.LastTopUp,
		strings.ToUpper(string(customer.Segment)),
	)
}

// menuLine renders one numbered menu entry, 1-indexed.
func menuLine(index int, offer models.Offer) string {
	return fmt.Sprintf("%d. %s - KSh %d%s", index+1, offer.Title, offer.Price, recommendedTag(offer))
}

// optionLine renders the unnumbered variant used in MenuOptions.
func optionLine(offer models.Offer) string {
	return fmt.Sprintf("%s - KSh %d%s", offer.Title, offer.Price, recommendedTag(offer))
}

func recommendedTag(offer models.Offer) string {
	if offer.Recommended {
		return " (RECOMMENDED)"
	}
	return ""
}

func menuText(view []models.Offer) string {
	lines := make([]string, len(view))
	for i, offer := range view {
		lines[i] = menuLine(i, offer)
	}
	return strings.Join(lines, "\n")
}

func menuOptions(view []models.Offer) []string {
	options := make([]string, len(view))
	for i, offer := range view {
		options[i] = optionLine(offer)
	}
	return options
}

func dataMenuMessage(view []models.Offer) string {
	return "DATA BUNDLES\nChoose your data bundle:\n\n" + menuText(view)
}

func voiceMenuMessage(view []models.Offer) string {
	return "VOICE BUNDLES\nChoose your voice bundle:\n\n" + menuText(view)
}

func specialMenuMessage(customer models.CustomerProfile, view []models.Offer) string {
	return fmt.Sprintf(
		"SPECIAL OFFERS FOR YOU\n\nHi %s customer!\nPersonalized offers based on your usage:\n\n%s",
		strings.ToUpper(string(customer.Segment)),
		menuText(view),
	)
}

// confirmationMessage renders the purchase confirmation screen. The generic
// variant (default handler) prefixes the choices with "Reply:".
func confirmationMessage(offer models.Offer, generic bool) string {
	choices := "\n\n1. Confirm Purchase\n2. Cancel"
	if generic {
		choices = "\n\nReply:\n1. Confirm Purchase\n2. Cancel"
	}
	return fmt.Sprintf(
		"PURCHASE CONFIRMATION\n\n%s\nPrice: KSh %d\n%s\nValid for: %s%s",
		offer.Title, offer.Price, offer.Description, offer.Validity, choices,
	)
}

func successMessage(offer models.Offer) string {
	return fmt.Sprintf(
		"PURCHASE SUCCESSFUL!\n\n%s has been activated.\nPrice: KSh %d\nValid for: %s\n\nThank you for using Unitel services!",
		offer.Title, offer.Price, offer.Validity,
	)
}

func cancelledMessage() string {
	return "Purchase cancelled.\n\nThank you for using Unitel services!"
}

// genericSuccessMessage shows a flat deduction in the displayed balance; the
// profile itself is never mutated.
func genericSuccessMessage(customer models.CustomerProfile) string {
	return fmt.Sprintf(
		"PURCHASE SUCCESSFUL!\n\nYour bundle has been activated.\nYou will receive an SMS confirmation shortly.\n\nNew Balance: KSh %.2f\n\nThank you for choosing Unitel!",
		customer.AccountBalance-genericDealCost,
	)
}

func unrecognizedMessage(code string) string {
	return fmt.Sprintf(
		"Welcome to Unitel USSD Services\n\nInvalid code: %s\n\nTry:\n*144# - Check Balance\n*444# - Data Bundles\n*555# - Voice Bundles\n*234# - Special Offers\n*100# - My Account",
		code,
	)
}
