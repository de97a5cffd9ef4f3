// Package ussd implements the menu router and session state machine. Each
// request is routed purely from (code, input, menuPath, customer): the
// navigation path is client-threaded, so "where the user is" is re-derived
// from the path on every call and nothing is held between requests.
package ussd

import (
	"strconv"
	"strings"

	"ussd-gateway/internal/models"
	"ussd-gateway/internal/offers"
)

// Recognized USSD codes.
const (
	CodeBalance = "*144#"
	CodeAccount = "*100#"
	CodeData    = "*444#"
	CodeVoice   = "*555#"
	CodeSpecial = "*234#"
)

// handlerFunc turns one request into the next screen. The personalized
// slice is the customer's full annotated catalog view, already sorted;
// handlers derive category views from it by filtering, never by re-sorting.
type handlerFunc func(req *models.USSDRequest, customer models.CustomerProfile, personalized []models.Offer) models.USSDResponse

// Router dispatches a dialed code to its handler.
type Router struct {
	handlers map[string]handlerFunc

	// legacyFlow restores the original gateway's behavior: only *444# runs
	// the selection/confirmation states, while *555# and *234# re-render
	// their menus on any follow-up input.
	legacyFlow bool
}

// Option configures a Router.
type Option func(*Router)

// WithLegacyFlow enables behavioral parity with the original gateway
// instead of the uniform three-state flow.
func WithLegacyFlow() Option {
	return func(r *Router) { r.legacyFlow = true }
}

// NewRouter builds the dispatch table for all recognized codes.
func NewRouter(opts ...Option) *Router {
	r := &Router{}
	for _, opt := range opts {
		opt(r)
	}

	r.handlers = map[string]handlerFunc{
		CodeBalance: handleBalance,
		CodeAccount: handleAccount,
		CodeData: r.bundleHandler(func(c models.CustomerProfile, p []models.Offer) ([]models.Offer, string) {
			view := offers.DataView(p)
			return view, dataMenuMessage(view)
		}, false),
		CodeVoice: r.bundleHandler(func(c models.CustomerProfile, p []models.Offer) ([]models.Offer, string) {
			view := offers.VoiceView(p)
			return view, voiceMenuMessage(view)
		}, true),
		CodeSpecial: r.bundleHandler(func(c models.CustomerProfile, p []models.Offer) ([]models.Offer, string) {
			return p, specialMenuMessage(c, p)
		}, true),
	}
	return r
}

// Route selects the handler for the dialed code and drives it. Unrecognized
// codes land in the default handler. Route is total: every input, including
// adversarial path/input combinations, yields a well-formed response.
func (r *Router) Route(req *models.USSDRequest, customer models.CustomerProfile, personalized []models.Offer) models.USSDResponse {
	if handler, ok := r.handlers[req.USSDCode]; ok {
		return handler(req, customer, personalized)
	}
	return handleDefault(req, customer, personalized)
}

// handleBalance serves *144#: a terminal balance report.
func handleBalance(req *models.USSDRequest, customer models.CustomerProfile, _ []models.Offer) models.USSDResponse {
	return newResponse(req, balanceMessage(customer), false)
}

// handleAccount serves *100#. The three listed options are decorative: no
// handler consumes a follow-up from this screen, matching the original.
func handleAccount(req *models.USSDRequest, customer models.CustomerProfile, _ []models.Offer) models.USSDResponse {
	resp := newResponse(req, accountMessage(customer), true)
	resp.MenuOptions = []string{"View Statements", "Change PIN", "Update Profile"}
	return resp
}

// viewFunc derives a code's category view and initial menu message from the
// personalized catalog.
type viewFunc func(models.CustomerProfile, []models.Offer) ([]models.Offer, string)

// bundleHandler builds the shared three-state flow over a category view:
// INITIAL (empty path) renders the numbered menu, SELECTED (path length 1)
// renders the confirmation screen, CONFIRMED (path length >= 2) re-resolves
// the original selection from menuPath[0] and settles the purchase.
// Re-resolution works against the same deterministic view the menu was
// rendered from, so the confirmed offer is the one that was displayed.
func (r *Router) bundleHandler(view viewFunc, legacyInitialOnly bool) handlerFunc {
	return func(req *models.USSDRequest, customer models.CustomerProfile, personalized []models.Offer) models.USSDResponse {
		catalogView, initialMessage := view(customer, personalized)

		if req.Input != "" && len(req.MenuPath) > 0 && !(r.legacyFlow && legacyInitialOnly) {
			switch {
			case len(req.MenuPath) == 1:
				if offer, ok := selectOffer(catalogView, req.Input); ok {
					resp := newResponse(req, confirmationMessage(offer, false), true)
					resp.MenuOptions = []string{"Confirm Purchase", "Cancel"}
					return resp
				}
				if r.legacyFlow {
					break // original re-renders the menu on a bad selection
				}
				return newResponse(req, unrecognizedMessage(req.USSDCode), false)

			case len(req.MenuPath) >= 2:
				offer, ok := selectOffer(catalogView, req.MenuPath[0])
				if parseSelection(req.Input) == 1 {
					if !ok {
						// The original selection no longer resolves; drop to
						// the safe terminal screen rather than invent one.
						return newResponse(req, unrecognizedMessage(req.USSDCode), false)
					}
					return newResponse(req, successMessage(offer), false)
				}
				return newResponse(req, cancelledMessage(), false)
			}
		}

		resp := newResponse(req, initialMessage, true)
		resp.MenuOptions = menuOptions(catalogView)
		resp.Offers = catalogView
		return resp
	}
}

// handleDefault serves unrecognized codes. With input and a non-empty path
// it attempts a generic selection flow over the full personalized list;
// a "1" answered over a path already containing "1" settles as a generic
// purchase. Everything else gets the static help screen.
func handleDefault(req *models.USSDRequest, customer models.CustomerProfile, personalized []models.Offer) models.USSDResponse {
	if req.Input != "" && req.MenuPath != nil {
		if len(req.MenuPath) > 0 {
			if offer, ok := selectOffer(personalized, req.Input); ok {
				resp := newResponse(req, confirmationMessage(offer, true), true)
				resp.MenuOptions = []string{"Confirm Purchase", "Cancel"}
				return resp
			}
		}

		if req.Input == "1" && containsString(req.MenuPath, "1") {
			return newResponse(req, genericSuccessMessage(customer), false)
		}
	}

	return newResponse(req, unrecognizedMessage(req.USSDCode), false)
}

// selectOffer resolves a free-text input as a 1-based index into a view.
// Parse failures and out-of-range indexes are "no match", never an error.
func selectOffer(view []models.Offer, input string) (models.Offer, bool) {
	n := parseSelection(input)
	if n < 1 || n > len(view) {
		return models.Offer{}, false
	}
	return view[n-1], true
}

// parseSelection parses a menu input, returning 0 for anything that is not
// a positive integer.
func parseSelection(input string) int {
	n, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func containsString(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}
