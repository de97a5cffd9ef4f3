// Package service wires the USSD engine to its collaborators: validation at
// the boundary, customer resolution, personalization (optionally memoized),
// routing, the phone-number registry and event publishing.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"ussd-gateway/internal/cache"
	"ussd-gateway/internal/customer"
	"ussd-gateway/internal/events"
	"ussd-gateway/internal/features"
	"ussd-gateway/internal/imei"
	"ussd-gateway/internal/models"
	"ussd-gateway/internal/offers"
	"ussd-gateway/internal/registry"
	"ussd-gateway/internal/tracing"
	"ussd-gateway/internal/ussd"
	"ussd-gateway/internal/validation"
)

// Options configures optional service collaborators.
type Options struct {
	Cache    cache.Cache
	CacheTTL time.Duration
	Events   *events.Manager
	Flags    *features.Manager
}

// DefaultOptions returns the collaborators a bare service runs with: an
// in-memory cache, a disabled event manager and default flags.
func DefaultOptions() Options {
	flags := features.NewManager()
	RegisterFlags(flags)
	return Options{
		Cache:    cache.NewInMemoryCache(),
		CacheTTL: 30 * time.Second,
		Events:   events.NewManager(false),
		Flags:    flags,
	}
}

// RegisterFlags registers the gateway's feature flags with their defaults.
func RegisterFlags(flags *features.Manager) {
	flags.Register(features.FeaturePersonalizationCache, true,
		"memoize personalized offer views per subscriber")
	flags.Register(features.FeatureEventHooks, true,
		"publish in-process events for processed sessions and registry changes")
	flags.Register(features.FeatureLegacyMenuFlow, false,
		"restore the original asymmetric *555#/*234# menu flows")
}

// Service provides the gateway's business logic.
type Service struct {
	resolver *customer.Resolver
	router   *ussd.Router
	reg      *registry.DB
	cache    cache.Cache
	cacheTTL time.Duration
	events   *events.Manager
	flags    *features.Manager

	mu          sync.RWMutex
	multipliers models.OfferMultipliers
	promotions  models.SpecialPromotions
}

// NewService creates a new service instance. reg may be nil when the
// registry surface is not served.
func NewService(reg *registry.DB, opts Options) *Service {
	routerOpts := []ussd.Option{}
	if opts.Flags.IsEnabled(features.FeatureLegacyMenuFlow) {
		routerOpts = append(routerOpts, ussd.WithLegacyFlow())
	}

	return &Service{
		resolver: customer.NewResolver(),
		router:   ussd.NewRouter(routerOpts...),
		reg:      reg,
		cache:    opts.Cache,
		cacheTTL: opts.CacheTTL,
		events:   opts.Events,
		flags:    opts.Flags,
		multipliers: models.OfferMultipliers{
			Premium:  0.9,
			Regular:  1.0,
			LowUsage: 0.85,
		},
		promotions: models.SpecialPromotions{
			Enabled:         true,
			DiscountPercent: 15,
			TargetSegment:   string(models.SegmentPremium),
		},
	}
}

// Process answers one USSD request: resolve the subscriber, personalize the
// catalog, and drive the menu state machine. The engine itself cannot fail;
// the only error path is boundary validation.
func (s *Service) Process(ctx context.Context, req models.USSDRequest) (models.USSDResponse, error) {
	if err := validation.ValidateUSSDRequest(req); err != nil {
		return models.USSDResponse{}, err
	}

	ctx, span := tracing.GetTracer().StartSpan(ctx, "service.Process")
	defer span.End()
	span.SetAttributes(
		attribute.String("ussd.code", req.USSDCode),
		attribute.String("ussd.session_id", req.SessionID),
		attribute.Int("ussd.menu_depth", len(req.MenuPath)),
	)

	profile := s.resolver.Resolve(req.PhoneNumber)
	personalized := s.personalizedOffers(ctx, profile)

	resp := s.router.Route(&req, profile, personalized)

	if s.flags.IsEnabled(features.FeatureEventHooks) {
		s.events.PublishSessionProcessed(ctx, req, resp)
	}

	return resp, nil
}

// personalizedOffers returns the customer's annotated catalog view, served
// from cache when enabled. Personalization is deterministic for a given
// profile, so the cache key covers every input the engine reads.
func (s *Service) personalizedOffers(ctx context.Context, profile models.CustomerProfile) []models.Offer {
	if !s.flags.IsEnabled(features.FeaturePersonalizationCache) || s.cache == nil {
		return offers.Personalize(profile)
	}

	key := fmt.Sprintf("offers:%s:%s:%g", profile.PhoneNumber, profile.Segment, profile.DataUsage)

	var cached []models.Offer
	if err := cache.GetJSON(ctx, s.cache, key, &cached); err == nil && len(cached) > 0 {
		return cached
	}

	personalized := offers.Personalize(profile)
	_ = cache.SetJSON(ctx, s.cache, key, personalized, s.cacheTTL)
	return personalized
}

// AddPhoneNumber registers a phone number, generating its IMEI server-side.
func (s *Service) AddPhoneNumber(ctx context.Context, phoneNumber, label string) (models.PhoneNumberEntry, error) {
	if err := validation.ValidatePhoneNumber(phoneNumber); err != nil {
		return models.PhoneNumberEntry{}, err
	}

	if label == "" {
		label = fmt.Sprintf("Phone %s", phoneNumber)
	}

	entry := models.PhoneNumberEntry{
		PhoneNumber: phoneNumber,
		IMEI:        imei.Generate(),
		Label:       label,
		AddedAt:     time.Now().UTC().Format(time.RFC3339),
	}

	if err := s.reg.Add(entry); err != nil {
		return models.PhoneNumberEntry{}, err
	}

	if s.flags.IsEnabled(features.FeatureEventHooks) {
		s.events.PublishPhoneRegistered(ctx, entry)
	}

	return entry, nil
}

// ListPhoneNumbers returns all registered phone numbers.
func (s *Service) ListPhoneNumbers(ctx context.Context) ([]models.PhoneNumberEntry, error) {
	return s.reg.List()
}

// DeletePhoneNumber removes a registered phone number.
func (s *Service) DeletePhoneNumber(ctx context.Context, phoneNumber string) error {
	if phoneNumber == "" {
		return &validation.ValidationError{Field: "phoneNumber", Message: "is required"}
	}

	if err := s.reg.Delete(phoneNumber); err != nil {
		return err
	}

	if s.flags.IsEnabled(features.FeatureEventHooks) {
		s.events.PublishPhoneRemoved(ctx, phoneNumber)
	}

	return nil
}

// Tunables returns the current runtime configuration.
func (s *Service) Tunables() models.Tunables {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return models.Tunables{
		Customers:         s.resolver.Roster(),
		OfferMultipliers:  s.multipliers,
		SpecialPromotions: s.promotions,
	}
}

// MergeTunables applies a partial update: customers merge by phone number,
// other sections replace when present.
func (s *Service) MergeTunables(ctx context.Context, update models.TunablesUpdate) models.Tunables {
	s.mu.Lock()
	if update.OfferMultipliers != nil {
		s.multipliers = *update.OfferMultipliers
	}
	if update.SpecialPromotions != nil {
		s.promotions = *update.SpecialPromotions
	}
	s.mu.Unlock()

	s.resolver.Merge(update.Customers)
	s.invalidatePersonalization(ctx)

	if s.flags.IsEnabled(features.FeatureEventHooks) {
		s.events.PublishTunablesUpdated(ctx, false)
	}

	return s.Tunables()
}

// ReplaceTunables swaps whole sections: any section present in the update
// replaces its counterpart, and a customers section replaces the roster
// rather than merging into it.
func (s *Service) ReplaceTunables(ctx context.Context, update models.TunablesUpdate) models.Tunables {
	s.mu.Lock()
	if update.OfferMultipliers != nil {
		s.multipliers = *update.OfferMultipliers
	}
	if update.SpecialPromotions != nil {
		s.promotions = *update.SpecialPromotions
	}
	s.mu.Unlock()

	if update.Customers != nil {
		s.resolver.Replace(update.Customers)
	}
	s.invalidatePersonalization(ctx)

	if s.flags.IsEnabled(features.FeatureEventHooks) {
		s.events.PublishTunablesUpdated(ctx, true)
	}

	return s.Tunables()
}

// invalidatePersonalization drops memoized offer views after a roster
// change so the next request re-personalizes against fresh profiles.
func (s *Service) invalidatePersonalization(ctx context.Context) {
	if s.cache != nil {
		_ = s.cache.Clear(ctx)
	}
}
