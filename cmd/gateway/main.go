package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"ussd-gateway/internal/cache"
	"ussd-gateway/internal/config"
	"ussd-gateway/internal/events"
	"ussd-gateway/internal/features"
	"ussd-gateway/internal/handler"
	"ussd-gateway/internal/imei"
	"ussd-gateway/internal/middleware"
	"ussd-gateway/internal/models"
	"ussd-gateway/internal/registry"
	"ussd-gateway/internal/service"
	"ussd-gateway/internal/tracing"
)

func main() {
	configFile := flag.String("config", "", "Path to JSON config file")
	port := flag.String("port", "", "Server port (overrides config)")
	dbPath := flag.String("db", "", "Registry database file path (overrides config)")
	legacyFlow := flag.Bool("legacy-flow", false, "Restore the original asymmetric *555#/*234# menu flows")
	flag.Parse()

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *port != "" {
		cfg.Server.Port = *port
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Tracing
	if _, err := tracing.InitTracing(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		ServiceName: "ussd-gateway",
		Environment: cfg.Tracing.Environment,
	}); err != nil {
		log.Fatalf("Failed to initialize tracing: %v", err)
	}
	defer tracing.Shutdown(context.Background())

	// Registry storage, seeded with the demo roster on first run
	reg, err := registry.NewDB(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize registry database: %v", err)
	}
	defer reg.Close()

	if err := reg.Seed([]models.PhoneNumberEntry{
		{PhoneNumber: "+254712345678", IMEI: imei.Generate(), Label: "Premium Customer"},
		{PhoneNumber: "+254723456789", IMEI: imei.Generate(), Label: "Regular Customer"},
		{PhoneNumber: "+254734567890", IMEI: imei.Generate(), Label: "Low-usage Customer"},
	}); err != nil {
		log.Fatalf("Failed to seed registry: %v", err)
	}

	// Feature flags
	flags := features.NewManager()
	service.RegisterFlags(flags)
	if !cfg.Cache.Enabled {
		flags.Disable(features.FeaturePersonalizationCache)
	}
	if *legacyFlow {
		flags.Enable(features.FeatureLegacyMenuFlow)
	}

	// Personalization cache: Redis when configured, in-memory otherwise
	var personalizationCache cache.Cache
	if cfg.Cache.RedisAddr != "" {
		redisCache, err := cache.NewRedisCache(cfg.Cache.RedisAddr, "", cfg.Cache.RedisDB)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisCache.Close()
		personalizationCache = redisCache
	} else {
		personalizationCache = cache.NewInMemoryCache()
	}

	// Events: log every processed session and registry change
	eventManager := events.NewManager(true)
	eventManager.Subscribe(events.EventSessionProcessed, func(ctx context.Context, e events.Event) error {
		if data, ok := e.Data.(events.SessionProcessedData); ok {
			log.Printf("session %s: code=%s depth=%d terminal=%t", data.SessionID, data.USSDCode, data.Depth, data.Terminal)
		}
		return nil
	})
	eventManager.Subscribe(events.EventPhoneRegistered, func(ctx context.Context, e events.Event) error {
		if data, ok := e.Data.(events.PhoneRegisteredData); ok {
			log.Printf("registered %s (%s)", data.Entry.PhoneNumber, data.Entry.Label)
		}
		return nil
	})
	defer eventManager.Shutdown()

	svc := service.NewService(reg, service.Options{
		Cache:    personalizationCache,
		CacheTTL: time.Duration(cfg.Cache.TTLSeconds) * time.Second,
		Events:   eventManager,
		Flags:    flags,
	})

	h := handler.NewHandlerWithOptions(svc, handler.NewHandlerOptions{
		MaxBodySize: cfg.Security.MaxRequestBodySize,
	})

	var rateLimiter *middleware.RateLimiter
	if cfg.RateLimit.Enabled {
		rateLimiter = middleware.NewRateLimiter(cfg.RateLimit.Rate, time.Duration(cfg.RateLimit.Window)*time.Second)
		defer rateLimiter.Stop()
	}

	// Setup router
	r := chi.NewRouter()

	// Middleware (order matters)
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)

	if cfg.Tracing.Enabled {
		r.Use(middleware.TracingMiddleware())
	}
	if rateLimiter != nil {
		r.Use(middleware.RateLimitMiddleware(rateLimiter))
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   strings.Split(cfg.Security.AllowedOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Routes
	r.Post("/ussd", h.ProcessUSSD)

	r.Route("/phone-numbers", func(r chi.Router) {
		r.Get("/", h.ListPhoneNumbers)
		r.Post("/", h.AddPhoneNumber)
		r.Delete("/", h.DeletePhoneNumber)
	})

	r.Route("/config", func(r chi.Router) {
		r.Get("/", h.GetTunables)
		r.Post("/", h.UpdateTunables)
		r.Put("/", h.ReplaceTunables)
	})

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	log.Printf("Starting USSD gateway on %s", addr)
	log.Printf("Registry database: %s", cfg.Database.Path)
	if cfg.RateLimit.Enabled {
		log.Printf("Rate limit: %d requests per %d seconds", cfg.RateLimit.Rate, cfg.RateLimit.Window)
	}

	server := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	// Graceful shutdown
	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		log.Println("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("Error shutting down server: %v", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Server failed: %v", err)
	}
}
