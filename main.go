package main

import (
	"context"
	"embed"
	"flag"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/appleboy/graceful"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/go-homelink/homelink/internal/auth"
	"github.com/go-homelink/homelink/internal/client"
	"github.com/go-homelink/homelink/internal/config"
	"github.com/go-homelink/homelink/internal/handlers"
	"github.com/go-homelink/homelink/internal/metrics"
	"github.com/go-homelink/homelink/internal/middleware"
	"github.com/go-homelink/homelink/internal/seed"
	"github.com/go-homelink/homelink/internal/services"
	"github.com/go-homelink/homelink/internal/store"
	"github.com/go-homelink/homelink/internal/version"
)

//go:embed internal/templates/*.html
var templatesFS embed.FS

func main() {
	// Define flags
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	flag.Usage = printUsage
	flag.Parse()

	// Show version and exit if requested
	if *showVersion {
		version.PrintVersion()
		os.Exit(0)
	}

	// Check if command is provided
	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	// Handle subcommands
	switch args[0] {
	case "server":
		runServer()
	case "seed":
		runSeed(args[1:])
	default:
		fmt.Printf("Unknown command: %s\n\n", args[0])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf("Usage: %s [OPTIONS] COMMAND\n\n", os.Args[0])
	fmt.Println("Voice-assistant skill linking and device discovery server")
	fmt.Println("\nCommands:")
	fmt.Println("  server    Start the skill-link server")
	fmt.Println("  seed      Load a YAML fixture into the store")
	fmt.Println("\nOptions:")
	fmt.Println("  -v, --version    Show version information")
	fmt.Println("  -h, --help       Show this help message")
}

func runSeed(args []string) {
	fs := flag.NewFlagSet("seed", flag.ExitOnError)
	file := fs.String("file", "fixtures.yaml", "Path to the YAML fixture")
	_ = fs.Parse(args)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	db, err := store.New(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer db.Close()

	fixture, err := seed.Load(*file)
	if err != nil {
		log.Fatalf("Failed to load fixture: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := fixture.Apply(ctx, db); err != nil {
		log.Fatalf("Failed to apply fixture: %v", err)
	}
	log.Printf("Seeded %d users from %s", len(fixture.Users), *file)
}

func runServer() {
	// Load configuration
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Initialize store
	db, err := store.New(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}

	// Initialize metrics
	prometheusMetrics := metrics.Init(cfg.MetricsEnabled)
	if cfg.MetricsEnabled {
		log.Println("Prometheus metrics initialized")
	} else {
		log.Println("Metrics disabled (using noop implementation)")
	}

	// Initialize authentication provider
	authProvider := initializeAuthProvider(cfg, db)
	log.Printf("Authentication mode: %s", authProvider.Name())

	// Initialize services
	linkService := services.NewLinkService(db, cfg, prometheusMetrics)
	deviceService := services.NewDeviceService(db, cfg, prometheusMetrics)

	// Initialize handlers
	linkHandler := handlers.NewLinkHandler(authProvider, linkService, cfg, prometheusMetrics)
	tokenHandler := handlers.NewTokenHandler(linkService)
	deviceHandler := handlers.NewDeviceHandler(deviceService)

	// Setup Gin
	setupGinMode(cfg)
	r := gin.New()
	// Prometheus middleware must run before other routes record anything
	r.Use(metrics.HTTPMetricsMiddleware(prometheusMetrics))
	r.Use(gin.Logger(), gin.Recovery())

	// Embedded login template
	tmpl := template.Must(template.ParseFS(templatesFS, "internal/templates/*.html"))
	r.SetHTMLTemplate(tmpl)

	// Health check endpoint
	r.GET("/health", createHealthCheckHandler(db))

	// Prometheus metrics endpoint (with optional authentication)
	switch {
	case !cfg.MetricsEnabled:
		log.Printf("Prometheus metrics disabled")
	case cfg.MetricsToken != "":
		log.Printf("Prometheus metrics enabled at /metrics with Bearer token authentication")
		r.GET(
			"/metrics",
			middleware.MetricsAuthMiddleware(cfg.MetricsToken),
			gin.WrapH(promhttp.Handler()),
		)
	default:
		log.Printf("Prometheus metrics enabled at /metrics (no authentication)")
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	// Setup rate limiting
	rateLimiters, redisClient := setupRateLimiting(cfg)

	// Skill-link routes
	r.GET("/", linkHandler.LoginPage)
	r.POST("/", rateLimiters.login, linkHandler.Login)
	r.POST("/access-token", rateLimiters.token, tokenHandler.AccessToken)
	r.GET("/get_device_details", deviceHandler.DeviceDetails)

	// Start server
	log.Printf("HomeLink server starting on %s", cfg.ServerAddr)
	log.Printf("Skill callback: %s", cfg.SkillRedirectURL)

	srv := &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Create graceful manager
	m := graceful.NewManager()

	// Add server as a running job
	m.AddRunningJob(func(ctx context.Context) error {
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("Failed to start server: %v", err)
			}
		}()
		<-ctx.Done()
		return nil
	})

	// Add shutdown job for HTTP server
	m.AddShutdownJob(func() error {
		log.Println("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("Server forced to shutdown: %v", err)
			return err
		}

		log.Println("Server exited")
		return nil
	})

	// Add shutdown job for the rate-limit Redis client (if used)
	if redisClient != nil {
		m.AddShutdownJob(func() error {
			log.Println("Closing Redis connection...")
			if err := redisClient.Close(); err != nil {
				log.Printf("Error closing Redis client: %v", err)
				return err
			}
			log.Println("Redis connection closed")
			return nil
		})
	}

	// Add shutdown job for the store
	m.AddShutdownJob(func() error {
		log.Println("Closing store...")
		if err := db.Close(); err != nil {
			log.Printf("Error closing store: %v", err)
			return err
		}
		return nil
	})

	// Wait for graceful shutdown
	<-m.Done()
}

// initializeAuthProvider selects the identity provider per AUTH_MODE.
func initializeAuthProvider(cfg *config.Config, db store.Store) auth.Provider {
	switch cfg.AuthMode {
	case config.AuthModeHTTPAPI:
		retryClient, err := client.CreateRetryClient(
			cfg.HTTPAPIAuthMode,
			cfg.HTTPAPIAuthSecret,
			cfg.HTTPAPITimeout,
			cfg.HTTPAPIInsecureSkipVerify,
			cfg.HTTPAPIMaxRetries,
			cfg.HTTPAPIRetryDelay,
			cfg.HTTPAPIMaxRetryDelay,
			cfg.HTTPAPIAuthHeader,
		)
		if err != nil {
			log.Fatalf("Failed to create HTTP API auth client: %v", err)
		}
		log.Printf("HTTP API authentication enabled: %s", cfg.HTTPAPIURL)
		return auth.NewHTTPAPIProvider(cfg, retryClient)
	default:
		return auth.NewLocalProvider(db)
	}
}

// createHealthCheckHandler creates health check endpoint handler
func createHealthCheckHandler(db store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch err := db.Health(c.Request.Context()); err {
		case nil:
			c.JSON(http.StatusOK, gin.H{
				"status": "healthy",
				"store":  "connected",
			})
		default:
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"store":  "disconnected",
			})
		}
	}
}

// rateLimitMiddlewares holds rate limiting middlewares for different endpoints
type rateLimitMiddlewares struct {
	login gin.HandlerFunc
	token gin.HandlerFunc
}

// setupRateLimiting configures rate limiting middlewares based on configuration.
// Returns the middlewares and an optional Redis client (needs cleanup on shutdown).
func setupRateLimiting(cfg *config.Config) (rateLimitMiddlewares, *redis.Client) {
	noOpMiddleware := func(c *gin.Context) { c.Next() }
	if !cfg.EnableRateLimit {
		return rateLimitMiddlewares{login: noOpMiddleware, token: noOpMiddleware}, nil
	}

	log.Printf("Rate limiting enabled (store: %s)", cfg.RateLimitStore)

	storeType := middleware.RateLimitStoreType(cfg.RateLimitStore)
	var sharedRedisClient *redis.Client

	if storeType == middleware.RateLimitStoreRedis {
		var err error
		sharedRedisClient, err = middleware.CreateRedisClient(
			cfg.RedisAddr,
			cfg.RedisPassword,
			cfg.RedisDB,
		)
		if err != nil {
			log.Fatalf("Failed to create shared Redis client: %v", err)
		}
		log.Printf("Redis rate limiting configured: %s (DB: %d)", cfg.RedisAddr, cfg.RedisDB)
	} else {
		log.Printf("In-memory rate limiting configured (single instance only)")
	}

	createLimiter := func(requestsPerMinute int, endpoint string) gin.HandlerFunc {
		limiter, err := middleware.NewRateLimiter(middleware.RateLimitConfig{
			RequestsPerMinute: requestsPerMinute,
			StoreType:         storeType,
			RedisClient:       sharedRedisClient,
			CleanupInterval:   cfg.RateLimitCleanupInterval,
		})
		if err != nil {
			log.Fatalf("Failed to create rate limiter for %s: %v", endpoint, err)
		}
		return limiter
	}

	return rateLimitMiddlewares{
		login: createLimiter(cfg.LoginRateLimit, "/"),
		token: createLimiter(cfg.TokenRateLimit, "/access-token"),
	}, sharedRedisClient
}

// setupGinMode sets Gin mode based on environment configuration
func setupGinMode(cfg *config.Config) {
	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
		log.Printf("Gin mode: Release (production)")
		return
	}
	gin.SetMode(gin.DebugMode)
	log.Printf("Gin mode: Debug (development)")
}
