package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/AnshRaj112/prescripto-backend/internal/config"
	"github.com/AnshRaj112/prescripto-backend/internal/database"
	"github.com/AnshRaj112/prescripto-backend/internal/handlers"
	"github.com/AnshRaj112/prescripto-backend/internal/ledger"
	"github.com/AnshRaj112/prescripto-backend/internal/middleware"
	"github.com/AnshRaj112/prescripto-backend/internal/routes"
	"github.com/AnshRaj112/prescripto-backend/internal/services"
	"github.com/AnshRaj112/prescripto-backend/internal/store"
	"github.com/AnshRaj112/prescripto-backend/pkg/clientip"
	"github.com/AnshRaj112/prescripto-backend/pkg/logger"
	"github.com/AnshRaj112/prescripto-backend/pkg/monitoring"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Load env
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logger.New("info").WithError(err).Fatal("Invalid configuration")
	}
	log := logger.New(cfg.LogLevel)
	if envErr != nil {
		log.Info("No .env file found")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Persistence
	var st store.Store
	transactions := false
	switch cfg.StoreDriver {
	case "memory":
		log.Warn("Using in-memory store; data is lost on restart")
		st = store.NewMemory()
	default:
		log.WithField("uri", database.MaskURI(cfg.MongoURI)).Info("Connecting to MongoDB...")
		if err := database.Connect(cfg.MongoURI); err != nil {
			log.WithError(err).Fatal("Failed to connect to MongoDB")
		}
		defer database.Disconnect()

		mongoStore := store.NewMongoStore(database.DB, cfg.RequestTimeout)
		if err := mongoStore.EnsureIndexes(ctx); err != nil {
			log.WithError(err).Warn("Failed to ensure MongoDB indexes")
		}
		st = mongoStore
		transactions = cfg.MongoTransactions
	}

	// Redis is optional: without it locks, events and limits stay in-process.
	var redisClient redis.UniversalClient
	if cfg.RedisURI != "" {
		log.Info("Connecting to Redis...")
		client, err := database.ConnectRedis(ctx, cfg.RedisURI)
		if err != nil {
			log.WithError(err).Fatal("Failed to connect to Redis")
		}
		defer database.DisconnectRedis()
		redisClient = client
	}

	opts := ledger.Options{
		Store:        st,
		Logger:       log,
		Currency:     cfg.Currency,
		Transactions: transactions,
	}

	cache := services.NewDoctorCache(redisClient, 0)
	hub := services.NewSlotHub()
	events := services.NewSlotEvents(redisClient, hub, cache, log)
	opts.Events = events
	if redisClient != nil {
		opts.Locker = services.NewRedisLocker(redisClient, cfg.SlotLockTTL)
		go events.Run(ctx)
	}

	if cfg.PaymentsEnabled() {
		opts.Gateway = services.NewRazorpayGateway(cfg.RazorpayKeyID, cfg.RazorpayKeySecret)
		log.Info("Razorpay payments enabled")
	} else {
		log.Warn("Razorpay credentials not found. Payments will not be available")
	}

	if cfg.PostgresURI != "" {
		log.Info("Connecting to PostgreSQL...")
		if err := database.ConnectPostgres(cfg.PostgresURI); err != nil {
			log.WithError(err).Fatal("Failed to connect to PostgreSQL")
		}
		defer database.DisconnectPostgres()
		opts.Orders = services.NewOrderLog(database.PostgresDB)
	}

	var notifier *services.ReceiptNotifier
	if cfg.MailEnabled() {
		mailer := services.NewMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPFrom)
		notifier = services.NewReceiptNotifier(mailer, cfg.Currency, log)
		opts.Notifier = notifier
	}

	deps := handlers.Deps{
		Ledger:         ledger.New(opts),
		Store:          st,
		Tokens:         services.NewTokenService(cfg.JWTSecret, cfg.TokenTTL),
		Cache:          cache,
		Hub:            hub,
		Log:            log,
		AdminEmail:     cfg.AdminEmail,
		AdminPassword:  cfg.AdminPassword,
		Currency:       cfg.Currency,
		Timeout:        cfg.RequestTimeout,
		AllowedOrigins: cfg.AllowedOrigins,
	}
	if cfg.UploadsEnabled() {
		uploader, err := services.NewImageUploader(cfg.CloudinaryName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret)
		if err != nil {
			log.WithError(err).Warn("Failed to initialize Cloudinary. Image uploads will not be available")
		} else {
			deps.Uploader = uploader
			log.Info("Cloudinary service initialized")
		}
	} else {
		log.Warn("Cloudinary credentials not found. Image uploads will not be available")
	}
	handlers.Init(deps)

	// Setup router
	clientIP := clientip.Resolver(cfg.TrustProxy)
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.AccessLog(log, clientIP))
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	// Production: SecurityHeaders → Global → Login → Booking, plus the
	// shared Redis window when Redis is available.
	limits := middleware.NewLimits(clientIP)
	if cfg.IsProduction() {
		for _, mw := range limits.ProductionSecurity() {
			r.Use(mw)
		}
		log.Info("Production security enabled (security headers, per-IP, login and booking rate limiting)")
	} else {
		r.Use(limits.Booking)
	}
	if redisClient != nil {
		limiter := middleware.NewRedisRateLimiter(redisClient, clientIP)
		r.Use(limiter.Middleware)
		handlers.InitBlocklist(limiter)
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})
	r.Method(http.MethodGet, "/metrics", monitoring.Handler())

	routes.SetupRoutes(r, deps.Tokens)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithField("port", cfg.Port).Info("Prescripto backend running")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Graceful shutdown failed")
	}
	if notifier != nil {
		notifier.Wait()
	}
}
