package router

import (
	"net/http"

	"receipts-api/internal/config"
	"receipts-api/internal/db"
	"receipts-api/internal/handlers"
	"receipts-api/internal/middleware"
	"receipts-api/internal/services"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

func SetupRouter(database *db.Database, cfg config.Config, logger zerolog.Logger) *mux.Router {
	authService := services.NewAuthService(cfg.JWTSecret, cfg.TokenTTL, cfg.BcryptCost, logger)
	userService := services.NewUserService(database, authService, logger)
	receiptService := services.NewReceiptService(database, logger)
	renderer := services.NewReceiptRenderer(receiptService, userService, cfg.Receipt, logger)
	gate := services.NewAccessGate(authService, userService)

	authHandler := handlers.NewAuthHandler(userService, authService, logger)
	userHandler := handlers.NewUserHandler(logger)
	receiptHandler := handlers.NewReceiptHandler(receiptService, renderer, logger)

	if cfg.UsesDefaultSecret() {
		logger.Warn().Msg("JWT_SECRET not set, using default key")
	}

	r := mux.NewRouter()

	rateLimiter := middleware.NewRateLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)

	r.Use(middleware.ErrorHandling(logger))
	r.Use(middleware.PerformanceMonitoring(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS())
	r.Use(rateLimiter.Middleware())
	r.Use(middleware.Timeout(cfg.RequestTimeout))

	// OPTIONS is routed so that CORS preflight reaches the middleware chain.
	auth := r.PathPrefix("/auth").Subrouter()
	auth.Handle("/register", middleware.RequestValidation()(http.HandlerFunc(authHandler.Register))).Methods("POST", "OPTIONS")
	auth.Handle("/login", middleware.RequestValidation()(http.HandlerFunc(authHandler.Login))).Methods("POST", "OPTIONS")

	account := r.PathPrefix("/auth").Subrouter()
	account.Use(middleware.RequireAccount(gate, logger))
	account.HandleFunc("/me", userHandler.Me).Methods("GET")

	receipts := r.PathPrefix("/receipts").Subrouter()

	create := receipts.PathPrefix("/create_receipt").Subrouter()
	create.Use(middleware.RequireIdentity(gate, logger))
	create.Use(middleware.RequestValidation())
	create.HandleFunc("", receiptHandler.CreateReceipt).Methods("POST", "OPTIONS")

	view := receipts.PathPrefix("/view_receipts").Subrouter()
	view.Use(middleware.RequireAccount(gate, logger))
	view.HandleFunc("", receiptHandler.ListReceipts).Methods("GET")
	view.HandleFunc("/{id:[0-9]+}", receiptHandler.GetReceipt).Methods("GET")

	receipts.HandleFunc("/customer_receipts/{id:[0-9]+}", receiptHandler.CustomerReceipt).Methods("GET")

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	return r
}
