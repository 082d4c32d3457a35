package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	clerk "github.com/clerk/clerk-sdk-go/v2"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	gorillaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"boldlyAPI/handlers"
	"boldlyAPI/internal/notification"
	"boldlyAPI/internal/realtime"
	"boldlyAPI/middleware"
	"boldlyAPI/services"
)

var (
	dbPool            *pgxpool.Pool
	registry          *realtime.Registry
	pushDispatcher    *services.PushDispatcher
	notifier          *services.Notifier
	userService       *services.UserService
	friendService     *services.FriendService
	postService       *services.PostService
	messageService    *services.MessageService
	challengeService  *services.ChallengeService
	generationService *services.GenerationService
	fcmService        *notification.FCMService
)

func init() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	clerkSecretKey := os.Getenv("CLERK_SECRET_KEY")
	if clerkSecretKey == "" {
		log.Fatal("CLERK_SECRET_KEY environment variable is not set")
	}
	clerk.SetKey(clerkSecretKey)
	log.Println("Clerk initialized successfully")

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is not set")
	}

	runMigrations(dbURL)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		log.Fatal("Failed to parse database URL:", err)
	}

	poolConfig.MaxConns = 25
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	dbPool, err = pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		log.Fatal("Failed to create connection pool:", err)
	}

	if err := dbPool.Ping(ctx); err != nil {
		log.Fatal("Failed to ping database:", err)
	}

	log.Println("Successfully connected to database")

	registry = realtime.NewRegistry()
	pushDispatcher = services.NewPushDispatcher(dbPool)
	notifier = services.NewNotifier(registry, pushDispatcher)

	userService = services.NewUserService(dbPool)
	friendService = services.NewFriendService(dbPool, userService)
	postService = services.NewPostService(dbPool)
	messageService = services.NewMessageService(dbPool, notifier)

	generationService, err = services.NewGenerationService(context.Background(), os.Getenv("GEMINI_API_KEY"))
	if err != nil {
		log.Fatal("Failed to initialize challenge generation:", err)
	}

	challengeService = services.NewChallengeService(dbPool, generationService, messageService, notifier)

	fcmService, err = notification.NewFCMService("./serviceAccountKey.json")
	if err != nil {
		log.Printf("Warning: Could not initialize FCM: %v", err)
	} else {
		pushDispatcher.SetProvider(fcmService)
		log.Println("FCM Push Provider initialized successfully")
	}

	middleware.InitPrometheus()
}

func runMigrations(dbURL string) {
	m, err := migrate.New("file://migrations", dbURL)
	if err != nil {
		log.Fatal("Failed to initialize migrations:", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Fatal("Failed to run migrations:", err)
	}
	log.Println("Migrations applied")
}

func main() {
	defer func() {
		log.Println("Closing database connection pool...")
		dbPool.Close()
	}()

	authHandler := handlers.NewAuthHandler(userService, registry)
	userHandler := handlers.NewUserHandler(userService)
	friendHandler := handlers.NewFriendHandler(friendService)
	postHandler := handlers.NewPostHandler(postService)
	challengeHandler := handlers.NewChallengeHandler(challengeService)
	messageHandler := handlers.NewMessageHandler(messageService)
	realtimeHandler := handlers.NewRealtimeHandler(registry, userService)

	r := mux.NewRouter()

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error": "Not found"}`))
	})

	// Websocket upgrade bypasses the rate limiter; everything else goes
	// through the standard middleware chain.
	r.HandleFunc("/api/v1/initsocket", realtimeHandler.InitSocket).Methods("GET")

	standardRouter := r.PathPrefix("/").Subrouter()

	go middleware.CleanupVisitors()

	standardRouter.Use(middleware.RateLimitMiddleware)
	standardRouter.Use(middleware.MonitorMiddleware)

	standardRouter.Handle("/metrics", middleware.BasicAuthMiddleware(promhttp.Handler()))

	standardRouter.HandleFunc("/health", func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
		defer cancel()

		if err := dbPool.Ping(ctx); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status": "unhealthy", "error": "database connection failed"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy", "service": "boldly-api"}`))
	}).Methods("GET")

	// -------------------------------------------------------------------------
	// API V1 SUBROUTER
	// -------------------------------------------------------------------------
	api := standardRouter.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/auth/login", authHandler.Login).Methods("POST")
	api.Handle("/auth/logout", middleware.OptionalAuthMiddleware(http.HandlerFunc(authHandler.Logout))).Methods("POST")
	api.Handle("/auth/whoami", middleware.OptionalAuthMiddleware(http.HandlerFunc(authHandler.Whoami))).Methods("GET")

	api.HandleFunc("/posts", postHandler.GetPosts).Methods("GET")

	// Legacy maintenance surface, intentionally outside the login guard.
	api.HandleFunc("/challenges/user/{userId}", challengeHandler.DeleteUserChallenges).Methods("DELETE")
	api.HandleFunc("/challenges/reset/{userId}", challengeHandler.ResetUser).Methods("POST")
	api.HandleFunc("/admin/challenges/cleanup", challengeHandler.Cleanup).Methods("DELETE")

	// -------------------------------------------------------------------------
	// PROTECTED ROUTES (REQUIRE AUTH HEADER)
	// -------------------------------------------------------------------------
	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.ClerkAuthMiddleware)

	protected.HandleFunc("/profile", userHandler.GetProfile).Methods("GET")
	protected.HandleFunc("/profile/{userId}", userHandler.GetProfileByID).Methods("GET")
	protected.HandleFunc("/user/profile", userHandler.SubmitQuestionnaire).Methods("POST")
	protected.HandleFunc("/leaderboard", userHandler.GetLeaderboard).Methods("GET")

	protected.HandleFunc("/friends", friendHandler.GetFriends).Methods("GET")
	protected.HandleFunc("/friend-requests", friendHandler.GetFriendRequests).Methods("GET")
	protected.HandleFunc("/users/search/{query}", friendHandler.SearchUsers).Methods("GET")
	protected.HandleFunc("/friend-request/{id}", friendHandler.SendFriendRequest).Methods("POST")
	protected.HandleFunc("/friend-request/{id}/accept", friendHandler.AcceptFriendRequest).Methods("POST")
	protected.HandleFunc("/friend-request/{id}/reject", friendHandler.RejectFriendRequest).Methods("POST")

	protected.HandleFunc("/posts", postHandler.CreatePost).Methods("POST")
	protected.HandleFunc("/posts/{id}/like", postHandler.LikePost).Methods("POST")
	protected.HandleFunc("/posts/{id}/comment", postHandler.CommentPost).Methods("POST")

	protected.HandleFunc("/challenges", challengeHandler.GetChallenges).Methods("GET")
	protected.HandleFunc("/challenges/shared", challengeHandler.GetSharedChallenges).Methods("GET")
	protected.HandleFunc("/challenges/generate", challengeHandler.Generate).Methods("POST")
	protected.HandleFunc("/challenges/accept", challengeHandler.Accept).Methods("POST")
	protected.HandleFunc("/challenges/{id}/accept", challengeHandler.AcceptShared).Methods("POST")
	protected.HandleFunc("/challenges/{id}/decline", challengeHandler.DeclineShared).Methods("POST")
	protected.HandleFunc("/challenges/{id}/complete", challengeHandler.Complete).Methods("POST")
	protected.HandleFunc("/challenges/{id}/status", challengeHandler.UpdateRecipientStatus).Methods("POST")
	protected.HandleFunc("/challenges/{id}/feedback", challengeHandler.SubmitFeedback).Methods("POST")
	protected.HandleFunc("/challenges/{id}/share", challengeHandler.Share).Methods("POST")
	protected.HandleFunc("/challenges/{id}/award-points", challengeHandler.AwardPoints).Methods("POST")
	protected.HandleFunc("/challenge/{id}", challengeHandler.GetChallenge).Methods("GET")

	protected.HandleFunc("/messages/{userId}", messageHandler.GetMessages).Methods("GET")
	protected.HandleFunc("/message", messageHandler.SendMessage).Methods("POST")

	protected.HandleFunc("/notifications/register-device", userHandler.RegisterDevice).Methods("POST")

	// CORS configuration
	corsHandler := gorillaHandlers.CORS(
		gorillaHandlers.AllowedOrigins([]string{"*"}),
		gorillaHandlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		gorillaHandlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
		gorillaHandlers.ExposedHeaders([]string{"Content-Length"}),
		gorillaHandlers.AllowCredentials(),
	)

	port := os.Getenv("PORT")
	if port == "" {
		port = "3333"
	}
	port = ":" + port

	server := http.Server{
		Addr:         port,
		Handler:      corsHandler(r),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("Starting server on port %s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Error starting server:", err)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)

	sig := <-sigChan
	log.Println("Got signal:", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	pushDispatcher.Stop()

	log.Println("Server shutdown complete")
}
