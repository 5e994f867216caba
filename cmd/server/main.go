package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"quizgate/internal/auth"
	"quizgate/internal/config"
	"quizgate/internal/httpx"
	"quizgate/internal/jobs"
	"quizgate/internal/models"
	"quizgate/internal/otp"
	"quizgate/internal/quiz"
	"quizgate/pkg/cache"
	"quizgate/pkg/database"
	"quizgate/pkg/websocket"
)

func main() {
	cfg := config.Load()
	if cfg.Auth.JWTSecret == "" {
		log.Fatalf("JWT_SECRET must be set")
	}

	db, err := database.NewPostgresDB(&database.Config{
		Host:     cfg.DB.Host,
		Port:     cfg.DB.Port,
		User:     cfg.DB.User,
		Password: cfg.DB.Password,
		DBName:   cfg.DB.DBName,
		SSLMode:  cfg.DB.SSLMode,
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	redisCache := cache.NewRedisCache(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.QuizTTL)
	defer redisCache.Close()
	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	if err := redisCache.Ping(pingCtx); err != nil {
		log.Printf("Warning: redis unavailable, quiz cache disabled until it recovers: %v", err)
	}
	cancelPing()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Repositories
	authRepo := auth.NewRepository(db)
	quizRepo := quiz.NewRepository(db)
	otpRepo := otp.NewRepository(db)

	// Services
	quizService := quiz.NewService(quizRepo, redisCache)
	wsHub := websocket.NewHub(func(ctx context.Context, room string, userID uint) (bool, error) {
		quizID, err := strconv.ParseUint(room, 10, 64)
		if err != nil {
			return false, nil
		}
		owner, err := quizService.QuizOwner(ctx, uint(quizID))
		if err != nil {
			return false, err
		}
		return owner == userID, nil
	}, auth.UserID)
	go wsHub.Run(ctx)

	authService := auth.NewService(authRepo, cfg.Auth.JWTSecret)
	otpService := otp.NewService(otpRepo, quizService, wsHub, cfg.OTP.CodeLength)
	tracker := quiz.NewTracker(quizRepo, otpService.AccessLog())
	grader := quiz.NewGrader(quizRepo, quizService, otpService.AccessLog(), wsHub)
	stats := quiz.NewStats(quizRepo, tracker)

	scheduler, err := jobs.NewScheduler(otpService, cfg.OTP.SweepSchedule, cfg.OTP.PurgeSchedule)
	if err != nil {
		log.Fatalf("Invalid OTP job schedule: %v", err)
	}
	if scheduler != nil {
		scheduler.Start()
		defer scheduler.Stop()
	}

	// Handlers
	authHandler := auth.NewHandler(authService)
	otpHandler := otp.NewHandler(otpService)
	quizHandler := quiz.NewHandler(quizService, grader, tracker, stats)

	router := mux.NewRouter()
	router.Use(httpx.RequestLogger)

	router.HandleFunc("/api/auth/register", authHandler.Register).Methods("POST", "OPTIONS")
	router.HandleFunc("/api/auth/login", authHandler.Login).Methods("POST", "OPTIONS")
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods("GET")

	apiRouter := router.PathPrefix("/api").Subrouter()
	apiRouter.Use(auth.JWTMiddleware(cfg.Auth.JWTSecret))

	teacher := roleHandler(models.RoleTeacher)
	student := roleHandler(models.RoleStudent)
	admin := roleHandler(models.RoleAdmin)
	anyone := roleHandler(models.RoleTeacher, models.RoleStudent, models.RoleAdmin)

	apiRouter.Handle("/otp/generate", teacher(otpHandler.Generate)).Methods("POST")
	apiRouter.Handle("/otp/validate", student(otpHandler.Validate)).Methods("POST")
	apiRouter.Handle("/otp/sweep", admin(otpHandler.Sweep)).Methods("POST")
	apiRouter.Handle("/otp/purge", admin(otpHandler.Purge)).Methods("POST")
	apiRouter.Handle("/otp/quiz/{quizId:[0-9]+}", teacher(otpHandler.ListForQuiz)).Methods("GET")
	apiRouter.Handle("/otp/{id:[0-9]+}/revoke", teacher(otpHandler.Revoke)).Methods("POST")

	apiRouter.Handle("/planners", teacher(quizHandler.CreatePlanner)).Methods("POST")
	apiRouter.Handle("/quiz", teacher(quizHandler.CreateQuiz)).Methods("POST")
	apiRouter.Handle("/quiz/{id:[0-9]+}/start", student(quizHandler.StartAttempt)).Methods("POST")
	apiRouter.Handle("/quiz/{id:[0-9]+}/submit", student(quizHandler.Submit)).Methods("POST")
	apiRouter.Handle("/quiz/{id:[0-9]+}/statistics", anyone(quizHandler.Statistics)).Methods("GET")
	apiRouter.Handle("/student/history", student(quizHandler.History)).Methods("GET")
	apiRouter.Handle("/teacher/dashboard", teacher(quizHandler.Dashboard)).Methods("GET")

	wsRouter := router.PathPrefix("/ws").Subrouter()
	wsRouter.Use(auth.JWTMiddleware(cfg.Auth.JWTSecret))
	wsRouter.Handle("/quiz/{quizId:[0-9]+}", teacher(wsHub.HandleWebSocket))

	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Requested-With", "X-Request-ID"},
		ExposedHeaders:   []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.HTTPPort,
		Handler:      corsMiddleware.Handler(router),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("Server starting on port %s", cfg.Server.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server shutdown gracefully")
}

func roleHandler(roles ...string) func(http.HandlerFunc) http.Handler {
	guard := auth.RequireRole(roles...)
	return func(h http.HandlerFunc) http.Handler {
		return guard(h)
	}
}
