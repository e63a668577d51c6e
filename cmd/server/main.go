package main

import (
	"github.com/gin-contrib/sessions"
	redisStore "github.com/gin-contrib/sessions/redis"
	"github.com/gin-gonic/gin"
	"github.com/okazaki/taskdesk/internal/config"
	"github.com/okazaki/taskdesk/internal/constants"
	"github.com/okazaki/taskdesk/internal/database"
	"github.com/okazaki/taskdesk/internal/handlers"
	"github.com/okazaki/taskdesk/internal/logger"
	"github.com/okazaki/taskdesk/internal/middleware"
	"github.com/okazaki/taskdesk/internal/repository"
	"github.com/okazaki/taskdesk/internal/services"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Set Gin mode
	gin.SetMode(cfg.GinMode)

	log := logger.New(cfg.GinMode)
	defer log.Sync()

	// Connect to database
	if err := database.Connect(cfg); err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}

	// Run migrations
	if err := database.Migrate(); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	// Initialize Gin router
	r := gin.Default()

	// Setup session middleware with Redis
	redisAddr := cfg.RedisHost + ":" + cfg.RedisPort
	store, err := redisStore.NewStore(
		10,        // Redis pool size
		"tcp",     // network type
		redisAddr, // Redis address from config
		"",        // username (empty for default user)
		"",        // password (empty = no password)
		[]byte(cfg.SessionSecret), // authentication key
	)
	if err != nil {
		log.Fatal("failed to create redis store", zap.Error(err))
	}
	// Configure session options based on environment
	isProduction := cfg.GinMode == "release"
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7, // 7 days
		HttpOnly: true,
		Secure:   isProduction,
		SameSite: 2, // SameSite=Lax (1=Strict, 2=Lax, 3=None)
	})
	r.Use(sessions.Sessions(constants.SessionCookieName, store))

	// Repositories over the shared connection
	db := database.GetDB()
	userRepo := repository.NewUserRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	reqRepo := repository.NewCompletionRequestRepository(db)
	msgRepo := repository.NewMessageRepository(db)

	// Services
	authService := services.NewAuthService(userRepo)
	taskService := services.NewTaskService(taskRepo, reqRepo, userRepo)
	approvalService := services.NewApprovalService(reqRepo, taskRepo, userRepo)
	messageService := services.NewMessageService(msgRepo, userRepo)
	notificationService := services.NewNotificationService(msgRepo, reqRepo, taskRepo, userRepo)
	userService := services.NewUserService(userRepo)
	transferService := services.NewTransferService(taskRepo, userRepo)

	// Handlers
	authHandler := handlers.NewAuthHandler(authService)
	taskHandler := handlers.NewTaskHandler(taskService)
	approvalHandler := handlers.NewApprovalHandler(approvalService)
	messageHandler := handlers.NewMessageHandler(messageService)
	notificationHandler := handlers.NewNotificationHandler(notificationService)
	userHandler := handlers.NewUserHandler(userService)
	transferHandler := handlers.NewTransferHandler(transferService)

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		if err := database.Ping(); err != nil {
			c.JSON(503, gin.H{"status": "degraded", "driver": cfg.DBDriver})
			return
		}
		c.JSON(200, gin.H{"status": "ok", "driver": cfg.DBDriver})
	})

	authed := []gin.HandlerFunc{middleware.RequireAuth(), middleware.LoadCurrentUser(userRepo)}

	// API routes
	api := r.Group("/api")
	{
		// Auth routes
		auth := api.Group("/auth")
		{
			auth.POST("/register", middleware.MaybeLoadCurrentUser(userRepo), authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/logout", authHandler.Logout)
			auth.GET("/me", append(authed, authHandler.GetCurrentUser)...)
			auth.POST("/password", append(authed, authHandler.ChangePassword)...)
		}

		// Task routes (protected)
		tasks := api.Group("/tasks")
		tasks.Use(authed...)
		{
			tasks.GET("", taskHandler.ListTasks)
			tasks.POST("", taskHandler.CreateTask)
			tasks.GET("/export", transferHandler.ExportTasks)
			tasks.POST("/import", transferHandler.ImportTasks)
			tasks.GET("/:id", taskHandler.GetTask)
			tasks.PUT("/:id", taskHandler.UpdateTask)
			tasks.DELETE("/:id", taskHandler.DeleteTask)
			tasks.POST("/:id/toggle", taskHandler.ToggleTask)
			tasks.POST("/:id/progress", taskHandler.ProgressTask)
			tasks.POST("/:id/request-completion", approvalHandler.RequestCompletion)
		}

		// Approval routes (protected)
		approvals := api.Group("/approvals")
		approvals.Use(authed...)
		{
			approvals.GET("", approvalHandler.ListPending)
			approvals.POST("/:id/approve", approvalHandler.Approve)
			approvals.POST("/:id/reject", approvalHandler.Reject)
		}

		// Message routes (protected)
		messages := api.Group("/messages")
		messages.Use(authed...)
		{
			messages.GET("", messageHandler.ResolveThread)
			messages.GET("/:id", messageHandler.GetThread)
			messages.POST("/:id", messageHandler.SendMessage)
			messages.DELETE("/one/:id", messageHandler.DeleteMessage)
			messages.DELETE("/:id", messageHandler.DeleteThread)
		}

		// Notification poll (protected)
		api.GET("/notifications", append(authed, notificationHandler.Poll)...)

		// User directory (protected, owner gated in the service)
		users := api.Group("/users")
		users.Use(authed...)
		{
			users.GET("", userHandler.ListUsers)
			users.DELETE("/:id", userHandler.DeleteUser)
			users.PATCH("/:id/role", userHandler.UpdateUserRole)
		}
	}

	// Start server
	log.Info("server starting", zap.String("addr", cfg.ListenAddr))
	if err := r.Run(cfg.ListenAddr); err != nil {
		log.Fatal("failed to start server", zap.Error(err))
	}
}
