package main

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"stockroom-system/config"
	"stockroom-system/internal/database"
	"stockroom-system/internal/gateway/handlers"
	"stockroom-system/internal/gateway/middleware"
	allocation "stockroom-system/internal/services/allocation/handler"
	user "stockroom-system/internal/services/user/handler"
	"stockroom-system/internal/utils"
)

func main() {
	cfg := config.LoadConfig()
	utils.SetSecret(cfg.Auth.JWTSecret)

	db, err := database.NewConnection(cfg.DB.DSN())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	redisClient := config.NewRedisClient(cfg.Redis)

	allocationHandler := allocation.NewAllocationHandler(db, redisClient)
	userHandler := user.NewUserHandler(db, redisClient)

	stockHTTP := handlers.NewStockHTTPHandler(allocationHandler)
	requestHTTP := handlers.NewRequestHTTPHandler(allocationHandler)
	userHTTP := handlers.NewUserHTTPHandler(userHandler)

	r := gin.Default()

	r.Use(middleware.CORS())
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(middleware.RateLimit())

	// --- Public API Group ---
	public := r.Group("/api/v1")
	{
		auth := public.Group("/auth")
		{
			auth.POST("/login", userHTTP.Login)
		}
	}

	// --- Protected API Group ---
	protected := r.Group("/api/v1")
	protected.Use(middleware.JWTAuth(db))
	{
		stocks := protected.Group("/stocks")
		{
			stocks.GET("", stockHTTP.ListStocks)
			stocks.POST("", stockHTTP.AddStock)
			stocks.PUT("/:id", stockHTTP.UpdateStockLevels)
			stocks.POST("/download", stockHTTP.Download)
			stocks.POST("/rollover", stockHTTP.Rollover)
		}

		requests := protected.Group("/requests")
		{
			requests.POST("", requestHTTP.SubmitRequest)
			requests.GET("", requestHTTP.ListRequests)
			requests.GET("/mine", requestHTTP.ListMyRequests)
			requests.POST("/:id/accept", requestHTTP.AcceptRequest)
			requests.POST("/:id/reject", requestHTTP.RejectRequest)
			requests.POST("/:id/received", requestHTTP.AcknowledgeReceipt)
		}

		users := protected.Group("/users")
		{
			users.POST("", userHTTP.Register)
			users.GET("", userHTTP.ListUsers)
			users.GET("/:id", userHTTP.GetUser)
			users.PUT("/profile", userHTTP.UpdateProfile)
			users.PUT("/:id/password", userHTTP.UpdatePassword)
			users.DELETE("/:id", userHTTP.DeleteUser)
			users.POST("/:id/toggleadmin", userHTTP.ToggleAdmin)
			users.POST("/:id/togglesuperuser", userHTTP.ToggleSuperuser)
		}
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"message":   "Server is running",
			"timestamp": time.Now(),
		})
	})

	port := ":" + cfg.Server.Port
	log.Printf("Starting server on port %s", port)
	if err := r.Run(port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
