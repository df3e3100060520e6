package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/yersultanov/HabitStreakBackend/cache"
	"github.com/yersultanov/HabitStreakBackend/db"
	"github.com/yersultanov/HabitStreakBackend/handlers"
	"github.com/yersultanov/HabitStreakBackend/middleware"
	"github.com/yersultanov/HabitStreakBackend/models"
	"github.com/yersultanov/HabitStreakBackend/routes"
	"github.com/yersultanov/HabitStreakBackend/utils"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	utils.InitLogger()
	defer utils.Logger.Sync()
	utils.InitMetrics()

	utils.Logger.Info("starting_application")

	db.Connect()
	if err := db.DB.AutoMigrate(
		&models.User{},
		&models.Habit{},
		&models.Checkin{},
		&models.StreakSnapshot{},
		&models.DailyAnalytics{},
		&models.FreezeToken{},
		&models.UserCounters{},
		&models.EventLog{},
	); err != nil {
		utils.Logger.Fatal("migration_failed", zap.Error(err))
	}

	if err := cache.InitRedis(utils.Logger); err != nil {
		utils.Logger.Warn("redis_unavailable_continuing_without_cache", zap.Error(err))
	}
	defer cache.Close()

	gin.SetMode(gin.ReleaseMode)
	middleware.RegisterValidators()
	r := gin.New()

	r.Use(middleware.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.SecurityHeaders())

	// Bearer-token clients don't need CSRF; enable for cookie-auth deployments.
	if csrfKey := os.Getenv("CSRF_AUTH_KEY"); csrfKey != "" {
		r.Use(middleware.CSRFProtection([]byte(csrfKey)))
	}

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	if cache.Client != nil {
		r.Use(middleware.RateLimitMiddleware(300, time.Minute))
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now(),
			"database":  "connected",
		})
	})

	r.POST("/api/register", routes.Register)
	r.POST("/api/login", routes.Login)

	api := r.Group("/api")
	api.Use(middleware.AuthMiddleware())
	{
		api.GET("/profile", routes.Profile)
		api.PUT("/profile", routes.UpdateProfile)

		api.GET("/habits", handlers.GetHabits)
		api.POST("/habits", handlers.CreateHabit)
		api.GET("/habits/:id", handlers.GetHabit)
		api.PUT("/habits/:id", handlers.UpdateHabit)
		api.DELETE("/habits/:id", handlers.DeleteHabit)

		api.GET("/habits/:id/checkins", handlers.ListCheckins)
		api.POST("/habits/:id/checkins", handlers.CreateCheckin)
		api.POST("/habits/:id/skip", handlers.CreateSkip)

		api.POST("/freezes", handlers.GrantFreezes)
		api.POST("/freezes/activate", handlers.ActivateFreeze)
		api.GET("/user/counters", handlers.GetUserCounters)

		api.GET("/stats", handlers.GetUserStats)
		api.GET("/events", handlers.ListEvents)

		admin := api.Group("/admin")
		admin.Use(middleware.RoleMiddleware(models.RoleAdmin))
		admin.GET("/events", handlers.ListEvents)

		analytics := api.Group("/analytics")
		if cache.Client != nil {
			analytics.Use(middleware.CacheMiddleware(5 * time.Minute))
		}
		analytics.GET("/habits/:id/daily", handlers.GetDailyAnalytics)
	}

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	startServer(r)
}

func startServer(router *gin.Engine) {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	utils.Logger.Info("starting_http_server", zap.String("port", port))

	fmt.Println("\n🚀 ================================")
	fmt.Println("   Habit Streak Backend Started")
	fmt.Println("   ================================")
	fmt.Printf("   🌐 Server:  http://localhost:%s\n", port)
	fmt.Printf("   📊 Metrics: http://localhost:%s/metrics\n", port)
	fmt.Printf("   ❤️  Health: http://localhost:%s/health\n", port)
	fmt.Println("   ================================")

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			utils.Logger.Fatal("http_server_failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	utils.Logger.Info("shutting_down_server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		utils.Logger.Fatal("server_forced_shutdown", zap.Error(err))
	}

	utils.Logger.Info("server_stopped")
}
