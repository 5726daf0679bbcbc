package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/pytake/pytake-go/internal/config"
	"github.com/pytake/pytake-go/internal/database"
	"github.com/pytake/pytake-go/internal/health"
	"github.com/pytake/pytake-go/internal/jobs"
	"github.com/pytake/pytake-go/internal/jobs/handlers"
	"github.com/pytake/pytake-go/internal/logger"
	"github.com/pytake/pytake-go/internal/redis"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg.Log.Level)
	log.Info("starting job engine", "version", cfg.AppVersion)

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatal("failed to connect to database", "error", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal("failed to run migrations", "error", err)
	}

	rdb, err := redis.Connect(cfg)
	if err != nil {
		log.Fatal("failed to connect to redis", "error", err)
	}
	defer rdb.Close()

	store := jobs.NewGormStore(db)
	resolver := jobs.NewConfigResolver(cfg)
	jobsCfg := jobs.AppConfigToJobsConfig(cfg)

	resolvedCapabilities := map[string]bool{
		"database": true,
		"webhook":  true,
		// "whatsapp" and "ai" remain unresolved until a WhatsApp sender and
		// AI collaborator are wired below; RegisterAll leaves the jobs that
		// require them disabled in that case.
	}

	engine := jobs.NewEngine(log, store, resolvedCapabilities, jobsCfg, resolver, prometheus.DefaultRegisterer)

	deps := handlers.Dependencies{
		DB:         db,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		// EmailSender, WhatsAppSender, CampaignEngine and
		// ConversationStatsSource are left nil until this binary is wired
		// against the application's outbound-messaging and campaign
		// services; RegisterAll disables the jobs that need them rather
		// than registering a handler that would always fail Validate.
	}

	if err := handlers.RegisterAll(engine, deps); err != nil {
		log.Fatal("failed to register job handlers", "error", err)
	}
	if issues := engine.Freeze(); len(issues) > 0 {
		for _, issue := range issues {
			log.Warn("job dependency unresolved", "issue", issue)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := engine.Start(ctx); err != nil {
		log.Fatal("failed to start job engine", "error", err)
	}

	router := newRouter(engine, db, rdb, log)
	httpServer := &http.Server{
		Addr:           ":" + cfg.AppPort,
		Handler:        router,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("failed to start control surface", "error", err)
		}
	}()
	log.Info("job engine control surface started", "port", cfg.AppPort)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down job engine")

	engine.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Fatal("control surface forced to shutdown", "error", err)
	}

	log.Info("job engine exited")
}

func newRouter(engine *jobs.Engine, db *gorm.DB, rdb *redis.Client, log *logger.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	healthHandler := health.NewHandler(db, rdb.Client, engine, log)
	router.GET("/health", healthHandler.GetHealth)
	router.GET("/health/live", healthHandler.GetLiveness)
	router.GET("/health/ready", healthHandler.GetReadiness)

	jobsGroup := router.Group("/jobs")
	{
		jobsGroup.GET("/stats", func(c *gin.Context) {
			c.JSON(http.StatusOK, engine.GetExecutorStats())
		})
		jobsGroup.GET("/health", func(c *gin.Context) {
			health := engine.GetSystemHealth()
			status := http.StatusOK
			if health.Level != jobs.HealthHealthy {
				status = http.StatusServiceUnavailable
			}
			c.JSON(status, health)
		})
		jobsGroup.GET("/:type", func(c *gin.Context) {
			details, ok := engine.GetJobDetails(jobs.TypeOf(c.Param("type")))
			if !ok {
				c.JSON(http.StatusNotFound, gin.H{"error": "unknown job type"})
				return
			}
			c.JSON(http.StatusOK, details)
		})
		jobsGroup.POST("/:type/trigger", func(c *gin.Context) {
			jobType := jobs.TypeOf(c.Param("type"))
			if err := engine.TriggerJob(c.Request.Context(), jobType); err != nil {
				log.Error("trigger job failed", "job_type", jobType.String(), "error", err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusAccepted, gin.H{"status": "triggered"})
		})
	}

	return router
}
