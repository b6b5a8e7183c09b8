package server

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"publisher/domain/repository"
	"publisher/infrastructure/realtime"
	httpHandler "publisher/interfaces/http"
	"publisher/interfaces/middleware"
)

func InitiateRouter(
	userHandler httpHandler.IUserHandler,
	publishHandler httpHandler.IPublishHandler,
	scheduleHandler httpHandler.IScheduleHandler,
	metricsHandler httpHandler.IMetricsHandler,
	publishHub *realtime.Hub,
	userRepository repository.IUser,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:4200", "http://localhost:4201", "https://localhost:4200", "https://localhost:4201"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.POST("/login", userHandler.Login)
	router.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("api")
	api.Use(middleware.Auth(userRepository))

	publish := api.Group("/publish")
	{
		publish.POST("", publishHandler.Publish)
		publish.GET("/stream", publishHub.Serve)
		publish.GET("/:contentId/status", publishHandler.Status)
		publish.POST("/:contentId/rollback", publishHandler.Rollback)
	}

	schedule := api.Group("/schedule")
	{
		schedule.POST("", scheduleHandler.Schedule)
		schedule.POST("/bulk", scheduleHandler.ScheduleBulk)
		schedule.GET("/:jobId", scheduleHandler.JobState)
		schedule.DELETE("/:jobId", scheduleHandler.Cancel)
	}

	api.GET("/queues/metrics", metricsHandler.QueueMetrics)

	return router
}
