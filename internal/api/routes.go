package api

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"akiyascout/server/internal/database"
	"akiyascout/server/internal/scheduler"
)

func SetupRoutes(router *gin.Engine, db *database.Database, sched *scheduler.Scheduler, logger *logrus.Logger) {
	handler := NewHandler(db, sched, logger)

	api := router.Group("/api")
	{
		api.POST("/jobs", handler.TriggerJob)
		api.GET("/jobs", handler.ListJobs)
		api.GET("/jobs/:id", handler.GetJob)
		api.POST("/jobs/:id/cancel", handler.CancelJob)
		api.GET("/health", handler.GetHealth)
		api.GET("/sources", handler.ListSources)
		api.GET("/properties", handler.ListProperties)
		api.GET("/properties/:id", handler.GetProperty)
		api.GET("/listings", handler.ListListings)
		api.POST("/scheduler/start", handler.StartScheduler)
		api.POST("/scheduler/stop", handler.StopScheduler)
	}
}
