package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title Propsync Local Sync API
// @version 1.0
// @description Local API over the offline mutation queue and sync engine of the propsync mobile client
// @contact.name API Support
// @contact.url http://github.com/Kamar-Folarin
// @license.name MIT
// @license.url https://opensource.org/licenses/MIT
// @host localhost:8080
// @BasePath /api/v1
// @schemes http

// SetupRouter configures the API routes
func SetupRouter(h *Handler, logger *logrus.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(logger))
	r.Use(corsMiddleware())

	// API documentation
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// API v1 group
	v1 := r.Group("/api/v1")
	{
		// @Summary Submit a mutation
		// @Description Apply a create, update or delete now when online, otherwise queue it and update the local read model
		// @Tags mutations
		// @Accept json
		// @Produce json
		// @Param mutation body engine.Mutation true "Mutation"
		// @Success 200 {object} engine.SubmitResult "Applied remotely"
		// @Success 202 {object} engine.SubmitResult "Queued"
		// @Failure 400 {object} ErrorResponse
		// @Failure 422 {object} ErrorResponse
		// @Failure 500 {object} ErrorResponse
		// @Router /mutations [post]
		v1.POST("/mutations", h.SubmitMutation)

		queue := v1.Group("/queue")
		{
			// @Summary Enqueue a raw intent
			// @Description Append an intent to the durable queue without touching the local read model
			// @Tags queue
			// @Accept json
			// @Produce json
			// @Param intent body models.Intent true "Intent"
			// @Success 201 {object} EnqueueResponse
			// @Failure 400 {object} ErrorResponse
			// @Failure 500 {object} ErrorResponse
			// @Router /queue [post]
			queue.POST("", h.EnqueueIntent)

			// @Summary Count pending mutations
			// @Tags queue
			// @Produce json
			// @Success 200 {object} PendingCountResponse
			// @Failure 500 {object} ErrorResponse
			// @Router /queue/pending/count [get]
			queue.GET("/pending/count", h.CountPending)

			// @Summary Queue statistics
			// @Tags queue
			// @Produce json
			// @Success 200 {object} models.QueueStats
			// @Failure 500 {object} ErrorResponse
			// @Router /queue/stats [get]
			queue.GET("/stats", h.GetQueueStats)

			// @Summary List dead-lettered mutations
			// @Tags queue
			// @Produce json
			// @Success 200 {array} models.QueueItem
			// @Failure 500 {object} ErrorResponse
			// @Router /queue/failed [get]
			queue.GET("/failed", h.ListFailed)

			// @Summary Discard a dead-lettered mutation
			// @Tags queue
			// @Param id path string true "Queue item id"
			// @Success 204 "No Content"
			// @Failure 404 {object} ErrorResponse
			// @Failure 500 {object} ErrorResponse
			// @Router /queue/failed/{id} [delete]
			queue.DELETE("/failed/:id", h.DiscardFailed)
		}

		sync := v1.Group("/sync")
		{
			// @Summary Run a drain pass
			// @Description Drain every eligible queued mutation and return the pass summary
			// @Tags sync
			// @Produce json
			// @Param reason query string false "What triggered the pass" Enums(manual, foreground, connectivity, timer, startup) default(manual)
			// @Success 200 {object} models.SyncSummary
			// @Router /sync [post]
			sync.POST("", h.RunSync)

			// @Summary Get sync status
			// @Tags sync
			// @Produce json
			// @Success 200 {object} models.SyncStatus
			// @Failure 500 {object} ErrorResponse
			// @Router /sync/status [get]
			sync.GET("/status", h.GetSyncStatus)
		}

		resync := v1.Group("/resync/:entity")
		{
			// @Summary Full resync of one entity type
			// @Description Replace the local read model of an entity type with the server collection
			// @Tags resync
			// @Produce json
			// @Param entity path string true "Entity type" Enums(saved_property, search_history, document, loi)
			// @Success 200 {object} models.SyncSummary
			// @Failure 400 {object} ErrorResponse
			// @Router /resync/{entity} [post]
			resync.POST("", h.Resync)

			// @Summary Resync progress
			// @Tags resync
			// @Produce json
			// @Param entity path string true "Entity type" Enums(saved_property, search_history, document, loi)
			// @Success 200 {object} models.ResyncProgress
			// @Failure 400 {object} ErrorResponse
			// @Failure 404 {object} ErrorResponse
			// @Router /resync/{entity}/progress [get]
			resync.GET("/progress", h.GetResyncProgress)
		}

		// @Summary List local records
		// @Tags records
		// @Produce json
		// @Param entity path string true "Entity type" Enums(saved_property, search_history, document, loi)
		// @Success 200 {array} models.LocalRecord
		// @Failure 400 {object} ErrorResponse
		// @Failure 500 {object} ErrorResponse
		// @Router /records/{entity} [get]
		v1.GET("/records/:entity", h.ListRecords)

		// @Summary Recent alerts
		// @Tags alerts
		// @Produce json
		// @Success 200 {array} alert.Signal
		// @Router /alerts [get]
		v1.GET("/alerts", h.ListAlerts)
	}

	return r
}

// requestLogger logs each request through logrus
func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := logger.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		})
		if c.Writer.Status() >= 500 {
			entry.Warn("Request failed")
			return
		}
		entry.Debug("Request handled")
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
