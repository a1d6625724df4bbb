package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Kamar-Folarin/propsync/internal/alert"
	"github.com/Kamar-Folarin/propsync/internal/engine"
	apperrors "github.com/Kamar-Folarin/propsync/internal/errors"
	"github.com/Kamar-Folarin/propsync/internal/models"
)

// AlertSource exposes recently raised alerts
type AlertSource interface {
	Signals() []alert.Signal
}

// Handler serves the local sync API
type Handler struct {
	service engine.SyncService
	alerts  AlertSource
	logger  *logrus.Logger
}

// NewHandler creates a new API handler. alerts may be nil.
func NewHandler(service engine.SyncService, alerts AlertSource, logger *logrus.Logger) *Handler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Handler{
		service: service,
		alerts:  alerts,
		logger:  logger,
	}
}

// SubmitMutation applies or queues a create, update or delete
func (h *Handler) SubmitMutation(c *gin.Context) {
	var mutation engine.Mutation
	if err := c.ShouldBindJSON(&mutation); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	result, err := h.service.Submit(c.Request.Context(), mutation)
	if err != nil {
		h.respondWithError(c, err, "Failed to submit mutation")
		return
	}

	status := http.StatusOK
	if result.Queued {
		status = http.StatusAccepted
	}
	c.JSON(status, result)
}

// EnqueueIntent appends a raw intent to the queue
func (h *Handler) EnqueueIntent(c *gin.Context) {
	var intent models.Intent
	if err := c.ShouldBindJSON(&intent); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	id, err := h.service.Enqueue(c.Request.Context(), &intent)
	if err != nil {
		h.respondWithError(c, err, "Failed to enqueue intent")
		return
	}

	c.JSON(http.StatusCreated, EnqueueResponse{ID: id})
}

// CountPending returns the number of queued mutations eligible now
func (h *Handler) CountPending(c *gin.Context) {
	count, err := h.service.CountPending(c.Request.Context())
	if err != nil {
		h.respondWithError(c, err, "Failed to count pending mutations")
		return
	}
	c.JSON(http.StatusOK, PendingCountResponse{Pending: count})
}

// GetQueueStats returns the queue breakdown
func (h *Handler) GetQueueStats(c *gin.Context) {
	stats, err := h.service.QueueStats(c.Request.Context())
	if err != nil {
		h.respondWithError(c, err, "Failed to get queue stats")
		return
	}
	c.JSON(http.StatusOK, stats)
}

// ListFailed returns dead-lettered mutations
func (h *Handler) ListFailed(c *gin.Context) {
	items, err := h.service.ListFailed(c.Request.Context())
	if err != nil {
		h.respondWithError(c, err, "Failed to list failed mutations")
		return
	}
	if items == nil {
		items = []*models.QueueItem{}
	}
	c.JSON(http.StatusOK, items)
}

// DiscardFailed deletes a dead-lettered mutation
func (h *Handler) DiscardFailed(c *gin.Context) {
	if err := h.service.DiscardFailed(c.Request.Context(), c.Param("id")); err != nil {
		h.respondWithError(c, err, "Failed to discard mutation")
		return
	}
	c.Status(http.StatusNoContent)
}

// RunSync runs a drain pass and returns its summary
func (h *Handler) RunSync(c *gin.Context) {
	reason := engine.ParseTrigger(c.DefaultQuery("reason", string(engine.TriggerManual)))
	// a client disconnect must not cut the pass short
	summary := h.service.RunSync(context.WithoutCancel(c.Request.Context()), reason)
	c.JSON(http.StatusOK, summary)
}

// GetSyncStatus returns the drain status
func (h *Handler) GetSyncStatus(c *gin.Context) {
	status, err := h.service.GetSyncStatus(c.Request.Context())
	if err != nil {
		h.respondWithError(c, err, "Failed to get sync status")
		return
	}
	c.JSON(http.StatusOK, status)
}

// Resync rebuilds the local read model of one entity type
func (h *Handler) Resync(c *gin.Context) {
	entityType, ok := h.entityParam(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.service.Resync(c.Request.Context(), entityType))
}

// GetResyncProgress returns the last resync progress of one entity type
func (h *Handler) GetResyncProgress(c *gin.Context) {
	entityType, ok := h.entityParam(c)
	if !ok {
		return
	}

	progress, err := h.service.GetResyncProgress(c.Request.Context(), entityType)
	if err != nil {
		h.respondWithError(c, err, "Failed to get resync progress")
		return
	}
	c.JSON(http.StatusOK, progress)
}

// ListRecords returns the local read model of one entity type
func (h *Handler) ListRecords(c *gin.Context) {
	entityType, ok := h.entityParam(c)
	if !ok {
		return
	}

	records, err := h.service.ListRecords(c.Request.Context(), entityType)
	if err != nil {
		h.respondWithError(c, err, "Failed to list records")
		return
	}
	if records == nil {
		records = []*models.LocalRecord{}
	}
	c.JSON(http.StatusOK, records)
}

// ListAlerts returns recently raised alerts
func (h *Handler) ListAlerts(c *gin.Context) {
	signals := []alert.Signal{}
	if h.alerts != nil {
		signals = h.alerts.Signals()
	}
	c.JSON(http.StatusOK, signals)
}

func (h *Handler) entityParam(c *gin.Context) (models.EntityType, bool) {
	entityType, err := models.ParseEntityType(c.Param("entity"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return "", false
	}
	return entityType, true
}

// respondWithError maps application errors onto HTTP statuses. Client errors
// carry the error text; server errors carry message.
func (h *Handler) respondWithError(c *gin.Context, err error, message string) {
	switch {
	case apperrors.IsNotFound(err):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: errorText(err)})
	case apperrors.IsValidationError(err):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: errorText(err)})
	case apperrors.IsTerminal(err):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: errorText(err)})
	case apperrors.IsSyncInProgress(err):
		c.JSON(http.StatusConflict, ErrorResponse{Error: apperrors.SyncInProgressMessage})
	default:
		fields := logrus.Fields{"path": c.FullPath()}
		if errType := apperrors.TypeOf(err); errType != "" {
			fields["error_type"] = errType
		}
		h.logger.WithFields(fields).WithError(err).Error(message)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: message})
	}
}

// errorText returns the message of the outermost AppError, without its cause
func errorText(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}
