package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CalcomWebhookHandler handles Cal.com booking webhooks. It is mounted for
// every method so that non-POST requests get the JSON 405 body.
func CalcomWebhookHandler(synchronizer *BookingSynchronizer, metrics *Metrics, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := loggerFrom(c, logger)

		if c.Request.Method != http.MethodPost {
			metrics.ObserveBooking("rejected")
			c.JSON(http.StatusMethodNotAllowed, ErrorResponse{Error: "Method not allowed"})
			return
		}

		var payload CalWebhookPayload
		if err := c.ShouldBindJSON(&payload); err != nil {
			// An unreadable body carries no attendee either. A field of the
			// wrong type leaves the rest decoded, and the sync goes ahead.
			log.Warn("could not decode booking payload", zap.Error(err))
		}

		attendee, ok := payload.Payload.PrimaryAttendee()
		if !ok {
			metrics.ObserveBooking("rejected")
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "No attendee found"})
			return
		}

		log.Info("received Cal.com booking",
			zap.String("trigger_event", payload.TriggerEvent),
			zap.String("title", payload.Payload.DisplayTitle()),
			zap.String("start_time", payload.Payload.StartTime),
			zap.String("attendee", attendee.Name),
		)

		result, err := synchronizer.sync(c.Request.Context(), payload.Payload, log)
		if err != nil {
			fields := []zap.Field{zap.Error(err)}
			var stageErr *StageError
			if errors.As(err, &stageErr) {
				fields = append(fields, zap.String("stage", string(stageErr.Stage)))
			}
			log.Error("booking sync failed", fields...)
			metrics.ObserveBooking("failed")
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Internal server error"})
			return
		}

		metrics.ObserveBooking("synced")
		c.JSON(http.StatusOK, WebhookResponse{
			Success:  true,
			DealID:   result.DealID,
			PersonID: result.PersonID,
			OrgID:    result.OrgID,
			Warnings: result.Warnings,
		})
	}
}

// HealthCheckHandler provides a simple health check endpoint
func HealthCheckHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "PipCal Webhook Server",
		"version": "3.0.0",
	})
}

// RootHandler describes the service and its endpoints
func RootHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "running",
		"message": "PipCal Webhook Server",
		"version": "3.0.0",
		"endpoints": gin.H{
			"health":  "/health",
			"metrics": "/metrics",
			"webhooks": gin.H{
				"cal": "/api/webhook/calcom",
			},
		},
	})
}
