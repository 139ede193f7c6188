package handler

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var (
	routerOnce sync.Once
	router     *gin.Engine
)

// NewRouter wires the Pipedrive client, the synchronizer and all routes
func NewRouter(config *Config, logger *zap.Logger) *gin.Engine {
	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	if !config.HasPipedriveConfig() {
		logger.Warn("Pipedrive token, pipeline or stage is not configured; deals may be rejected",
			zap.Bool("has_token", config.PipedriveAPIToken != ""),
			zap.String("pipeline_id", config.PipedrivePipelineID),
			zap.String("stage_id", config.PipedriveStageID),
		)
	}

	metrics := NewMetrics()
	client := NewPipedriveClient(config, logger, metrics)
	synchronizer := NewBookingSynchronizer(client, config, logger)

	r := gin.New()
	r.Use(RequestID(), GinLogger(logger), Recovery(logger))

	r.GET("/", RootHandler)
	r.GET("/health", HealthCheckHandler)
	r.GET("/api/health", HealthCheckHandler)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	webhook := CalcomWebhookHandler(synchronizer, metrics, logger)
	r.Any("/webhook/calcom", webhook)
	r.Any("/api/webhook/calcom", webhook)

	logger.Info("routes configured")
	return r
}

// Handler is the Vercel serverless function entry point
func Handler(w http.ResponseWriter, r *http.Request) {
	routerOnce.Do(func() {
		config := LoadConfig()
		router = NewRouter(config, NewLogger(config))
	})
	router.ServeHTTP(w, r)
}
