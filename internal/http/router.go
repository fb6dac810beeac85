package http

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"convo-proxy/internal/metrics"
)

// RouterConfig agrupa lo que el router necesita ademas de los handlers.
type RouterConfig struct {
	Logger         *zap.Logger
	Metrics        *metrics.Metrics
	MetricsHandler http.Handler
	CORSOrigins    []string
	AdminKey       string
}

// NewRouter configura el router de Gin con middlewares y rutas base.
func NewRouter(
	cfg RouterConfig,
	chatH *ChatHandler,
	voiceH *VoiceHandler,
	adminH *AdminHandler,
	staticH *StaticHandler,
) *gin.Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := gin.New()

	// Middlewares basicos: logging, recovery, metricas y CORS.
	r.Use(zapLoggerMiddleware(logger), gin.Recovery(), metricsMiddleware(cfg.Metrics), corsMiddleware(cfg.CORSOrigins))

	r.GET("/", staticH.Index)
	r.GET("/admin", staticH.Admin)
	r.Static("/static", staticH.Dir())

	api := r.Group("/api")
	api.POST("/chat", chatH.PostChat)
	api.GET("/conversations/:session_id", chatH.GetConversation)
	api.GET("/health", Health)

	voice := api.Group("/voice")
	voice.POST("/transcribe", voiceH.Transcribe)
	voice.POST("/synthesize", voiceH.Synthesize)

	admin := api.Group("/admin", AdminKeyMiddleware(cfg.AdminKey))
	admin.GET("/stats", adminH.Stats)
	admin.GET("/conversations", adminH.Conversations)
	admin.GET("/download/csv", adminH.DownloadCSV)
	admin.GET("/download/json", adminH.DownloadJSON)

	if cfg.MetricsHandler != nil {
		r.GET("/metrics", gin.WrapH(cfg.MetricsHandler))
	}

	return r
}

// Health maneja GET /api/health.
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
	})
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// metricsMiddleware registra la latencia por ruta (template, no path crudo).
func metricsMiddleware(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.RecordHTTPRequest(c.Request.Context(), c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", adminKeyHeader},
		MaxAge:       12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cors.New(cfg)
}
