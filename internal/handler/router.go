package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"linkgate/internal/config"
	"linkgate/pkg/logger"
)

// NewRouter configures the Gin router with middleware and routes
func NewRouter(cfg *config.Config, log *logger.Logger, redirects *RedirectHandler, links *LinkHandler) *gin.Engine {
	// Set Gin mode based on environment
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Apply global middleware
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(log))
	router.Use(MetricsMiddleware())
	router.Use(SecurityHeadersMiddleware())
	router.Use(CORSMiddleware(cfg))
	router.Use(TimeoutMiddleware(cfg.RequestTimeout))

	// Operational endpoints
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "linkgate",
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Owner API
	v1 := router.Group("/api/v1")
	v1.Use(RateLimitMiddleware(cfg.RateLimitPerMinute, cfg.TrustProxyHeaders))
	v1.Use(AuthMiddleware(cfg.APIKeys))
	{
		v1.POST("/links", links.CreateLink)
		v1.GET("/links/:shortCode/stats", links.GetStats)
	}

	// Visitor endpoints
	public := router.Group("/")
	public.Use(RateLimitMiddleware(cfg.RateLimitPerMinute, cfg.TrustProxyHeaders))
	{
		public.GET("/q/:shortCode", redirects.RedirectQR)
		public.GET("/qr/:shortCode", redirects.QRCode)
		public.GET("/preview/:shortCode", redirects.Preview)
		public.GET("/:shortCode", redirects.Redirect)
	}

	// 404 handler
	router.NoRoute(func(c *gin.Context) {
		respondError(c, http.StatusNotFound, CodeURLNotFound, "endpoint not found")
	})

	return router
}
