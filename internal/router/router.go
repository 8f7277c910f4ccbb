package router

import (
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"paylink-backend/internal/app"
	"paylink-backend/internal/config"
	"paylink-backend/internal/handlers"
	"paylink-backend/internal/metrics"
	"paylink-backend/internal/middleware"
)

// corsMiddleware applies CORS headers.
// Priority: Environment Variable > YAML Config > Default (*)
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		allowedOrigins := []string{"*"}
		allowCredentials := true
		maxAge := 3600

		if envOrigins := os.Getenv("CORS_ALLOWED_ORIGINS"); envOrigins != "" {
			allowedOrigins = allowedOrigins[:0]
			for _, o := range strings.Split(envOrigins, ",") {
				if trimmed := strings.TrimSpace(o); trimmed != "" {
					allowedOrigins = append(allowedOrigins, trimmed)
				}
			}
		} else if config.AppConfig != nil && len(config.AppConfig.CORS.AllowedOrigins) > 0 {
			allowedOrigins = config.AppConfig.CORS.AllowedOrigins
			allowCredentials = config.AppConfig.CORS.AllowCredentials
			if config.AppConfig.CORS.MaxAge > 0 {
				maxAge = config.AppConfig.CORS.MaxAge
			}
		}

		origin := c.GetHeader("Origin")
		if len(allowedOrigins) == 1 && allowedOrigins[0] == "*" {
			c.Header("Access-Control-Allow-Origin", "*")
		} else if origin != "" {
			for _, allowed := range allowedOrigins {
				if strings.TrimSpace(allowed) == origin {
					c.Header("Access-Control-Allow-Origin", origin)
					break
				}
			}
		}

		if c.Request.Method == http.MethodOptions {
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, Authorization, Cache-Control, Accept")
			if allowCredentials {
				c.Header("Access-Control-Allow-Credentials", "true")
			}
			c.Header("Access-Control-Max-Age", strconv.Itoa(maxAge))
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		if allowCredentials && origin != "" {
			c.Header("Access-Control-Allow-Credentials", "true")
		}
		c.Next()
	}
}

// metricsMiddleware records request durations per route.
func metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			path,
			strconv.Itoa(c.Writer.Status()),
		).Observe(time.Since(start).Seconds())
	}
}

// SetupRouter builds the gin engine with all routes registered.
func SetupRouter(container *app.ServiceContainer) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(corsMiddleware())
	r.Use(metricsMiddleware())

	paymentHandler := handlers.NewPaymentHandler(container.PaymentService)
	wsHandler := handlers.NewWebSocketHandler(container.EventHub, container.Logger)
	authMiddleware := middleware.NewAuthMiddleware(config.AppConfig.Auth.JWTSecret, container.Logger)
	signatureMiddleware := middleware.NewSignatureMiddleware(
		container.Signer,
		config.AppConfig.Signing.CounterpartyID,
		config.AppConfig.Signing.MaxSkew(),
		container.Logger,
	)

	// Health & monitoring
	r.GET("/health", handlers.HealthCheckHandler)
	r.GET("/health/db", handlers.DatabaseHealthCheckHandler)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Client-facing API
	api := r.Group("/api/v1")
	api.Use(authMiddleware.RequireAuth())
	{
		api.POST("/payments/parse", paymentHandler.ParseLinkHandler)
		api.POST("/payments/resolve", paymentHandler.ResolvePaymentHandler)
		api.POST("/addresses/validate", paymentHandler.ValidateAddressHandler)
		api.POST("/addresses", paymentHandler.SaveAddressHandler)
	}

	// Service-to-service API, authenticated by request signature
	internalAPI := r.Group("/internal/v1")
	internalAPI.Use(signatureMiddleware.RequireSignature())
	{
		internalAPI.POST("/payments/resolve", paymentHandler.ResolvePaymentHandler)
	}

	// Event stream
	r.GET("/ws/payments", wsHandler.StreamHandler)

	return r
}
