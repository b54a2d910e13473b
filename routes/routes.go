package routes

import (
	"net/http"
	"time"

	"rentline/handlers"
	"rentline/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterComplianceRoutes registers the document catalog endpoints.
func RegisterComplianceRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/compliance")
	{
		api.GET("/requirements/:category", hb.GetRequirementsHandler)
		api.POST("/evaluate", hb.EvaluateHandler)
	}
}

// RegisterCheckoutRoutes registers the checkout document session endpoints.
func RegisterCheckoutRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/checkout/documents")
	{
		api.POST("", hb.StartCheckoutSession)
		api.GET("/:sessionID", hb.GetCheckoutSession)
		api.PUT("/:sessionID/identity", hb.UpdateIdentity)
		api.PUT("/:sessionID/category", hb.ChangeCategory)
		api.POST("/:sessionID/slots/:slotID/events", hb.ApplySlotEvent)
		api.POST("/:sessionID/slots/:slotID/upload", hb.UploadDocument)
		api.POST("/:sessionID/finalize", hb.FinalizeCheckout)
	}
}

// RegisterAgreementRoutes registers the signing flow endpoints.
func RegisterAgreementRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/agreements")
	{
		api.POST("", hb.OpenAgreement)
		api.GET("/:id", hb.GetAgreement)
		api.GET("/:id/history", hb.AgreementHistory)
		api.POST("/:id/signatures", hb.SignAgreement)
		api.POST("/:id/generate", hb.GenerateAgreement)
	}
}

// RegisterHealthRoute reports the latest dependency health snapshot.
func RegisterHealthRoute(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		status := utils.GetHealthStatus()
		code := http.StatusOK
		if !status.CheckedAt.IsZero() && (!status.Mongo || !status.Redis) {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{"status": status, "message": "Hi, I'm Rentline"})
	})
}

// RegisterMetricsRoute exposes prometheus metrics.
func RegisterMetricsRoute(r *gin.Engine) {
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type", utils.RequestIDKey},
		ExposeHeaders:    []string{"Content-Length", utils.RequestIDKey},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	RegisterHealthRoute(r)
	RegisterMetricsRoute(r)
	RegisterComplianceRoutes(r, hb)
	RegisterCheckoutRoutes(r, hb)
	RegisterAgreementRoutes(r, hb)
}
