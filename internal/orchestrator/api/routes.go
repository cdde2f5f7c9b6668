package api

import (
	"github.com/gin-gonic/gin"

	"paysaga/internal/platform/ratelimit"
	"paysaga/internal/platform/telemetry"
)

// RegisterRoutes wires the orchestrator's router the way the teacher's
// RegisterRoutes(router, container) does: middleware first, then one
// Make*Handler call per route, all capturing deps by closure.
func RegisterRoutes(router *gin.Engine, deps Dependencies, limiter *ratelimit.Limiter) {
	router.Use(telemetry.Middleware("orchestrator"))

	router.GET("/metrics", telemetry.Handler())

	payments := router.Group("/payments")
	if limiter != nil {
		payments.Use(limiter.Middleware())
	}
	payments.POST("", MakeCreatePaymentHandler(deps))
	router.GET("/payments/:payment_id", MakeGetPaymentHandler(deps))
}
