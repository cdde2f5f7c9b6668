package api

import (
	"github.com/gin-gonic/gin"

	"paysaga/internal/platform/authgate"
	"paysaga/internal/platform/telemetry"
)

// RegisterRoutes wires the risk engine's operator surface, gated by a
// bearer-JWT "operator" role check standing in for the externally-owned
// operator auth system.
func RegisterRoutes(router *gin.Engine, deps Dependencies, gate *authgate.Gate) {
	router.Use(telemetry.Middleware("risk"))
	router.GET("/metrics", telemetry.Handler())

	ops := router.Group("/ops")
	if gate != nil {
		ops.Use(gate.Middleware())
	}
	ops.GET("/reviews", MakeListReviewsHandler(deps))
	ops.POST("/reviews/:id/approve", MakeApproveReviewHandler(deps))
	ops.POST("/reviews/:id/deny", MakeDenyReviewHandler(deps))
}
