package api

import (
	"github.com/gin-gonic/gin"

	"paysaga/internal/platform/telemetry"
)

func RegisterRoutes(router *gin.Engine, deps Dependencies) {
	router.Use(telemetry.Middleware("ledger"))
	router.GET("/metrics", telemetry.Handler())

	router.GET("/reconciliation", MakeGetGlobalReconciliationHandler(deps))
	router.GET("/reconciliation/:transaction_id", MakeGetTransactionReconciliationHandler(deps))
}
