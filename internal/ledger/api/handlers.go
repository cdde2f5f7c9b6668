// Package api exposes the ledger's reconciliation surface: per-transaction
// and global debit/credit balance checks.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"paysaga/internal/ledger/domain"
	"paysaga/internal/ledger/store"
	"paysaga/internal/platform/apierrors"
)

type Dependencies interface {
	GetStore() *store.Store
}

type reconciliationResponse struct {
	TransactionID string `json:"transaction_id,omitempty"`
	DebitTotal    string `json:"debit_total"`
	CreditTotal   string `json:"credit_total"`
	Delta         string `json:"delta"`
	Balanced      bool   `json:"balanced"`
}

func toResponse(r domain.ReconciliationResult) reconciliationResponse {
	return reconciliationResponse{
		TransactionID: r.TransactionID,
		DebitTotal:    centsToDecimal(r.DebitTotal).StringFixed(2),
		CreditTotal:   centsToDecimal(r.CreditTotal).StringFixed(2),
		Delta:         centsToDecimal(r.DeltaCents).StringFixed(2),
		Balanced:      r.Balanced,
	}
}

// centsToDecimal renders an integer-cents amount as a human-readable
// decimal for operator-facing reconciliation output only; internal
// arithmetic stays in integer cents throughout.
func centsToDecimal(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// MakeGetTransactionReconciliationHandler implements
// GET /reconciliation/:transaction_id.
func MakeGetTransactionReconciliationHandler(deps Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		txID := c.Param("transaction_id")
		result, err := deps.GetStore().Reconcile(c.Request.Context(), txID)
		if err != nil {
			writeError(c, apierrors.NewInternalError("failed to reconcile transaction"))
			return
		}
		c.JSON(http.StatusOK, toResponse(result))
	}
}

type globalReconciliationResponse struct {
	Checked    int                      `json:"checked"`
	Imbalanced []reconciliationResponse `json:"imbalanced"`
}

// MakeGetGlobalReconciliationHandler implements GET /reconciliation: a
// global sweep returning the count checked and the imbalanced set.
func MakeGetGlobalReconciliationHandler(deps Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		checked, imbalanced, err := deps.GetStore().ReconcileAll(c.Request.Context())
		if err != nil {
			writeError(c, apierrors.NewInternalError("failed to run global reconciliation"))
			return
		}
		resp := globalReconciliationResponse{Checked: checked, Imbalanced: make([]reconciliationResponse, 0, len(imbalanced))}
		for _, r := range imbalanced {
			resp.Imbalanced = append(resp.Imbalanced, toResponse(r))
		}
		c.JSON(http.StatusOK, resp)
	}
}

func writeError(c *gin.Context, err apierrors.APIError) {
	c.AbortWithStatusJSON(err.Status, err)
}
