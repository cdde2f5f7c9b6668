// Package api is the orchestrator's HTTP surface, following the teacher's
// gin handler idiom: a Make*Handler(deps) closure capturing the store once
// at route-registration time instead of reaching for a package-level
// singleton.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"paysaga/internal/orchestrator/domain"
	"paysaga/internal/orchestrator/store"
	"paysaga/internal/platform/apierrors"
	"paysaga/internal/platform/cache"
)

type Dependencies interface {
	GetStore() *store.Store
	GetCache() *cache.Cache
}

type createPaymentRequest struct {
	CustomerID     string `json:"customer_id" binding:"required"`
	AmountCents    int64  `json:"amount_cents"`
	Currency       string `json:"currency" binding:"required"`
	IdempotencyKey string `json:"idempotency_key" binding:"required"`
}

type paymentResponse struct {
	PaymentID string `json:"payment_id"`
	Status    string `json:"status"`
}

// MakeCreatePaymentHandler implements POST /payments: a Redis fast-path
// idempotency check followed by an insert guarded by the unique
// (customer_id, idempotency_key) constraint, matching §4.4's "fast-path
// check ... otherwise attempt insert ... on conflict, read back".
func MakeCreatePaymentHandler(deps Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createPaymentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, apierrors.NewValidationError("invalid request body: "+err.Error()))
			return
		}
		if req.AmountCents < 0 {
			writeError(c, apierrors.NewValidationError("amount_cents must not be negative"))
			return
		}
		if !domain.AllowedCurrencies[req.Currency] {
			writeError(c, apierrors.NewValidationError("unsupported currency: "+req.Currency))
			return
		}

		correlationID := c.GetHeader("x-correlation-id")
		if correlationID == "" {
			correlationID = uuid.NewString()
		}

		fastPathKey := "payment:" + req.CustomerID + ":" + req.IdempotencyKey
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		if existingID, hit, err := deps.GetCache().GetString(ctx, fastPathKey); err == nil && hit {
			p, err := deps.GetStore().GetPayment(ctx, existingID)
			if err == nil {
				c.JSON(http.StatusOK, paymentResponse{PaymentID: p.PaymentID, Status: string(p.Status)})
				return
			}
		}

		p := domain.Payment{
			PaymentID:      uuid.NewString(),
			CustomerID:     req.CustomerID,
			AmountCents:    req.AmountCents,
			Currency:       req.Currency,
			IdempotencyKey: req.IdempotencyKey,
			CorrelationID:  correlationID,
		}

		created, isNew, err := deps.GetStore().CreateOrGetPayment(ctx, p)
		if err != nil {
			writeError(c, apierrors.NewInternalError("failed to create payment"))
			return
		}

		_ = deps.GetCache().SetString(ctx, "payment:"+created.CustomerID+":"+created.IdempotencyKey, created.PaymentID, 24*time.Hour)

		status := http.StatusOK
		if isNew {
			status = http.StatusCreated
		}
		c.JSON(status, paymentResponse{PaymentID: created.PaymentID, Status: string(created.Status)})
	}
}

type timelineEntryResponse struct {
	FromState string    `json:"from_state"`
	ToState   string    `json:"to_state"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

type paymentDetailResponse struct {
	PaymentID    string                  `json:"payment_id"`
	CustomerID   string                  `json:"customer_id"`
	AmountCents  int64                   `json:"amount_cents"`
	Currency     string                  `json:"currency"`
	Status       string                  `json:"status"`
	StateVersion int64                   `json:"state_version"`
	Timeline     []timelineEntryResponse `json:"timeline"`
}

// MakeGetPaymentHandler implements GET /payments/{payment_id}.
func MakeGetPaymentHandler(deps Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		paymentID := c.Param("payment_id")

		p, err := deps.GetStore().GetPayment(c.Request.Context(), paymentID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeError(c, apierrors.NewNotFoundError("payment"))
				return
			}
			writeError(c, apierrors.NewInternalError("failed to load payment"))
			return
		}

		entries, err := deps.GetStore().Timeline(c.Request.Context(), paymentID)
		if err != nil {
			writeError(c, apierrors.NewInternalError("failed to load timeline"))
			return
		}

		resp := paymentDetailResponse{
			PaymentID: p.PaymentID, CustomerID: p.CustomerID, AmountCents: p.AmountCents,
			Currency: p.Currency, Status: string(p.Status), StateVersion: p.StateVersion,
		}
		for _, e := range entries {
			resp.Timeline = append(resp.Timeline, timelineEntryResponse{
				FromState: string(e.FromState), ToState: string(e.ToState), Reason: e.Reason, Timestamp: e.Timestamp,
			})
		}
		c.JSON(http.StatusOK, resp)
	}
}

func writeError(c *gin.Context, err apierrors.APIError) {
	c.AbortWithStatusJSON(err.Status, err)
}
