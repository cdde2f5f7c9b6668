// Package api exposes the risk engine's operator review surface: list
// pending reviews, approve or deny one, driving the onward risk.approved /
// risk.denied event that the orchestrator's RISK_REVIEW branch awaits.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"

	"paysaga/internal/platform/apierrors"
	"paysaga/internal/risk/domain"
	"paysaga/internal/risk/store"
)

type Dependencies interface {
	GetStore() *store.Store
}

type reviewResponse struct {
	ID          int64  `json:"id"`
	PaymentID   string `json:"payment_id"`
	CustomerID  string `json:"customer_id"`
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
	Reason      string `json:"reason"`
	Status      string `json:"status"`
}

func toResponse(r domain.RiskReview) reviewResponse {
	return reviewResponse{
		ID: r.ID, PaymentID: r.PaymentID, CustomerID: r.CustomerID,
		AmountCents: r.AmountCents, Currency: r.Currency, Reason: r.Reason, Status: string(r.Status),
	}
}

// MakeListReviewsHandler implements GET /ops/reviews.
func MakeListReviewsHandler(deps Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		reviews, err := deps.GetStore().ListPending(c.Request.Context())
		if err != nil {
			writeError(c, apierrors.NewInternalError("failed to list reviews"))
			return
		}
		resp := make([]reviewResponse, 0, len(reviews))
		for _, r := range reviews {
			resp = append(resp, toResponse(r))
		}
		c.JSON(http.StatusOK, resp)
	}
}

// MakeApproveReviewHandler implements POST /ops/reviews/:id/approve.
func MakeApproveReviewHandler(deps Dependencies) gin.HandlerFunc {
	return makeResolveHandler(deps, domain.ReviewApproved, true)
}

// MakeDenyReviewHandler implements POST /ops/reviews/:id/deny.
func MakeDenyReviewHandler(deps Dependencies) gin.HandlerFunc {
	return makeResolveHandler(deps, domain.ReviewDenied, false)
}

func makeResolveHandler(deps Dependencies, newStatus domain.ReviewStatus, approved bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := parseID(c.Param("id"))
		if err != nil {
			writeError(c, apierrors.NewValidationError("invalid review id"))
			return
		}

		operator, _ := c.Get("operator_subject")
		operatorID, _ := operator.(string)

		s := deps.GetStore()
		var review domain.RiskReview
		err = s.WithTx(c.Request.Context(), func(tx pgx.Tx) error {
			review, err = s.GetReview(c.Request.Context(), tx, id)
			if err != nil {
				return err
			}
			if review.Status != domain.ReviewPending {
				return nil
			}
			resolved, err := s.Resolve(c.Request.Context(), tx, id, newStatus, operatorID)
			if err != nil {
				return err
			}
			if !resolved {
				return nil
			}
			return emitOutcome(c, tx, s, review, approved)
		})

		if errors.Is(err, store.ErrNotFound) {
			writeError(c, apierrors.NewNotFoundError("review"))
			return
		}
		if err != nil {
			writeError(c, apierrors.NewInternalError("failed to resolve review"))
			return
		}

		review.Status = newStatus
		c.JSON(http.StatusOK, toResponse(review))
	}
}

func emitOutcome(c *gin.Context, tx pgx.Tx, s *store.Store, review domain.RiskReview, approved bool) error {
	if approved {
		payload, err := json.Marshal(domain.RiskApprovedPayload{PaymentID: review.PaymentID})
		if err != nil {
			return err
		}
		return s.Outbox.Insert(c.Request.Context(), tx, review.PaymentID, review.PaymentID, "risk.approved", domain.TopicRiskApproved, payload)
	}
	payload, err := json.Marshal(domain.RiskDeniedPayload{PaymentID: review.PaymentID, Decision: domain.DecisionDeny, Reason: "operator decision"})
	if err != nil {
		return err
	}
	return s.Outbox.Insert(c.Request.Context(), tx, review.PaymentID, review.PaymentID, "risk.denied", domain.TopicRiskDenied, payload)
}

func parseID(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}

func writeError(c *gin.Context, err apierrors.APIError) {
	c.AbortWithStatusJSON(err.Status, err)
}
