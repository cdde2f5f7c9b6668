package consumer_test

import (
	"context"
	_ "embed"
	"encoding/json"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"paysaga/internal/orchestrator/consumer"
	"paysaga/internal/orchestrator/domain"
	"paysaga/internal/orchestrator/store"
	"paysaga/internal/platform/eventenvelope"
)

//go:embed ../store/migrations/000001_init_schema.up.sql
var schemaSQL string

type ConsumerSuite struct {
	suite.Suite
	pool *pgxpool.Pool
	s    *store.Store
	c    *consumer.Consumer
}

func TestConsumerSuite(t *testing.T) {
	suite.Run(t, new(ConsumerSuite))
}

func (s *ConsumerSuite) SetupSuite() {
	ctx := context.Background()
	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("orchestrator"),
		tcpostgres.WithUsername("orchestrator"),
		tcpostgres.WithPassword("orchestrator"),
		wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(60*time.Second),
	)
	require.NoError(s.T(), err)
	s.T().Cleanup(func() { _ = container.Terminate(ctx) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(s.T(), err)

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(s.T(), err)
	s.T().Cleanup(pool.Close)
	_, err = pool.Exec(ctx, schemaSQL)
	require.NoError(s.T(), err)
	s.pool = pool
}

func (s *ConsumerSuite) SetupTest() {
	_, err := s.pool.Exec(context.Background(), `TRUNCATE payments, payment_attempts, payment_timeline, outbox_events, inbox_events CASCADE`)
	require.NoError(s.T(), err)
	s.s = store.New(s.pool)
	s.c = consumer.New(s.s)
}

func (s *ConsumerSuite) createPayment(paymentID, customerID string) domain.Payment {
	p, _, err := s.s.CreateOrGetPayment(context.Background(), domain.Payment{
		PaymentID: paymentID, CustomerID: customerID, AmountCents: 1000, Currency: "USD",
		IdempotencyKey: paymentID, CorrelationID: paymentID,
	})
	require.NoError(s.T(), err)
	return p
}

func (s *ConsumerSuite) env(eventType, paymentID, eventID string, payload interface{}) eventenvelope.Envelope {
	e, err := eventenvelope.New(eventType, paymentID, paymentID, payload)
	require.NoError(s.T(), err)
	if eventID != "" {
		e.EventID = eventID
	}
	return e
}

func (s *ConsumerSuite) lastOutboxRow() (eventType, topic string, payload []byte) {
	row := s.pool.QueryRow(context.Background(), `SELECT type, topic, payload FROM outbox_events ORDER BY created_at DESC LIMIT 1`)
	require.NoError(s.T(), row.Scan(&eventType, &topic, &payload))
	return
}

func (s *ConsumerSuite) status(paymentID string) domain.Status {
	p, err := s.s.GetPayment(context.Background(), paymentID)
	require.NoError(s.T(), err)
	return p.Status
}

func (s *ConsumerSuite) TestRiskApproved_MovesToApprovedAndRequestsAuthorization() {
	ctx := context.Background()
	s.createPayment("pay-1", "cust-1")

	env := s.env("risk.approved", "pay-1", "evt-1", domain.RiskApprovedPayload{PaymentID: "pay-1"})
	require.NoError(s.T(), s.c.Handle(ctx, env))

	s.Equal(domain.StatusApproved, s.status("pay-1"))

	eventType, topic, payload := s.lastOutboxRow()
	s.Equal("provider.authorize.requested", eventType)
	s.Equal(domain.TopicProviderAuthorizeRequested, topic)

	var req domain.ProviderAuthorizeRequestedPayload
	require.NoError(s.T(), json.Unmarshal(payload, &req))
	s.Equal("pay-1", req.PaymentID)
	s.Equal(int64(1000), req.AmountCents)
}

func (s *ConsumerSuite) TestRiskDenied_Review_MovesToRiskReviewWithoutEmitting() {
	ctx := context.Background()
	s.createPayment("pay-2", "cust-2")

	var before int
	require.NoError(s.T(), s.pool.QueryRow(ctx, `SELECT count(*) FROM outbox_events`).Scan(&before))

	env := s.env("risk.denied", "pay-2", "evt-2", domain.RiskDeniedPayload{
		PaymentID: "pay-2", Decision: domain.RiskDecisionReview, Reason: "velocity",
	})
	require.NoError(s.T(), s.c.Handle(ctx, env))

	s.Equal(domain.StatusRiskReview, s.status("pay-2"))

	var after int
	require.NoError(s.T(), s.pool.QueryRow(ctx, `SELECT count(*) FROM outbox_events`).Scan(&after))
	s.Equal(before, after, "entering review does not itself emit a new saga event")
}

func (s *ConsumerSuite) TestRiskDenied_Deny_MovesToFailedAndEmitsPaymentsFailed() {
	ctx := context.Background()
	s.createPayment("pay-3", "cust-3")

	env := s.env("risk.denied", "pay-3", "evt-3", domain.RiskDeniedPayload{
		PaymentID: "pay-3", Decision: domain.RiskDecisionDeny, Reason: "blocked customer",
	})
	require.NoError(s.T(), s.c.Handle(ctx, env))

	s.Equal(domain.StatusFailed, s.status("pay-3"))

	eventType, topic, payload := s.lastOutboxRow()
	s.Equal("payments.failed", eventType)
	s.Equal(domain.TopicPaymentsFailed, topic)

	var failed domain.PaymentsFailedPayload
	require.NoError(s.T(), json.Unmarshal(payload, &failed))
	s.Equal(domain.ClassificationRiskDenied, failed.Classification)
}

func (s *ConsumerSuite) TestPaymentsAuthorized_AutoCapturesInSameHandle() {
	ctx := context.Background()
	s.createPayment("pay-4", "cust-4")
	require.NoError(s.T(), s.c.Handle(ctx, s.env("risk.approved", "pay-4", "evt-4a", domain.RiskApprovedPayload{PaymentID: "pay-4"})))

	env := s.env("payments.authorized", "pay-4", "evt-4b", domain.PaymentsAuthorizedPayload{PaymentID: "pay-4"})
	require.NoError(s.T(), s.c.Handle(ctx, env))

	s.Equal(domain.StatusCaptured, s.status("pay-4"), "a successful authorization is auto-captured within the same event handling")

	eventType, topic, payload := s.lastOutboxRow()
	s.Equal("payments.captured", eventType)
	s.Equal(domain.TopicPaymentsCaptured, topic)

	var captured domain.PaymentsCapturedPayload
	require.NoError(s.T(), json.Unmarshal(payload, &captured))
	s.Equal("pay-4", captured.PaymentID)
}

func (s *ConsumerSuite) TestPaymentsAuthorized_ResumesCaptureAfterCrashBetweenSteps() {
	ctx := context.Background()
	s.createPayment("pay-crash", "cust-crash")
	require.NoError(s.T(), s.c.Handle(ctx, s.env("risk.approved", "pay-crash", "evt-crash-a", domain.RiskApprovedPayload{PaymentID: "pay-crash"})))

	env := s.env("payments.authorized", "pay-crash", "evt-crash-b", domain.PaymentsAuthorizedPayload{PaymentID: "pay-crash"})

	// Simulate a crash that lands the AUTHORIZED step's commit but never
	// runs the CAPTURED step — i.e. exactly what c.Handle would have done
	// for the first half of this same event before dying.
	_, _, err := s.s.CASTransition(ctx, "pay-crash", domain.StatusAuthorized, "provider success", env.EventID, nil)
	require.NoError(s.T(), err)
	s.Equal(domain.StatusAuthorized, s.status("pay-crash"))

	// Redelivery of the very same payments.authorized event must still
	// drive the payment to CAPTURED instead of getting stuck at AUTHORIZED
	// behind the already-consumed inbox key.
	require.NoError(s.T(), s.c.Handle(ctx, env))
	s.Equal(domain.StatusCaptured, s.status("pay-crash"))

	eventType, topic, _ := s.lastOutboxRow()
	s.Equal("payments.captured", eventType)
	s.Equal(domain.TopicPaymentsCaptured, topic)
}

func (s *ConsumerSuite) TestPaymentsFailed_DeclineBeforeAuthorization_MovesToFailed() {
	ctx := context.Background()
	s.createPayment("pay-5", "cust-5")
	require.NoError(s.T(), s.c.Handle(ctx, s.env("risk.approved", "pay-5", "evt-5a", domain.RiskApprovedPayload{PaymentID: "pay-5"})))

	env := s.env("payments.failed", "pay-5", "evt-5b", domain.PaymentsFailedPayload{
		PaymentID: "pay-5", Classification: domain.ClassificationDecline, Reason: "issuer declined",
	})
	require.NoError(s.T(), s.c.Handle(ctx, env))

	s.Equal(domain.StatusFailed, s.status("pay-5"))
}

func (s *ConsumerSuite) TestPaymentsFailed_RetryExhaustedAfterAuthorized_MovesToReversedAndEmits() {
	ctx := context.Background()
	s.createPayment("pay-6", "cust-6")
	require.NoError(s.T(), s.c.Handle(ctx, s.env("risk.approved", "pay-6", "evt-6a", domain.RiskApprovedPayload{PaymentID: "pay-6"})))
	_, _, err := s.s.CASTransition(ctx, "pay-6", domain.StatusAuthorized, "provider success", "evt-6-direct", nil)
	require.NoError(s.T(), err)

	env := s.env("payments.failed", "pay-6", "evt-6b", domain.PaymentsFailedPayload{
		PaymentID: "pay-6", Classification: domain.ClassificationRetryExhausted, Reason: "capture timed out",
	})
	require.NoError(s.T(), s.c.Handle(ctx, env))

	s.Equal(domain.StatusReversed, s.status("pay-6"), "a retry-exhausted failure after AUTHORIZED is a compensation, not a plain failure")

	eventType, topic, _ := s.lastOutboxRow()
	s.Equal("payments.reversed", eventType)
	s.Equal(domain.TopicPaymentsReversed, topic)
}

func (s *ConsumerSuite) TestPaymentsSettled_MovesToSettled() {
	ctx := context.Background()
	s.createPayment("pay-7", "cust-7")
	require.NoError(s.T(), s.c.Handle(ctx, s.env("risk.approved", "pay-7", "evt-7a", domain.RiskApprovedPayload{PaymentID: "pay-7"})))
	require.NoError(s.T(), s.c.Handle(ctx, s.env("payments.authorized", "pay-7", "evt-7b", domain.PaymentsAuthorizedPayload{PaymentID: "pay-7"})))

	env := s.env("payments.settled", "pay-7", "evt-7c", domain.PaymentsSettledPayload{PaymentID: "pay-7"})
	require.NoError(s.T(), s.c.Handle(ctx, env))

	s.Equal(domain.StatusSettled, s.status("pay-7"))
}

func (s *ConsumerSuite) TestUnknownPaymentID_IsDroppedNotRetried() {
	env := s.env("risk.approved", "does-not-exist", "evt-8", domain.RiskApprovedPayload{PaymentID: "does-not-exist"})
	err := s.c.Handle(context.Background(), env)
	s.NoError(err, "an event for a payment_id that will never appear must be dropped, not retried forever")
}

func (s *ConsumerSuite) TestDuplicateEvent_DoesNotReemit() {
	ctx := context.Background()
	s.createPayment("pay-9", "cust-9")
	env := s.env("risk.approved", "pay-9", "evt-9", domain.RiskApprovedPayload{PaymentID: "pay-9"})
	require.NoError(s.T(), s.c.Handle(ctx, env))

	var before int
	require.NoError(s.T(), s.pool.QueryRow(ctx, `SELECT count(*) FROM outbox_events`).Scan(&before))

	require.NoError(s.T(), s.c.Handle(ctx, env))

	var after int
	require.NoError(s.T(), s.pool.QueryRow(ctx, `SELECT count(*) FROM outbox_events`).Scan(&after))
	s.Equal(before, after)
}

func (s *ConsumerSuite) TestUnrelatedEventType_IsIgnored() {
	env := s.env("some.other.event", "pay-10", "evt-10", map[string]string{"x": "y"})
	err := s.c.Handle(context.Background(), env)
	s.NoError(err)
}
