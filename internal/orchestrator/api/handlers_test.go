package api_test

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"paysaga/internal/orchestrator/api"
	"paysaga/internal/orchestrator/store"
	"paysaga/internal/platform/cache"
)

//go:embed ../store/migrations/000001_init_schema.up.sql
var schemaSQL string

type deps struct {
	s *store.Store
	c *cache.Cache
}

func (d deps) GetStore() *store.Store { return d.s }
func (d deps) GetCache() *cache.Cache { return d.c }

type HandlersSuite struct {
	suite.Suite
	pool   *pgxpool.Pool
	mr     *miniredis.Miniredis
	s      *store.Store
	router *gin.Engine
}

func TestHandlersSuite(t *testing.T) {
	suite.Run(t, new(HandlersSuite))
}

func (s *HandlersSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)
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

func (s *HandlersSuite) SetupTest() {
	_, err := s.pool.Exec(context.Background(), `TRUNCATE payments, payment_attempts, payment_timeline, outbox_events, inbox_events CASCADE`)
	require.NoError(s.T(), err)
	s.s = store.New(s.pool)

	mr, err := miniredis.Run()
	require.NoError(s.T(), err)
	s.T().Cleanup(mr.Close)
	s.mr = mr

	s.router = gin.New()
	api.RegisterRoutes(s.router, deps{s: s.s, c: cache.NewWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))}, nil)
}

func (s *HandlersSuite) postPayment(body map[string]interface{}) *httptest.ResponseRecorder {
	raw, err := json.Marshal(body)
	require.NoError(s.T(), err)
	req := httptest.NewRequest(http.MethodPost, "/payments", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *HandlersSuite) TestCreatePayment_FirstRequest_Returns201Created() {
	rec := s.postPayment(map[string]interface{}{
		"customer_id": "cust-1", "amount_cents": 5000, "currency": "USD", "idempotency_key": "idem-1",
	})
	s.Equal(http.StatusCreated, rec.Code)

	var got map[string]interface{}
	require.NoError(s.T(), json.Unmarshal(rec.Body.Bytes(), &got))
	s.Equal("CREATED", got["status"])
	s.NotEmpty(got["payment_id"])
}

func (s *HandlersSuite) TestCreatePayment_RepeatedIdempotencyKey_Returns200WithSamePaymentID() {
	first := s.postPayment(map[string]interface{}{
		"customer_id": "cust-2", "amount_cents": 1200, "currency": "USD", "idempotency_key": "idem-2",
	})
	var firstBody map[string]interface{}
	require.NoError(s.T(), json.Unmarshal(first.Body.Bytes(), &firstBody))

	second := s.postPayment(map[string]interface{}{
		"customer_id": "cust-2", "amount_cents": 1200, "currency": "USD", "idempotency_key": "idem-2",
	})
	s.Equal(http.StatusOK, second.Code)

	var secondBody map[string]interface{}
	require.NoError(s.T(), json.Unmarshal(second.Body.Bytes(), &secondBody))
	s.Equal(firstBody["payment_id"], secondBody["payment_id"])
}

func (s *HandlersSuite) TestCreatePayment_UnsupportedCurrency_Returns400() {
	rec := s.postPayment(map[string]interface{}{
		"customer_id": "cust-3", "amount_cents": 100, "currency": "ZZZ", "idempotency_key": "idem-3",
	})
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *HandlersSuite) TestCreatePayment_NegativeAmount_Returns400() {
	rec := s.postPayment(map[string]interface{}{
		"customer_id": "cust-4", "amount_cents": -100, "currency": "USD", "idempotency_key": "idem-4",
	})
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *HandlersSuite) TestGetPayment_ReturnsStatusAndTimeline() {
	created := s.postPayment(map[string]interface{}{
		"customer_id": "cust-5", "amount_cents": 700, "currency": "USD", "idempotency_key": "idem-5",
	})
	var body map[string]interface{}
	require.NoError(s.T(), json.Unmarshal(created.Body.Bytes(), &body))
	paymentID := body["payment_id"].(string)

	req := httptest.NewRequest(http.MethodGet, "/payments/"+paymentID, nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	s.Equal(http.StatusOK, rec.Code)
	var got map[string]interface{}
	require.NoError(s.T(), json.Unmarshal(rec.Body.Bytes(), &got))
	s.Equal(paymentID, got["payment_id"])
	s.Equal("CREATED", got["status"])
	timeline := got["timeline"].([]interface{})
	require.Len(s.T(), timeline, 1)
}

func (s *HandlersSuite) TestGetPayment_UnknownID_Returns404() {
	req := httptest.NewRequest(http.MethodGet, "/payments/does-not-exist", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	s.Equal(http.StatusNotFound, rec.Code)
}
