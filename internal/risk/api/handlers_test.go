package api_test

import (
	"context"
	_ "embed"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"paysaga/internal/risk/api"
	"paysaga/internal/risk/domain"
	"paysaga/internal/risk/store"
)

//go:embed ../store/migrations/000001_init_schema.up.sql
var schemaSQL string

type deps struct{ s *store.Store }

func (d deps) GetStore() *store.Store { return d.s }

type HandlersSuite struct {
	suite.Suite
	pool   *pgxpool.Pool
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
		tcpostgres.WithDatabase("risk"),
		tcpostgres.WithUsername("risk"),
		tcpostgres.WithPassword("risk"),
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
	_, err := s.pool.Exec(context.Background(), `TRUNCATE risk_reviews, outbox_events, inbox_events`)
	require.NoError(s.T(), err)
	s.s = store.New(s.pool)

	s.router = gin.New()
	api.RegisterRoutes(s.router, deps{s: s.s}, nil)
}

func (s *HandlersSuite) insertReview(paymentID string) int64 {
	var id int64
	err := s.pool.QueryRow(context.Background(), `
		INSERT INTO risk_reviews (payment_id, customer_id, amount_cents, currency, reason, status, created_at)
		VALUES ($1, 'cust-1', 150000, 'USD', 'amount exceeds review threshold', 'PENDING', now())
		RETURNING id`, paymentID).Scan(&id)
	require.NoError(s.T(), err)
	return id
}

func (s *HandlersSuite) TestListReviews_ReturnsPending() {
	s.insertReview("pay-list")

	req := httptest.NewRequest(http.MethodGet, "/ops/reviews", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	s.Equal(http.StatusOK, rec.Code)
	var got []map[string]interface{}
	require.NoError(s.T(), json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(s.T(), got, 1)
	s.Equal("pay-list", got[0]["payment_id"])
}

func (s *HandlersSuite) TestApprove_ResolvesAndEmitsRiskApproved() {
	id := s.insertReview("pay-approve")

	req := httptest.NewRequest(http.MethodPost, "/ops/reviews/"+strconv.FormatInt(id, 10)+"/approve", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	s.Equal(http.StatusOK, rec.Code)

	var status string
	require.NoError(s.T(), s.pool.QueryRow(context.Background(), `SELECT status FROM risk_reviews WHERE id = $1`, id).Scan(&status))
	s.Equal(string(domain.ReviewApproved), status)

	var topic string
	require.NoError(s.T(), s.pool.QueryRow(context.Background(), `SELECT topic FROM outbox_events ORDER BY created_at DESC LIMIT 1`).Scan(&topic))
	s.Equal(domain.TopicRiskApproved, topic)
}

func (s *HandlersSuite) TestDeny_ResolvesAndEmitsRiskDenied() {
	id := s.insertReview("pay-deny")

	req := httptest.NewRequest(http.MethodPost, "/ops/reviews/"+strconv.FormatInt(id, 10)+"/deny", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	s.Equal(http.StatusOK, rec.Code)

	var status string
	require.NoError(s.T(), s.pool.QueryRow(context.Background(), `SELECT status FROM risk_reviews WHERE id = $1`, id).Scan(&status))
	s.Equal(string(domain.ReviewDenied), status)
}

func (s *HandlersSuite) TestApprove_AlreadyResolved_IsNoopNotDoubleEmit() {
	id := s.insertReview("pay-double")

	req1 := httptest.NewRequest(http.MethodPost, "/ops/reviews/"+strconv.FormatInt(id, 10)+"/approve", nil)
	s.router.ServeHTTP(httptest.NewRecorder(), req1)

	var before int
	require.NoError(s.T(), s.pool.QueryRow(context.Background(), `SELECT count(*) FROM outbox_events`).Scan(&before))

	req2 := httptest.NewRequest(http.MethodPost, "/ops/reviews/"+strconv.FormatInt(id, 10)+"/deny", nil)
	rec2 := httptest.NewRecorder()
	s.router.ServeHTTP(rec2, req2)
	s.Equal(http.StatusOK, rec2.Code)

	var after int
	require.NoError(s.T(), s.pool.QueryRow(context.Background(), `SELECT count(*) FROM outbox_events`).Scan(&after))
	s.Equal(before, after, "resolving an already-resolved review must not emit a second event")

	var status string
	require.NoError(s.T(), s.pool.QueryRow(context.Background(), `SELECT status FROM risk_reviews WHERE id = $1`, id).Scan(&status))
	s.Equal(string(domain.ReviewApproved), status, "the first resolution wins")
}

func (s *HandlersSuite) TestApprove_UnknownID_NotFound() {
	req := httptest.NewRequest(http.MethodPost, "/ops/reviews/999999/approve", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	s.Equal(http.StatusNotFound, rec.Code)
}
