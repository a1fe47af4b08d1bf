package integration

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"pizzaria/internal/address"
	"pizzaria/internal/catalog"
	"pizzaria/internal/database"
	"pizzaria/internal/events"
	"pizzaria/internal/handler"
	"pizzaria/internal/metrics"
	"pizzaria/internal/payment"
	"pizzaria/internal/repository"
	"pizzaria/internal/router"
	"pizzaria/internal/service"
	"pizzaria/internal/session"
	"pizzaria/internal/tracker"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestAPIKey is the admin key of the test server.
const TestAPIKey = "test-api-key"

// TestDB represents a test database instance.
type TestDB struct {
	Container *postgres.PostgresContainer
	Pool      *pgxpool.Pool
	ConnStr   string
}

// SetupTestDB creates a migrated PostgreSQL test container and connection pool.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	ctx := context.Background()

	postgresContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	if err := database.Migrate(connStr, zerolog.Nop()); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		t.Fatalf("failed to create connection pool: %v", err)
	}
	if err := pool.Ping(ctx); err != nil {
		t.Fatalf("failed to ping database: %v", err)
	}

	t.Cleanup(func() {
		pool.Close()
		if err := postgresContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	return &TestDB{
		Container: postgresContainer,
		Pool:      pool,
		ConnStr:   connStr,
	}
}

// CleanupDB removes every order.
func CleanupDB(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	if _, err := pool.Exec(context.Background(), "DELETE FROM orders"); err != nil {
		t.Logf("failed to clean table orders: %v", err)
	}
}

// StubProvider is a payment provider that answers without a network call.
type StubProvider struct {
	calls atomic.Int64
}

func (p *StubProvider) Name() string {
	return payment.ProviderStripe
}

func (p *StubProvider) CreateSession(ctx context.Context, req payment.SessionRequest) (*payment.SessionResult, error) {
	n := p.calls.Add(1)
	id := fmt.Sprintf("cs_test_%d", n)
	return &payment.SessionResult{
		SessionID:   id,
		RedirectURL: "https://checkout.example.com/" + id,
	}, nil
}

// Calls returns the number of sessions created.
func (p *StubProvider) Calls() int64 {
	return p.calls.Load()
}

// TestServer is the full HTTP stack over a test database.
type TestServer struct {
	Handler  http.Handler
	Provider *StubProvider
	Tracker  *tracker.Tracker
}

// SetupTestServer wires the API the way cmd/api does, with a stub payment
// provider and no event broker.
func SetupTestServer(t *testing.T, testDB *TestDB) *TestServer {
	t.Helper()

	logger := zerolog.Nop()
	ctx, cancel := context.WithCancel(context.Background())

	menu, err := catalog.Default()
	if err != nil {
		t.Fatalf("failed to load catalog: %v", err)
	}

	orderRepo := repository.NewOrderRepository(testDB.Pool, logger)
	provider := &StubProvider{}
	providers := payment.NewRegistry(payment.ProviderStripe, provider)
	publisher := events.NewNopPublisher()
	m := metrics.New(prometheus.NewRegistry())

	productService := service.NewProductService(menu, logger)
	checkoutService := service.NewCheckoutService(orderRepo, providers, publisher, m, 5*time.Second, logger)
	fulfillmentService := service.NewFulfillmentService(orderRepo, publisher, m, logger)

	board := tracker.New(repository.NewChangeFeed(testDB.Pool, logger), fulfillmentService, 100, logger)
	if err := board.Start(ctx); err != nil {
		t.Fatalf("failed to start tracker: %v", err)
	}
	t.Cleanup(func() {
		board.Close()
		cancel()
	})

	handlers := router.Handlers{
		Products: handler.NewProductHandler(productService, logger),
		Sessions: handler.NewSessionHandler(session.NewManager("", time.Hour), productService, checkoutService, logger),
		Checkout: handler.NewCheckoutHandler(checkoutService, nil, logger),
		Orders:   handler.NewOrderHandler(fulfillmentService, board, logger),
		Address:  handler.NewAddressHandler(address.NewViaCEPClient("http://127.0.0.1:1", time.Second, logger), logger),
	}

	return &TestServer{
		Handler:  router.New(handlers, TestAPIKey, m, logger),
		Provider: provider,
		Tracker:  board,
	}
}
