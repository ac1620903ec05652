package integration

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"mobigate-quiz-engine/internal/domain"
	"mobigate-quiz-engine/internal/engine"
	"mobigate-quiz-engine/internal/infra/memory"
	pgcatalog "mobigate-quiz-engine/internal/infra/postgres"
	pgmigrations "mobigate-quiz-engine/internal/infra/postgres/migrations"
	redisinfra "mobigate-quiz-engine/internal/infra/redis"
)

func TestStakedAttemptEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	seedQuiz(t, ctx, pgURL, sampleQuiz())

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}

	wallet := memory.NewWallet(decimal.NewFromInt(10000))
	service := engine.NewService(engine.Config{
		Wallet:      wallet,
		Catalog:     redisinfra.NewCatalog(redisClient, pgcatalog.NewCatalogLoader(pool), 5*time.Minute),
		Attempts:    redisinfra.NewAttemptRegistry(redisClient, 5*time.Minute),
		RevealDelay: 10 * time.Millisecond,
	})

	ses, fees, err := service.StartSession(ctx, "quiz-1", "p1")
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	if !fees.CommunityShare.Add(fees.PlatformShare).Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("fee shares do not sum to stake: %+v", fees)
	}

	// The registry must hold the slot across "instances".
	if _, _, err := service.StartSession(ctx, "quiz-1", "p1"); err != domain.ErrAttemptInProgress {
		t.Fatalf("expected attempt in progress, got %v", err)
	}

	events, cancel := ses.Subscribe()
	defer cancel()

	deadline := time.After(30 * time.Second)
	done := false
	for !done {
		select {
		case e := <-events:
			switch e.Kind {
			case engine.EventQuestion:
				if err := ses.SelectAnswer(2); err != nil {
					t.Fatalf("select: %v", err)
				}
				if err := ses.ConfirmAnswer(); err != nil {
					t.Fatalf("confirm: %v", err)
				}
			case engine.EventCompleted:
				done = true
			}
		case <-deadline:
			t.Fatal("attempt did not complete in time")
		}
	}

	res, err := service.Complete(ctx, ses.ID())
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if res.Status != domain.PayoutStatusWon || res.Amount.String() != "5000" {
		t.Fatalf("expected full win of 5000, got %+v", res)
	}

	balance, _ := wallet.Balance(ctx, "p1")
	if balance.String() != "14000" {
		t.Fatalf("expected balance 14000, got %s", balance)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func seedQuiz(t *testing.T, ctx context.Context, dsn string, quiz domain.Quiz) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	data, err := json.Marshal(quiz)
	if err != nil {
		t.Fatalf("marshal quiz: %v", err)
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO quizzes (id, data) VALUES (? , ?::jsonb) ON CONFLICT (id) DO UPDATE SET data=EXCLUDED.data`, quiz.ID, string(data)); err != nil {
		t.Fatalf("insert quiz: %v", err)
	}
}

func sampleQuiz() domain.Quiz {
	questions := make([]domain.QuizQuestion, domain.QuizQuestionCount)
	for i := range questions {
		questions[i] = domain.QuizQuestion{
			Text:         fmt.Sprintf("question %d", i+1),
			Options:      []string{"A", "B", "C", "D", "E", "F", "G", "H"},
			CorrectIndex: 2,
		}
	}
	return domain.Quiz{
		ID:            "quiz-1",
		Title:         "Integration Quiz",
		Currency:      "NGN",
		StakeAmount:   decimal.NewFromInt(1000),
		WinningAmount: decimal.NewFromInt(5000),
		TimeLimitSec:  30,
		Status:        domain.QuizStatusActive,
		Questions:     questions,
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
