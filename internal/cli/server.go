package cli

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"mobigate-quiz-engine/internal/config"
	"mobigate-quiz-engine/internal/domain"
	"mobigate-quiz-engine/internal/engine"
	"mobigate-quiz-engine/internal/infra/memory"
	pgcatalog "mobigate-quiz-engine/internal/infra/postgres"
	redisinfra "mobigate-quiz-engine/internal/infra/redis"
	transport "mobigate-quiz-engine/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz session server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	var loader memory.QuizLoader = memory.NewStaticQuizLoader(sampleQuizzes())
	if pool != nil {
		loader = pgcatalog.NewCatalogLoader(pool)
	}

	quizTTL := config.Duration(cfg.Quiz.TTL, 10*time.Minute)
	var catalog engine.Catalog
	if redisClient != nil {
		catalog = redisinfra.NewCatalog(redisClient, loader, quizTTL)
	} else {
		catalog = memory.NewCatalog(loader, quizTTL)
	}

	var attempts engine.AttemptRegistry
	if redisClient != nil {
		attemptTTL := config.Duration(cfg.Redis.AttemptTTL, 30*time.Minute)
		attempts = redisinfra.NewAttemptRegistry(redisClient, attemptTTL)
	} else {
		attempts = memory.NewAttemptRegistry()
	}

	opening, err := decimal.NewFromString(cfg.Wallet.OpeningBalance)
	if err != nil || cfg.Wallet.OpeningBalance == "" {
		opening = decimal.NewFromInt(10000)
	}
	wallet := memory.NewWallet(opening)

	service := engine.NewService(engine.Config{
		Wallet:      wallet,
		Catalog:     catalog,
		Attempts:    attempts,
		RevealDelay: config.Duration(cfg.Engine.RevealDelay, 3*time.Second),
	})
	wsHandler := transport.NewWSHandler(service)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting quiz session engine on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleQuizzes provides demo content with the fixed 10x8 shape; swap
// the loader for the Postgres-backed one in production.
func sampleQuizzes() map[string]domain.Quiz {
	questions := make([]domain.QuizQuestion, 0, domain.QuizQuestionCount)
	for i := 0; i < domain.QuizQuestionCount; i++ {
		options := make([]string, domain.QuestionOptionCount)
		for j := range options {
			options[j] = fmt.Sprintf("%d", (i+1)*(j+1))
		}
		questions = append(questions, domain.QuizQuestion{
			Text:         fmt.Sprintf("What is %d x %d?", i+1, i+2),
			Options:      options,
			CorrectIndex: (i + 1) % domain.QuestionOptionCount,
		})
	}
	return map[string]domain.Quiz{
		"quiz-1": {
			ID:            "quiz-1",
			Title:         "Multiplication Sprint",
			Currency:      "NGN",
			StakeAmount:   decimal.NewFromInt(1000),
			WinningAmount: decimal.NewFromInt(5000),
			TimeLimitSec:  30,
			Privacy:       "public",
			Status:        domain.QuizStatusActive,
			Questions:     questions,
		},
	}
}
