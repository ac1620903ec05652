package memory

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"mobigate-quiz-engine/internal/domain"
)

func TestCatalogCaches(t *testing.T) {
	loader := &countingLoader{
		QuizLoader: NewStaticQuizLoader(map[string]domain.Quiz{
			"quiz-1": sampleQuiz(),
		}),
	}
	catalog := NewCatalog(loader, time.Minute)

	if _, err := catalog.GetQuiz(context.Background(), "quiz-1"); err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls)
	}

	if _, err := catalog.GetQuiz(context.Background(), "quiz-1"); err != nil {
		t.Fatalf("get quiz 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}
}

func TestCatalogUnknownQuiz(t *testing.T) {
	catalog := NewCatalog(NewStaticQuizLoader(nil), time.Minute)
	if _, err := catalog.GetQuiz(context.Background(), "quiz-nope"); err != domain.ErrQuizNotFound {
		t.Fatalf("expected quiz not found, got %v", err)
	}
}

type countingLoader struct {
	QuizLoader
	calls int
}

func (l *countingLoader) LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	l.calls++
	return l.QuizLoader.LoadQuiz(ctx, quizID)
}

func sampleQuiz() domain.Quiz {
	questions := make([]domain.QuizQuestion, domain.QuizQuestionCount)
	for i := range questions {
		questions[i] = domain.QuizQuestion{
			Text:         "sample",
			Options:      []string{"A", "B", "C", "D", "E", "F", "G", "H"},
			CorrectIndex: 0,
		}
	}
	return domain.Quiz{
		ID:            "quiz-1",
		Title:         "Sample",
		Currency:      "NGN",
		StakeAmount:   decimal.NewFromInt(1000),
		WinningAmount: decimal.NewFromInt(5000),
		TimeLimitSec:  30,
		Status:        domain.QuizStatusActive,
		Questions:     questions,
	}
}
