package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"typologylab/internal/domain"
	"typologylab/internal/quizschema"
)

// QuizLoader loads published quiz JSONB from Postgres by slug.
type QuizLoader struct {
	pool *pgxpool.Pool
}

func NewQuizLoader(pool *pgxpool.Pool) *QuizLoader {
	return &QuizLoader{pool: pool}
}

func (l *QuizLoader) LoadQuiz(ctx context.Context, slug string) (domain.Quiz, error) {
	var (
		id  string
		raw []byte
	)
	err := l.pool.QueryRow(ctx,
		`SELECT id, data FROM quizzes WHERE slug=$1 AND is_published`, slug,
	).Scan(&id, &raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Quiz{}, &domain.FetchError{Slug: slug, Err: domain.ErrQuizNotFound}
	}
	if err != nil {
		return domain.Quiz{}, &domain.FetchError{Slug: slug, Err: fmt.Errorf("load quiz: %w", err)}
	}

	quiz, err := quizschema.Parse(raw)
	if err != nil {
		return domain.Quiz{}, &domain.FetchError{Slug: slug, Err: err}
	}
	quiz.ID = id
	quiz.Slug = slug
	return quiz, nil
}

// UpsertQuiz stores a quiz document under its slug, keeping the existing id on update.
func (l *QuizLoader) UpsertQuiz(ctx context.Context, quiz domain.Quiz, published bool) (string, error) {
	if quiz.Slug == "" {
		return "", errors.New("upsert quiz: slug is required")
	}
	if err := quizschema.Check(quiz); err != nil {
		return "", err
	}
	id := quiz.ID
	if id == "" {
		id = uuid.NewString()
	}
	data, err := json.Marshal(quiz)
	if err != nil {
		return "", fmt.Errorf("encode quiz: %w", err)
	}

	err = l.pool.QueryRow(ctx, `
		INSERT INTO quizzes (id, slug, is_published, data)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (slug) DO UPDATE
		SET is_published = EXCLUDED.is_published, data = EXCLUDED.data, updated_at = now()
		RETURNING id`,
		id, quiz.Slug, published, data,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("upsert quiz %s: %w", quiz.Slug, err)
	}
	return id, nil
}
