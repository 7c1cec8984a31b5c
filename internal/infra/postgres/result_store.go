package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4/pgxpool"

	"typologylab/internal/domain"
)

// ResultStore writes completed attempts to test_results and user_responses.
type ResultStore struct {
	pool *pgxpool.Pool
}

func NewResultStore(pool *pgxpool.Pool) *ResultStore {
	return &ResultStore{pool: pool}
}

func (s *ResultStore) CreateResult(ctx context.Context, r domain.SavedResult) (string, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	answers, err := json.Marshal(nonNil(r.Answers))
	if err != nil {
		return "", fmt.Errorf("encode answers: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO test_results (id, user_id, gender, result, score, answers, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		r.ID, r.UserID, string(r.Gender), string(r.Result), r.Score, answers, r.CreatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("insert test result: %w", err)
	}
	return r.ID, nil
}

// ListResults returns matching results newest first.
func (s *ResultStore) ListResults(ctx context.Context, filter domain.ResultFilter) ([]domain.SavedResult, error) {
	query, args := listResultsQuery(filter)
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list test results: %w", err)
	}
	defer rows.Close()

	var out []domain.SavedResult
	for rows.Next() {
		var (
			r       domain.SavedResult
			gender  string
			result  string
			answers []byte
		)
		if err := rows.Scan(&r.ID, &r.UserID, &gender, &result, &r.Score, &answers, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan test result: %w", err)
		}
		r.Gender = domain.Demographic(gender)
		r.Result = domain.Archetype(result)
		if err := json.Unmarshal(answers, &r.Answers); err != nil {
			return nil, fmt.Errorf("decode answers of %s: %w", r.ID, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *ResultStore) RecordResponse(ctx context.Context, r domain.UserResponse) (string, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	answers, err := json.Marshal(nonNil(r.Answers))
	if err != nil {
		return "", fmt.Errorf("encode answers: %w", err)
	}
	metadata := r.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	meta, err := json.Marshal(metadata)
	if err != nil {
		return "", fmt.Errorf("encode metadata: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO user_responses (id, test_id, session_id, answers, result_id, score, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		r.ID, r.TestID, r.SessionID, answers, r.ResultID, r.Score, meta, r.CreatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("insert user response: %w", err)
	}
	return r.ID, nil
}

// ResultStats counts matching results per archetype and gender in the database.
func (s *ResultStore) ResultStats(ctx context.Context, filter domain.ResultFilter) (domain.ResultStats, error) {
	query, args := resultStatsQuery(filter)
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return domain.ResultStats{}, fmt.Errorf("aggregate test results: %w", err)
	}
	defer rows.Close()

	stats := domain.NewResultStats()
	for rows.Next() {
		var (
			result, gender  string
			count, scoreSum int
		)
		if err := rows.Scan(&result, &gender, &count, &scoreSum); err != nil {
			return domain.ResultStats{}, fmt.Errorf("scan result stats: %w", err)
		}
		stats.Add(domain.Archetype(result), domain.Demographic(gender), count, scoreSum)
	}
	return stats, rows.Err()
}

func resultsWhere(filter domain.ResultFilter) (string, []any) {
	var (
		where []string
		args  []any
	)
	add := func(column string, value any) {
		args = append(args, value)
		where = append(where, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if filter.Gender != "" {
		add("gender", string(filter.Gender))
	}
	if filter.Result != "" {
		add("result", string(filter.Result))
	}
	if filter.UserID != "" {
		add("user_id", filter.UserID)
	}
	if len(where) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(where, " AND "), args
}

func listResultsQuery(filter domain.ResultFilter) (string, []any) {
	where, args := resultsWhere(filter)

	var b strings.Builder
	b.WriteString(`SELECT id, user_id, gender, result, score, answers, created_at FROM test_results`)
	b.WriteString(where)
	b.WriteString(" ORDER BY created_at DESC")
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		fmt.Fprintf(&b, " LIMIT $%d", len(args))
	}
	return b.String(), args
}

func resultStatsQuery(filter domain.ResultFilter) (string, []any) {
	where, args := resultsWhere(filter)
	return `SELECT result, gender, count(*)::int, COALESCE(sum(score), 0)::int FROM test_results` +
		where + ` GROUP BY result, gender`, args
}

func nonNil(weights []int) []int {
	if weights == nil {
		return []int{}
	}
	return weights
}
