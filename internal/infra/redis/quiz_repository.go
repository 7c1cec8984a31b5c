package redis

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"typologylab/internal/domain"
)

// QuizLoader fetches dynamic quiz content from a backing store.
type QuizLoader interface {
	LoadQuiz(ctx context.Context, slug string) (domain.Quiz, error)
}

// QuizRepository caches whole quiz documents in Redis and falls back to a loader on cache miss.
// Quizzes are stored as: SET quiz:{slug} {json} EX ttl
type QuizRepository struct {
	client *redis.Client
	loader QuizLoader
	ttl    time.Duration
	log    *zap.Logger
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewQuizRepository(client *redis.Client, loader QuizLoader, ttl time.Duration, log *zap.Logger) *QuizRepository {
	if log == nil {
		log = zap.NewNop()
	}
	return &QuizRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		log:    log,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *QuizRepository) GetQuiz(ctx context.Context, slug string) (domain.Quiz, error) {
	if quiz, ok := r.cached(ctx, slug); ok {
		return quiz, nil
	}

	result, err, _ := r.sf.Do(slug, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if quiz, ok := r.cached(ctx, slug); ok {
			return quiz, nil
		}

		quiz, err := r.loader.LoadQuiz(ctx, slug)
		if err != nil {
			return domain.Quiz{}, err
		}
		if quiz.Slug == "" {
			quiz.Slug = slug
		}

		// Cache writes are best-effort; a Redis outage only costs a reload.
		if data, err := json.Marshal(quiz); err == nil {
			if err := r.client.Set(ctx, quizKey(slug), data, r.ttlWithJitter()).Err(); err != nil {
				r.log.Warn("cache quiz", zap.String("slug", slug), zap.Error(err))
			}
		}
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return result.(domain.Quiz), nil
}

// Invalidate removes the cached copy of a quiz.
func (r *QuizRepository) Invalidate(ctx context.Context, slug string) error {
	return r.client.Del(ctx, quizKey(slug)).Err()
}

func (r *QuizRepository) cached(ctx context.Context, slug string) (domain.Quiz, bool) {
	data, err := r.client.Get(ctx, quizKey(slug)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.log.Warn("read cached quiz", zap.String("slug", slug), zap.Error(err))
		}
		return domain.Quiz{}, false
	}
	var quiz domain.Quiz
	if err := json.Unmarshal(data, &quiz); err != nil {
		r.log.Warn("drop corrupt cached quiz", zap.String("slug", slug), zap.Error(err))
		_ = r.client.Del(ctx, quizKey(slug)).Err()
		return domain.Quiz{}, false
	}
	return quiz, true
}

func quizKey(slug string) string {
	return "quiz:" + slug
}

func (r *QuizRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
