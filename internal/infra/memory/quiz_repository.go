package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"typologylab/internal/domain"
)

// QuizLoader fetches dynamic quiz content from a backing store.
type QuizLoader interface {
	LoadQuiz(ctx context.Context, slug string) (domain.Quiz, error)
}

// QuizRepository caches quizzes by slug with a jittered TTL so popular quizzes
// do not hit the loader on every attempt.
type QuizRepository struct {
	loader QuizLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedQuiz
}

type cachedQuiz struct {
	quiz      domain.Quiz
	expiresAt time.Time
}

func NewQuizRepository(loader QuizLoader, ttl time.Duration) *QuizRepository {
	return &QuizRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedQuiz),
	}
}

func (r *QuizRepository) GetQuiz(ctx context.Context, slug string) (domain.Quiz, error) {
	if quiz, ok := r.cached(slug, r.clock()); ok {
		return quiz, nil
	}

	result, err, _ := r.sf.Do(slug, func() (interface{}, error) {
		now := r.clock()
		if quiz, ok := r.cached(slug, now); ok {
			return quiz, nil
		}

		quiz, err := r.loader.LoadQuiz(ctx, slug)
		if err != nil {
			return domain.Quiz{}, err
		}
		if quiz.Slug == "" {
			quiz.Slug = slug
		}

		if ttl := r.ttlWithJitter(); ttl > 0 {
			r.mu.Lock()
			r.cache[slug] = cachedQuiz{quiz: quiz, expiresAt: now.Add(ttl)}
			r.mu.Unlock()
		}
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return result.(domain.Quiz), nil
}

// Invalidate drops a cached quiz so the next read goes to the loader.
func (r *QuizRepository) Invalidate(slug string) {
	r.mu.Lock()
	delete(r.cache, slug)
	r.mu.Unlock()
}

func (r *QuizRepository) cached(slug string, now time.Time) (domain.Quiz, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.cache[slug]
	if !ok || !entry.expiresAt.After(now) {
		return domain.Quiz{}, false
	}
	return entry.quiz, true
}

func (r *QuizRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticQuizLoader serves quizzes from a map, e.g. files read from `quiz.static_dir`.
type StaticQuizLoader struct {
	quizzes map[string]domain.Quiz
}

func NewStaticQuizLoader(quizzes map[string]domain.Quiz) *StaticQuizLoader {
	return &StaticQuizLoader{quizzes: quizzes}
}

func (l *StaticQuizLoader) LoadQuiz(_ context.Context, slug string) (domain.Quiz, error) {
	if quiz, ok := l.quizzes[slug]; ok {
		return quiz, nil
	}
	return domain.Quiz{}, domain.ErrQuizNotFound
}
