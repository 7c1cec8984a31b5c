package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"typologylab/internal/app"
	"typologylab/internal/config"
	"typologylab/internal/domain"
	"typologylab/internal/identity"
	"typologylab/internal/infra/memory"
	mongostore "typologylab/internal/infra/mongo"
	pgstore "typologylab/internal/infra/postgres"
	redisstore "typologylab/internal/infra/redis"
	"typologylab/internal/quizschema"
)

// services holds the collaborators built from config, plus their cleanup.
type services struct {
	quiz     *app.QuizService
	identity *identity.JWTProvider
	closers  []func()
}

func (s *services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func buildServices(ctx context.Context, cfg config.Config, log *zap.Logger) (_ *services, err error) {
	out := &services{}
	defer func() {
		if err != nil {
			out.Close()
		}
	}()

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		out.closers = append(out.closers, func() { _ = redisClient.Close() })
	}
	attemptTTL := config.TTLDuration(cfg.Redis.TTL, 24*time.Hour)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		out.closers = append(out.closers, pool.Close)
	}

	static := map[string]domain.Quiz{}
	if cfg.Quiz.StaticDir != "" {
		static, err = quizschema.LoadDir(cfg.Quiz.StaticDir)
		if err != nil {
			return nil, err
		}
		log.Info("static quizzes loaded", zap.Int("count", len(static)), zap.String("dir", cfg.Quiz.StaticDir))
	}
	var loader memory.QuizLoader = memory.NewStaticQuizLoader(static)
	if pool != nil {
		loader = pgstore.NewQuizLoader(pool)
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var quizRepo app.QuizRepository
	if redisClient != nil {
		quizRepo = redisstore.NewQuizRepository(redisClient, loader, quizTTL, log)
	} else {
		quizRepo = memory.NewQuizRepository(loader, quizTTL)
	}

	var attempts app.AttemptRepository
	if redisClient != nil {
		attempts = redisstore.NewAttemptStore(redisClient, attemptTTL)
	} else {
		attempts = memory.NewAttemptStore(attemptTTL)
	}

	var results app.ResultStore
	switch cfg.ResultsBackend() {
	case config.BackendPostgres:
		results = pgstore.NewResultStore(pool)
	case config.BackendMongo:
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Mongo.URI))
		if err != nil {
			return nil, fmt.Errorf("connect mongo: %w", err)
		}
		out.closers = append(out.closers, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = client.Disconnect(ctx)
		})
		store := mongostore.NewResultStore(client, cfg.MongoDatabase())
		if err := store.EnsureIndexes(ctx); err != nil {
			return nil, err
		}
		results = store
	default:
		log.Warn("results are kept in memory and lost on restart")
		results = memory.NewResultStore()
	}

	opts := []app.Option{
		app.WithLogger(log),
		app.WithSaveTimeout(config.TTLDuration(cfg.Results.SaveTimeout, 10*time.Second)),
		app.WithStatusTTL(attemptTTL),
	}
	if cfg.Auth.JWTSecret != "" {
		out.identity = identity.NewJWTProvider(cfg.Auth.JWTSecret, config.TTLDuration(cfg.Auth.TokenTTL, 0))
		opts = append(opts, app.WithIdentity(out.identity))
	}

	out.quiz = app.NewQuizService(attempts, quizRepo, results, opts...)
	log.Info("services ready",
		zap.String("results_backend", cfg.ResultsBackend()),
		zap.Bool("redis", redisClient != nil),
		zap.Bool("postgres", pool != nil),
		zap.Bool("auth", out.identity != nil))
	return out, nil
}
