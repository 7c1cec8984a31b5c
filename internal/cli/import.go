package cli

import (
	"context"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"typologylab/internal/config"
	pgstore "typologylab/internal/infra/postgres"
	redisstore "typologylab/internal/infra/redis"
	"typologylab/internal/logger"
	"typologylab/internal/quizschema"
)

// NewImportCmd validates quiz documents from a directory and upserts them into Postgres.
func NewImportCmd(configPath *string) *cobra.Command {
	var publish bool
	cmd := &cobra.Command{
		Use:   "import-quizzes DIR",
		Short: "Validate and store quiz documents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Postgres.URL == "" {
				return fmt.Errorf("postgres url not configured")
			}
			log, err := logger.New(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			quizzes, err := quizschema.LoadDir(args[0])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
				return err
			}
			pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
			if err != nil {
				return err
			}
			defer pool.Close()

			slugs := make([]string, 0, len(quizzes))
			for slug := range quizzes {
				slugs = append(slugs, slug)
			}
			sort.Strings(slugs)

			store := pgstore.NewQuizLoader(pool)
			for _, slug := range slugs {
				id, err := store.UpsertQuiz(ctx, quizzes[slug], publish)
				if err != nil {
					return err
				}
				log.Info("quiz imported", zap.String("slug", slug), zap.String("id", id), zap.Bool("published", publish))
			}

			if cfg.Redis.Addr == "" {
				return nil
			}
			client := redis.NewClient(&redis.Options{
				Addr:     cfg.Redis.Addr,
				Password: cfg.Redis.Password,
				DB:       cfg.Redis.DB,
			})
			defer client.Close()
			return invalidateCachedQuizzes(ctx, client, slugs, log)
		},
	}
	cmd.Flags().BoolVar(&publish, "publish", false, "mark imported quizzes as published")
	return cmd
}

// invalidateCachedQuizzes drops cached copies so the server picks up new content
// before the cache TTL runs out.
func invalidateCachedQuizzes(ctx context.Context, client *redis.Client, slugs []string, log *zap.Logger) error {
	cache := redisstore.NewQuizRepository(client, nil, 0, log)
	for _, slug := range slugs {
		if err := cache.Invalidate(ctx, slug); err != nil {
			return fmt.Errorf("invalidate cached quiz %s: %w", slug, err)
		}
	}
	log.Info("quiz cache invalidated", zap.Int("count", len(slugs)))
	return nil
}
