package cli

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func TestInvalidateCachedQuizzes(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	for _, key := range []string{"quiz:color", "quiz:season", "quiz:other"} {
		if err := mr.Set(key, `{"title":"stale"}`); err != nil {
			t.Fatalf("seed %s: %v", key, err)
		}
	}

	if err := invalidateCachedQuizzes(context.Background(), client, []string{"color", "season", "missing"}, zap.NewNop()); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if mr.Exists("quiz:color") || mr.Exists("quiz:season") {
		t.Fatalf("expected imported quizzes to be dropped from the cache")
	}
	if !mr.Exists("quiz:other") {
		t.Fatalf("expected untouched quiz to stay cached")
	}
}
