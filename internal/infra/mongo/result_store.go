package mongo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"typologylab/internal/domain"
)

const (
	resultsCollection   = "test_results"
	responsesCollection = "user_responses"
)

// ResultStore keeps the result history in MongoDB.
type ResultStore struct {
	results   *mongo.Collection
	responses *mongo.Collection
}

func NewResultStore(client *mongo.Client, database string) *ResultStore {
	db := client.Database(database)
	return &ResultStore{
		results:   db.Collection(resultsCollection),
		responses: db.Collection(responsesCollection),
	}
}

// EnsureIndexes creates the indexes the listing and session lookups rely on.
func (s *ResultStore) EnsureIndexes(ctx context.Context) error {
	if _, err := s.results.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "created_at", Value: -1}},
	}); err != nil {
		return fmt.Errorf("index %s: %w", resultsCollection, err)
	}
	if _, err := s.responses.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "session_id", Value: 1}, {Key: "test_id", Value: 1}},
	}); err != nil {
		return fmt.Errorf("index %s: %w", responsesCollection, err)
	}
	return nil
}

func (s *ResultStore) CreateResult(ctx context.Context, r domain.SavedResult) (string, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Answers == nil {
		r.Answers = []int{}
	}
	if _, err := s.results.InsertOne(ctx, r); err != nil {
		return "", fmt.Errorf("insert test result: %w", err)
	}
	return r.ID, nil
}

// ListResults returns matching results newest first.
func (s *ResultStore) ListResults(ctx context.Context, filter domain.ResultFilter) ([]domain.SavedResult, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}

	cursor, err := s.results.Find(ctx, resultsFilter(filter), opts)
	if err != nil {
		return nil, fmt.Errorf("find test results: %w", err)
	}
	defer cursor.Close(ctx)

	var out []domain.SavedResult
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode test results: %w", err)
	}
	return out, nil
}

func (s *ResultStore) RecordResponse(ctx context.Context, r domain.UserResponse) (string, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if _, err := s.responses.InsertOne(ctx, r); err != nil {
		return "", fmt.Errorf("insert user response: %w", err)
	}
	return r.ID, nil
}

type statsBucket struct {
	Key struct {
		Result string `bson:"result"`
		Gender string `bson:"gender"`
	} `bson:"_id"`
	Count    int `bson:"count"`
	ScoreSum int `bson:"score_sum"`
}

// ResultStats groups matching results by archetype and gender on the server.
func (s *ResultStore) ResultStats(ctx context.Context, filter domain.ResultFilter) (domain.ResultStats, error) {
	cursor, err := s.results.Aggregate(ctx, statsPipeline(filter))
	if err != nil {
		return domain.ResultStats{}, fmt.Errorf("aggregate test results: %w", err)
	}
	defer cursor.Close(ctx)

	var buckets []statsBucket
	if err := cursor.All(ctx, &buckets); err != nil {
		return domain.ResultStats{}, fmt.Errorf("decode result stats: %w", err)
	}
	stats := domain.NewResultStats()
	for _, b := range buckets {
		stats.Add(domain.Archetype(b.Key.Result), domain.Demographic(b.Key.Gender), b.Count, b.ScoreSum)
	}
	return stats, nil
}

func statsPipeline(filter domain.ResultFilter) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: resultsFilter(filter)}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: bson.D{{Key: "result", Value: "$result"}, {Key: "gender", Value: "$gender"}}},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "score_sum", Value: bson.D{{Key: "$sum", Value: "$score"}}},
		}}},
	}
}

func resultsFilter(filter domain.ResultFilter) bson.M {
	m := bson.M{}
	if filter.Gender != "" {
		m["gender"] = string(filter.Gender)
	}
	if filter.Result != "" {
		m["result"] = string(filter.Result)
	}
	if filter.UserID != "" {
		m["user_id"] = filter.UserID
	}
	return m
}
