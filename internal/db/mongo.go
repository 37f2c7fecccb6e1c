package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"govharvest/internal/config"
	"govharvest/internal/models"
)

// Store mirrors serialized case records and archive summaries into
// MongoDB so the bulk tree has a queryable index. The on-disk JSON
// files remain the canonical archive.
type Store struct {
	client    *mongo.Client
	cases     *mongo.Collection
	summaries *mongo.Collection
}

func NewStore(cfg config.DBConfig) (*Store, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Connection))
	if err != nil {
		return nil, fmt.Errorf("connecting to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("pinging MongoDB: %w", err)
	}

	database := client.Database(cfg.Database)
	s := &Store{
		client:    client,
		cases:     database.Collection(cfg.Collections.Cases),
		summaries: database.Collection(cfg.Collections.Summaries),
	}
	if err := s.createIndexes(); err != nil {
		return nil, fmt.Errorf("creating indexes: %w", err)
	}
	return s, nil
}

func (s *Store) createIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := s.cases.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "filename", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

// SaveCase upserts a record under its filename and counts how many
// times it has been serialized.
func (s *Store) SaveCase(ctx context.Context, filename string, rec *models.CaseRecord) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	data, err := bson.Marshal(rec)
	if err != nil {
		return err
	}
	var doc bson.M
	if err := bson.Unmarshal(data, &doc); err != nil {
		return err
	}
	doc["filename"] = filename

	_, err = s.cases.UpdateOne(ctx,
		bson.M{"filename": filename},
		bson.M{
			"$set": doc,
			"$inc": bson.M{"serialized_count": 1},
		},
		options.Update().SetUpsert(true))
	return err
}

func (s *Store) CaseExists(ctx context.Context, filename string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err := s.cases.FindOne(ctx, bson.M{"filename": filename}).Err()
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// SaveSummary upserts the archive summary of one collection/category.
func (s *Store) SaveSummary(ctx context.Context, summary *models.ArchiveSummary) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := s.summaries.UpdateOne(ctx,
		bson.M{"collection": summary.Collection, "category": summary.Category},
		bson.M{"$set": summary},
		options.Update().SetUpsert(true))
	return err
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
