package db

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"contentmill/pkg/domain"
)

// ArtifactStore wraps the MongoDB client and the artifact records collection.
type ArtifactStore struct {
	mongoClient *mongo.Client
	database    *mongo.Database
	collection  *mongo.Collection
}

// NewArtifactStore creates a new artifact record store.
func NewArtifactStore(connectionString, databaseName, collectionName string) *ArtifactStore {
	clientOptions := options.Client().ApplyURI(connectionString)
	mongoClient, err := mongo.Connect(context.Background(), clientOptions)
	if err != nil {
		// Return store with nil - error will be caught during Connect()
		return &ArtifactStore{}
	}

	database := mongoClient.Database(databaseName)
	collection := database.Collection(collectionName)

	return &ArtifactStore{
		mongoClient: mongoClient,
		database:    database,
		collection:  collection,
	}
}

// Connect establishes connection to MongoDB
func (s *ArtifactStore) Connect(ctx context.Context) error {
	if s.mongoClient == nil {
		return fmt.Errorf("mongo client not initialized")
	}
	return s.mongoClient.Ping(ctx, nil)
}

// Close closes the MongoDB connection
func (s *ArtifactStore) Close(ctx context.Context) error {
	if s.mongoClient == nil {
		return nil
	}
	return s.mongoClient.Disconnect(ctx)
}

// SaveArtifact upserts an artifact record keyed by its artifact ID.
func (s *ArtifactStore) SaveArtifact(ctx context.Context, artifact *domain.Artifact) error {
	if s.collection == nil {
		return fmt.Errorf("collection not initialized")
	}

	filter := bson.M{"id": artifact.ID}
	update := bson.M{"$set": artifact}
	opts := options.Update().SetUpsert(true)

	_, err := s.collection.UpdateOne(ctx, filter, update, opts)
	return err
}

// ArtifactsForOrigin returns the artifact records previously published for a
// source URL, newest first.
func (s *ArtifactStore) ArtifactsForOrigin(ctx context.Context, originURL string) ([]domain.Artifact, error) {
	if s.collection == nil {
		return nil, fmt.Errorf("collection not initialized")
	}

	findOpts := options.Find().SetSort(bson.M{"created_at": -1})
	cursor, err := s.collection.Find(ctx, bson.M{"origin_url": originURL}, findOpts)
	if err != nil {
		return nil, fmt.Errorf("query artifacts for %s: %w", originURL, err)
	}
	defer cursor.Close(ctx)

	var artifacts []domain.Artifact
	if err := cursor.All(ctx, &artifacts); err != nil {
		return nil, fmt.Errorf("decode artifacts: %w", err)
	}
	return artifacts, nil
}
