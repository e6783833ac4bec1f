package datastore

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ExtractionStore persists the structured fields the data_extraction
// tool pulls out of an uploaded document, one document per extraction
// run, keyed by workflow_id for later retrieval by other tasks.
type ExtractionStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// ExtractedFields is one extraction run's output.
type ExtractedFields struct {
	WorkflowID string         `bson:"workflow_id"`
	DocumentID string         `bson:"document_id"`
	Fields     map[string]any `bson:"fields"`
	ExtractedAt time.Time     `bson:"extracted_at"`
}

func NewExtractionStore(ctx context.Context, uri, database string) (*ExtractionStore, error) {
	clientOpts := options.Client().ApplyURI(uri).SetMaxPoolSize(100).SetMinPoolSize(10)
	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("connecting to extraction store: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("pinging extraction store: %w", err)
	}
	return &ExtractionStore{
		client:     client,
		collection: client.Database(database).Collection("extracted_fields"),
	}, nil
}

// Save upserts the extraction result for (workflow_id, document_id).
func (s *ExtractionStore) Save(ctx context.Context, ef ExtractedFields) error {
	ef.ExtractedAt = time.Now().UTC()
	filter := bson.M{"workflow_id": ef.WorkflowID, "document_id": ef.DocumentID}
	_, err := s.collection.ReplaceOne(ctx, filter, ef, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("saving extracted fields: %w", err)
	}
	return nil
}

// Get returns the most recent extraction for a workflow/document pair.
func (s *ExtractionStore) Get(ctx context.Context, workflowID, documentID string) (*ExtractedFields, error) {
	var ef ExtractedFields
	err := s.collection.FindOne(ctx, bson.M{"workflow_id": workflowID, "document_id": documentID}).Decode(&ef)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading extracted fields: %w", err)
	}
	return &ef, nil
}

func (s *ExtractionStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
