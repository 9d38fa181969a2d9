package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/noah-isme/stms-api/internal/models"
)

// MongoSnapshotRepository reads the portal collections from a document store
// laid out like the portal's own: one collection per entity, camelCase fields.
type MongoSnapshotRepository struct {
	db *mongo.Database
}

// NewMongoSnapshotRepository constructs a MongoSnapshotRepository.
func NewMongoSnapshotRepository(db *mongo.Database) *MongoSnapshotRepository {
	return &MongoSnapshotRepository{db: db}
}

// Load fetches each collection in full.
func (r *MongoSnapshotRepository) Load(ctx context.Context) (*models.RawSnapshot, error) {
	users, err := r.find(ctx, models.CollectionUsers)
	if err != nil {
		return nil, err
	}
	classes, err := r.find(ctx, models.CollectionClasses)
	if err != nil {
		return nil, err
	}
	tasks, err := r.find(ctx, models.CollectionTasks)
	if err != nil {
		return nil, err
	}
	submissions, err := r.find(ctx, models.CollectionSubmissions)
	if err != nil {
		return nil, err
	}
	return &models.RawSnapshot{Users: users, Classes: classes, Tasks: tasks, Submissions: submissions}, nil
}

// Ping checks the connection for readiness probes.
func (r *MongoSnapshotRepository) Ping(ctx context.Context) error {
	return r.db.Client().Ping(ctx, nil)
}

func (r *MongoSnapshotRepository) find(ctx context.Context, collection string) ([]models.Record, error) {
	cursor, err := r.db.Collection(collection).Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", collection, err)
	}
	var docs []bson.M
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode %s: %w", collection, err)
	}
	records := make([]models.Record, 0, len(docs))
	for _, doc := range docs {
		records = append(records, flattenDocument(doc))
	}
	return records, nil
}

// flattenDocument converts BSON specific values into plain Go values. The
// document _id becomes the id field unless the document carries its own.
func flattenDocument(doc bson.M) models.Record {
	record := make(models.Record, len(doc))
	for key, value := range doc {
		if key == "_id" {
			continue
		}
		record[key] = flattenValue(value)
	}
	if _, ok := record[models.FieldID]; !ok {
		if id, exists := doc["_id"]; exists {
			record[models.FieldID] = flattenValue(id)
		}
	}
	return record
}

func flattenValue(value interface{}) interface{} {
	switch v := value.(type) {
	case primitive.ObjectID:
		return v.Hex()
	case primitive.Timestamp:
		return time.Unix(int64(v.T), 0).UTC()
	case primitive.Decimal128:
		return v.String()
	case primitive.A:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = flattenValue(item)
		}
		return out
	case primitive.D:
		out := make(map[string]interface{}, len(v))
		for _, elem := range v {
			out[elem.Key] = flattenValue(elem.Value)
		}
		return out
	case primitive.M:
		out := make(map[string]interface{}, len(v))
		for key, item := range v {
			out[key] = flattenValue(item)
		}
		return out
	case primitive.Null, primitive.Undefined:
		return nil
	default:
		return v
	}
}
