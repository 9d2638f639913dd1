package repository

import (
	"context"
	"time"

	"github.com/codraft/codraft/internal/document"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoRepo implements a MongoDB-backed repository for documents.
type MongoRepo struct {
	col *mongo.Collection
}

func NewMongoRepo(col *mongo.Collection) *MongoRepo {
	// titles are globally unique
	idxModel := mongo.IndexModel{Keys: bson.D{{Key: "title", Value: 1}}, Options: options.Index().SetUnique(true)}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, _ = col.Indexes().CreateOne(ctx, idxModel)
	return &MongoRepo{col: col}
}

func (m *MongoRepo) Insert(ctx context.Context, d *document.Document) error {
	_, err := m.col.InsertOne(ctx, d)
	if mongo.IsDuplicateKeyError(err) {
		return ErrTitleExists
	}
	return err
}

func (m *MongoRepo) Find(ctx context.Context, id string) (*document.Document, error) {
	var d document.Document
	if err := m.col.FindOne(ctx, bson.M{"_id": id}).Decode(&d); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

func (m *MongoRepo) FindAll(ctx context.Context) ([]*document.Document, error) {
	cur, err := m.col.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []*document.Document{}
	for cur.Next(ctx) {
		var d document.Document
		if err := cur.Decode(&d); err != nil {
			return nil, err
		}
		out = append(out, &d)
	}
	return out, cur.Err()
}

func (m *MongoRepo) Save(ctx context.Context, d *document.Document) error {
	res, err := m.col.ReplaceOne(ctx, bson.M{"_id": d.ID}, d)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrTitleExists
		}
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
