package services

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/AnshRaj112/visited-regions-backend/internal/models"
)

// AuditLog keeps the history of admin changes to regions.
type AuditLog interface {
	Record(ctx context.Context, edit models.RegionEdit) error
	History(ctx context.Context, code string, limit int64) ([]models.RegionEdit, error)
}

const regionEditsCollection = "region_edits"

// MongoAudit stores region edits in MongoDB.
type MongoAudit struct {
	col *mongo.Collection
}

func NewMongoAudit(db *mongo.Database) *MongoAudit {
	return &MongoAudit{col: db.Collection(regionEditsCollection)}
}

// EnsureIndexes creates the (region_code, created_at) index used by History.
func (a *MongoAudit) EnsureIndexes(ctx context.Context) error {
	_, err := a.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "region_code", Value: 1},
			{Key: "created_at", Value: -1},
		},
		Options: options.Index().SetName("idx_region_created"),
	})
	return err
}

func (a *MongoAudit) Record(ctx context.Context, edit models.RegionEdit) error {
	if edit.CreatedAt.IsZero() {
		edit.CreatedAt = time.Now().UTC()
	}
	_, err := a.col.InsertOne(ctx, edit)
	return err
}

// History returns the newest edits first.
func (a *MongoAudit) History(ctx context.Context, code string, limit int64) ([]models.RegionEdit, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit)

	cur, err := a.col.Find(ctx, bson.M{"region_code": code}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	edits := []models.RegionEdit{}
	if err := cur.All(ctx, &edits); err != nil {
		return nil, err
	}
	return edits, nil
}

// NopAudit is used when MongoDB is not configured.
type NopAudit struct{}

func (NopAudit) Record(context.Context, models.RegionEdit) error { return nil }
func (NopAudit) History(context.Context, string, int64) ([]models.RegionEdit, error) {
	return []models.RegionEdit{}, nil
}
