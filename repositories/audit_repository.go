package repositories

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/craftora/affiliate_backend/models"
)

// MongoAuditRepository appends to affiliate_audit_logs.
type MongoAuditRepository struct {
	collection *mongo.Collection
}

func NewMongoAuditRepository(db *mongo.Database) *MongoAuditRepository {
	return &MongoAuditRepository{collection: db.Collection("affiliate_audit_logs")}
}

func (r *MongoAuditRepository) Append(ctx context.Context, entry *models.AuditLog) error {
	if entry.ID.IsZero() {
		entry.ID = primitive.NewObjectID()
	}
	_, err := r.collection.InsertOne(ctx, entry)
	if err != nil {
		return models.StorageError("append audit log", err)
	}
	return nil
}
