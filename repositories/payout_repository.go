package repositories

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/craftora/affiliate_backend/models"
)

// MongoPayoutRepository stores payouts in affiliate_payouts.
type MongoPayoutRepository struct {
	collection *mongo.Collection
}

func NewMongoPayoutRepository(db *mongo.Database) *MongoPayoutRepository {
	return &MongoPayoutRepository{collection: db.Collection("affiliate_payouts")}
}

func (r *MongoPayoutRepository) Insert(ctx context.Context, payout *models.AffiliatePayout) error {
	if payout.ID.IsZero() {
		payout.ID = primitive.NewObjectID()
	}
	_, err := r.collection.InsertOne(ctx, payout)
	if err != nil {
		return models.StorageError("insert payout", err)
	}
	return nil
}

func (r *MongoPayoutRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.AffiliatePayout, error) {
	var payout models.AffiliatePayout
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&payout)
	if err == mongo.ErrNoDocuments {
		return nil, models.NotFoundf("payout not found")
	}
	if err != nil {
		return nil, models.StorageError("find payout", err)
	}
	return &payout, nil
}

// SetStatus moves the payout state machine with a compare-and-set on the
// expected source status.
func (r *MongoPayoutRepository) SetStatus(ctx context.Context, id primitive.ObjectID, from, to, reason string, processedAt *time.Time) (*models.AffiliatePayout, error) {
	set := bson.M{"status": to, "updatedAt": time.Now()}
	if reason != "" {
		set["failReason"] = reason
	}
	if processedAt != nil {
		set["processedAt"] = *processedAt
	}
	filter := bson.M{"_id": id, "status": from}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var payout models.AffiliatePayout
	err := r.collection.FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, opts).Decode(&payout)
	if err == nil {
		return &payout, nil
	}
	if err != mongo.ErrNoDocuments {
		return nil, models.StorageError("update payout status", err)
	}

	existing, ferr := r.FindByID(ctx, id)
	if ferr != nil {
		return nil, ferr
	}
	return nil, models.IllegalTransitionf("payout is %s, expected %s", existing.Status, from)
}
