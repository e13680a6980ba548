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

// MongoAffiliateRepository stores affiliates in the affiliates collection.
// Uniqueness of userId and affiliateCode is enforced by indexes created in
// config.ConnectDB.
type MongoAffiliateRepository struct {
	collection *mongo.Collection
}

func NewMongoAffiliateRepository(db *mongo.Database) *MongoAffiliateRepository {
	return &MongoAffiliateRepository{collection: db.Collection("affiliates")}
}

func (r *MongoAffiliateRepository) Insert(ctx context.Context, affiliate *models.Affiliate) error {
	if affiliate.ID.IsZero() {
		affiliate.ID = primitive.NewObjectID()
	}
	_, err := r.collection.InsertOne(ctx, affiliate)
	if mongo.IsDuplicateKeyError(err) {
		return models.Conflictf("user is already registered as an affiliate")
	}
	if err != nil {
		return models.StorageError("insert affiliate", err)
	}
	return nil
}

func (r *MongoAffiliateRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Affiliate, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *MongoAffiliateRepository) FindByUserID(ctx context.Context, userID primitive.ObjectID) (*models.Affiliate, error) {
	return r.findOne(ctx, bson.M{"userId": userID})
}

func (r *MongoAffiliateRepository) FindByCode(ctx context.Context, code string) (*models.Affiliate, error) {
	return r.findOne(ctx, bson.M{"affiliateCode": code})
}

func (r *MongoAffiliateRepository) findOne(ctx context.Context, filter bson.M) (*models.Affiliate, error) {
	var affiliate models.Affiliate
	err := r.collection.FindOne(ctx, filter).Decode(&affiliate)
	if err == mongo.ErrNoDocuments {
		return nil, models.NotFoundf("affiliate not found")
	}
	if err != nil {
		return nil, models.StorageError("find affiliate", err)
	}
	return &affiliate, nil
}

func (r *MongoAffiliateRepository) SetStatus(ctx context.Context, id primitive.ObjectID, status, reason string) (*models.Affiliate, error) {
	update := bson.M{"$set": bson.M{
		"status":        status,
		"suspendReason": reason,
		"updatedAt":     time.Now(),
	}}
	return r.findOneAndUpdate(ctx, id, update)
}

func (r *MongoAffiliateRepository) SetRate(ctx context.Context, id primitive.ObjectID, rate float64) (*models.Affiliate, error) {
	update := bson.M{"$set": bson.M{
		"commissionRate": rate,
		"updatedAt":      time.Now(),
	}}
	return r.findOneAndUpdate(ctx, id, update)
}

func (r *MongoAffiliateRepository) findOneAndUpdate(ctx context.Context, id primitive.ObjectID, update bson.M) (*models.Affiliate, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var affiliate models.Affiliate
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&affiliate)
	if err == mongo.ErrNoDocuments {
		return nil, models.NotFoundf("affiliate not found")
	}
	if err != nil {
		return nil, models.StorageError("update affiliate", err)
	}
	return &affiliate, nil
}

// IncrementTotals applies the counter deltas with $inc so concurrent
// referral writes never lose updates.
func (r *MongoAffiliateRepository) IncrementTotals(ctx context.Context, id primitive.ObjectID, referrals int, earnings float64) error {
	update := bson.M{
		"$inc": bson.M{
			"totalReferrals": referrals,
			"totalEarnings":  earnings,
		},
		"$set": bson.M{"updatedAt": time.Now()},
	}
	result, err := r.collection.UpdateByID(ctx, id, update)
	if err != nil {
		return models.StorageError("increment affiliate totals", err)
	}
	if result.MatchedCount == 0 {
		return models.NotFoundf("affiliate not found")
	}
	return nil
}
