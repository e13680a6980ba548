package repositories

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/craftora/affiliate_backend/models"
)

// MongoReferralRepository stores referrals in affiliate_referrals.
type MongoReferralRepository struct {
	collection *mongo.Collection
}

func NewMongoReferralRepository(db *mongo.Database) *MongoReferralRepository {
	return &MongoReferralRepository{collection: db.Collection("affiliate_referrals")}
}

func (r *MongoReferralRepository) Insert(ctx context.Context, referral *models.AffiliateReferral) error {
	if referral.ID.IsZero() {
		referral.ID = primitive.NewObjectID()
	}
	_, err := r.collection.InsertOne(ctx, referral)
	if err != nil {
		return models.StorageError("insert referral", err)
	}
	return nil
}

func (r *MongoReferralRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.AffiliateReferral, error) {
	var referral models.AffiliateReferral
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&referral)
	if err == mongo.ErrNoDocuments {
		return nil, models.NotFoundf("referral not found")
	}
	if err != nil {
		return nil, models.StorageError("find referral", err)
	}
	return &referral, nil
}

// Transition moves the referral status with a filter on the allowed source
// statuses and returns the pre-transition document, so the caller can see
// which source state actually applied. The filter also requires an
// unclaimed payoutId: once a payout has stamped the row its amount is
// fixed, so status changes outside the payout lifecycle must not touch it.
func (r *MongoReferralRepository) Transition(ctx context.Context, id primitive.ObjectID, from []string, to, reason string, at time.Time) (*models.AffiliateReferral, error) {
	set := bson.M{"status": to, "updatedAt": at}
	if reason != "" {
		set["cancelReason"] = reason
	}
	filter := bson.M{"_id": id, "status": bson.M{"$in": from}, "payoutId": nil}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.Before)

	var previous models.AffiliateReferral
	err := r.collection.FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, opts).Decode(&previous)
	if err == nil {
		return &previous, nil
	}
	if err != mongo.ErrNoDocuments {
		return nil, models.StorageError("transition referral", err)
	}

	existing, ferr := r.FindByID(ctx, id)
	if ferr != nil {
		return nil, ferr
	}
	for _, status := range from {
		if existing.Status == status {
			return nil, models.Conflictf("referral is claimed by a payout")
		}
	}
	return nil, models.IllegalTransitionf("referral is %s, expected %s", existing.Status, strings.Join(from, " or "))
}

// ClaimForPayout stamps payoutID onto approved unclaimed referrals. The
// payoutId null filter makes concurrent claims disjoint: a row claimed by
// another payout simply never matches.
func (r *MongoReferralRepository) ClaimForPayout(ctx context.Context, affiliateID, payoutID primitive.ObjectID, at time.Time) ([]models.AffiliateReferral, error) {
	filter := bson.M{
		"affiliateId": affiliateID,
		"status":      models.ReferralStatusApproved,
		"payoutId":    nil,
	}
	update := bson.M{"$set": bson.M{"payoutId": payoutID, "updatedAt": at}}
	if _, err := r.collection.UpdateMany(ctx, filter, update); err != nil {
		return nil, models.StorageError("claim referrals", err)
	}

	cursor, err := r.collection.Find(ctx, bson.M{"payoutId": payoutID})
	if err != nil {
		return nil, models.StorageError("load claimed referrals", err)
	}
	defer cursor.Close(ctx)

	var claimed []models.AffiliateReferral
	if err := cursor.All(ctx, &claimed); err != nil {
		return nil, models.StorageError("decode claimed referrals", err)
	}
	return claimed, nil
}

func (r *MongoReferralRepository) MarkPaid(ctx context.Context, payoutID primitive.ObjectID, at time.Time) error {
	filter := bson.M{"payoutId": payoutID, "status": models.ReferralStatusApproved}
	update := bson.M{"$set": bson.M{"status": models.ReferralStatusPaid, "updatedAt": at}}
	if _, err := r.collection.UpdateMany(ctx, filter, update); err != nil {
		return models.StorageError("mark referrals paid", err)
	}
	return nil
}

func (r *MongoReferralRepository) ReleaseClaim(ctx context.Context, payoutID primitive.ObjectID, at time.Time) error {
	filter := bson.M{"payoutId": payoutID}
	update := bson.M{
		"$set":   bson.M{"updatedAt": at},
		"$unset": bson.M{"payoutId": ""},
	}
	if _, err := r.collection.UpdateMany(ctx, filter, update); err != nil {
		return models.StorageError("release referral claim", err)
	}
	return nil
}

// SumCommission aggregates commissionEarned over the given statuses; used
// for audit reconciliation against the cached affiliate totals.
func (r *MongoReferralRepository) SumCommission(ctx context.Context, affiliateID primitive.ObjectID, statuses []string) (float64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"affiliateId": affiliateID,
			"status":      bson.M{"$in": statuses},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":   nil,
			"total": bson.M{"$sum": "$commissionEarned"},
		}}},
	}
	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, models.StorageError("sum commissions", err)
	}
	defer cursor.Close(ctx)

	var results []struct {
		Total float64 `bson:"total"`
	}
	if err := cursor.All(ctx, &results); err != nil {
		return 0, models.StorageError("decode commission sum", err)
	}
	if len(results) == 0 {
		return 0, nil
	}
	return results[0].Total, nil
}
