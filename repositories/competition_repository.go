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

// MongoCompetitionRepository stores competitions in affiliate_competitions.
type MongoCompetitionRepository struct {
	collection *mongo.Collection
}

func NewMongoCompetitionRepository(db *mongo.Database) *MongoCompetitionRepository {
	return &MongoCompetitionRepository{collection: db.Collection("affiliate_competitions")}
}

func (r *MongoCompetitionRepository) Insert(ctx context.Context, competition *models.AffiliateCompetition) error {
	if competition.ID.IsZero() {
		competition.ID = primitive.NewObjectID()
	}
	_, err := r.collection.InsertOne(ctx, competition)
	if err != nil {
		return models.StorageError("insert competition", err)
	}
	return nil
}

func (r *MongoCompetitionRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.AffiliateCompetition, error) {
	var competition models.AffiliateCompetition
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&competition)
	if err == mongo.ErrNoDocuments {
		return nil, models.NotFoundf("competition not found")
	}
	if err != nil {
		return nil, models.StorageError("find competition", err)
	}
	return &competition, nil
}

func (r *MongoCompetitionRepository) List(ctx context.Context) ([]models.AffiliateCompetition, error) {
	opts := options.Find().SetSort(bson.D{{Key: "startDate", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, models.StorageError("list competitions", err)
	}
	defer cursor.Close(ctx)

	var competitions []models.AffiliateCompetition
	if err := cursor.All(ctx, &competitions); err != nil {
		return nil, models.StorageError("decode competitions", err)
	}
	return competitions, nil
}

func (r *MongoCompetitionRepository) ListActive(ctx context.Context, now time.Time) ([]models.AffiliateCompetition, error) {
	filter := bson.M{
		"cancelled": false,
		"startDate": bson.M{"$lte": now},
		"endDate":   bson.M{"$gt": now},
	}
	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, models.StorageError("list active competitions", err)
	}
	defer cursor.Close(ctx)

	var competitions []models.AffiliateCompetition
	if err := cursor.All(ctx, &competitions); err != nil {
		return nil, models.StorageError("decode active competitions", err)
	}
	return competitions, nil
}

// Cancel is idempotent; cancelling an already-cancelled competition leaves
// it untouched.
func (r *MongoCompetitionRepository) Cancel(ctx context.Context, id primitive.ObjectID, at time.Time) (*models.AffiliateCompetition, error) {
	filter := bson.M{"_id": id, "cancelled": false}
	update := bson.M{"$set": bson.M{"cancelled": true, "cancelledAt": at, "updatedAt": at}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var competition models.AffiliateCompetition
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&competition)
	if err == nil {
		return &competition, nil
	}
	if err != mongo.ErrNoDocuments {
		return nil, models.StorageError("cancel competition", err)
	}
	return r.FindByID(ctx, id)
}

// MarkSettled claims the one-shot settled flag with a compare-and-set so
// two settle calls can never both distribute the prize pool.
func (r *MongoCompetitionRepository) MarkSettled(ctx context.Context, id primitive.ObjectID, at time.Time) (bool, error) {
	filter := bson.M{"_id": id, "settled": false}
	update := bson.M{"$set": bson.M{"settled": true, "settledAt": at, "updatedAt": at}}
	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, models.StorageError("mark competition settled", err)
	}
	return result.ModifiedCount == 1, nil
}
