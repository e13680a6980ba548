package repositories

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/craftora/affiliate_backend/models"
)

// MongoParticipantRepository stores enrollment rows in
// competition_participants, with a unique compound index on
// (competitionId, affiliateId) created in config.ConnectDB.
type MongoParticipantRepository struct {
	collection *mongo.Collection
}

func NewMongoParticipantRepository(db *mongo.Database) *MongoParticipantRepository {
	return &MongoParticipantRepository{collection: db.Collection("competition_participants")}
}

// Insert relies on the unique index rather than a check-then-insert, so
// concurrent joins from the same affiliate yield exactly one row.
func (r *MongoParticipantRepository) Insert(ctx context.Context, participant *models.CompetitionParticipant) error {
	if participant.ID.IsZero() {
		participant.ID = primitive.NewObjectID()
	}
	_, err := r.collection.InsertOne(ctx, participant)
	if mongo.IsDuplicateKeyError(err) {
		return models.Conflictf("affiliate already joined this competition")
	}
	if err != nil {
		return models.StorageError("insert participant", err)
	}
	return nil
}

func (r *MongoParticipantRepository) Find(ctx context.Context, competitionID, affiliateID primitive.ObjectID) (*models.CompetitionParticipant, error) {
	filter := bson.M{"competitionId": competitionID, "affiliateId": affiliateID}
	var participant models.CompetitionParticipant
	err := r.collection.FindOne(ctx, filter).Decode(&participant)
	if err == mongo.ErrNoDocuments {
		return nil, models.NotFoundf("participant not found")
	}
	if err != nil {
		return nil, models.StorageError("find participant", err)
	}
	return &participant, nil
}

func (r *MongoParticipantRepository) IncrementActivity(ctx context.Context, competitionID, affiliateID primitive.ObjectID, revenue float64) (bool, error) {
	filter := bson.M{"competitionId": competitionID, "affiliateId": affiliateID}
	update := bson.M{"$inc": bson.M{"salesCount": 1, "totalRevenue": revenue}}
	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, models.StorageError("increment participant activity", err)
	}
	return result.MatchedCount == 1, nil
}

func (r *MongoParticipantRepository) ListRanked(ctx context.Context, competitionID primitive.ObjectID, skip, limit int64) ([]models.CompetitionParticipant, error) {
	sort := bson.D{
		{Key: "totalRevenue", Value: -1},
		{Key: "salesCount", Value: -1},
		{Key: "joinedAt", Value: 1},
	}
	opts := options.Find().SetSort(sort).SetSkip(skip)
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cursor, err := r.collection.Find(ctx, bson.M{"competitionId": competitionID}, opts)
	if err != nil {
		return nil, models.StorageError("list ranked participants", err)
	}
	defer cursor.Close(ctx)

	var participants []models.CompetitionParticipant
	if err := cursor.All(ctx, &participants); err != nil {
		return nil, models.StorageError("decode participants", err)
	}
	return participants, nil
}

func (r *MongoParticipantRepository) SetPrize(ctx context.Context, id primitive.ObjectID, rank int, prize float64) error {
	update := bson.M{"$set": bson.M{"rank": rank, "prizeEarned": prize}}
	result, err := r.collection.UpdateByID(ctx, id, update)
	if err != nil {
		return models.StorageError("set participant prize", err)
	}
	if result.MatchedCount == 0 {
		return models.NotFoundf("participant not found")
	}
	return nil
}
