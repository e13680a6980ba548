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

// MongoClickRepository stores tracked visits in affiliate_clicks.
type MongoClickRepository struct {
	collection *mongo.Collection
}

func NewMongoClickRepository(db *mongo.Database) *MongoClickRepository {
	return &MongoClickRepository{collection: db.Collection("affiliate_clicks")}
}

func (r *MongoClickRepository) Insert(ctx context.Context, click *models.AffiliateClick) error {
	if click.ID.IsZero() {
		click.ID = primitive.NewObjectID()
	}
	_, err := r.collection.InsertOne(ctx, click)
	if err != nil {
		return models.StorageError("insert click", err)
	}
	return nil
}

func (r *MongoClickRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.AffiliateClick, error) {
	var click models.AffiliateClick
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&click)
	if err == mongo.ErrNoDocuments {
		return nil, models.NotFoundf("click not found")
	}
	if err != nil {
		return nil, models.StorageError("find click", err)
	}
	return &click, nil
}

// ConvertOnce flips converted with a filter on the current value, so the
// false->true transition is write-once regardless of concurrent callers.
func (r *MongoClickRepository) ConvertOnce(ctx context.Context, id primitive.ObjectID, at time.Time) (*models.AffiliateClick, bool, error) {
	filter := bson.M{"_id": id, "converted": false}
	update := bson.M{"$set": bson.M{"converted": true, "convertedAt": at}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var click models.AffiliateClick
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&click)
	if err == nil {
		return &click, false, nil
	}
	if err != mongo.ErrNoDocuments {
		return nil, false, models.StorageError("convert click", err)
	}

	// No unconverted click matched: either already converted or missing.
	existing, ferr := r.FindByID(ctx, id)
	if ferr != nil {
		return nil, false, ferr
	}
	return existing, true, nil
}
