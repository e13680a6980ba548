package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AffiliateClick is one tracked visit through an affiliate link.
// The converted flag is write-once: false -> true, never back.
type AffiliateClick struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	AffiliateID primitive.ObjectID  `bson:"affiliateId" json:"affiliateId"`
	ProductID   *primitive.ObjectID `bson:"productId,omitempty" json:"productId,omitempty"`
	IPAddress   string              `bson:"ipAddress,omitempty" json:"ipAddress,omitempty"`
	UserAgent   string              `bson:"userAgent,omitempty" json:"userAgent,omitempty"`
	Referrer    string              `bson:"referrer,omitempty" json:"referrer,omitempty"`
	LandingPage string              `bson:"landingPage,omitempty" json:"landingPage,omitempty"`
	Converted   bool                `bson:"converted" json:"converted"`
	ConvertedAt *time.Time          `bson:"convertedAt,omitempty" json:"convertedAt,omitempty"`
	CreatedAt   time.Time           `bson:"createdAt" json:"createdAt"`
}

// RecordClickRequest is the public click-tracking payload
type RecordClickRequest struct {
	AffiliateCode string `json:"affiliateCode" validate:"required"`
	ProductID     string `json:"productId,omitempty"`
	Referrer      string `json:"referrer,omitempty"`
	LandingPage   string `json:"landingPage,omitempty"`
}
