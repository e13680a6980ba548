package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AuditLog records a before/after snapshot for every affiliate mutation so
// commission arithmetic stays reproducible after the fact.
type AuditLog struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	AffiliateID primitive.ObjectID `bson:"affiliateId" json:"affiliateId"`
	Action      string             `bson:"action" json:"action"`
	ActorID     string             `bson:"actorId,omitempty" json:"actorId,omitempty"`
	Reason      string             `bson:"reason,omitempty" json:"reason,omitempty"`
	Before      interface{}        `bson:"before,omitempty" json:"before,omitempty"`
	After       interface{}        `bson:"after,omitempty" json:"after,omitempty"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
}
