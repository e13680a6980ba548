package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Payout statuses. Happy path pending -> processing -> completed;
// processing -> failed releases the claimed referrals. Failed payouts are
// never retried in place; a new payout re-batches the released referrals.
const (
	PayoutStatusPending    = "pending"
	PayoutStatusProcessing = "processing"
	PayoutStatusCompleted  = "completed"
	PayoutStatusFailed     = "failed"
)

// AffiliatePayout aggregates a disjoint batch of approved referrals into
// one settlement. ReferralIDs are stamped with this payout's id at creation
// so no concurrent payout can double-claim them.
type AffiliatePayout struct {
	ID            primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	AffiliateID   primitive.ObjectID   `bson:"affiliateId" json:"affiliateId"`
	Amount        float64              `bson:"amount" json:"amount"`
	Status        string               `bson:"status" json:"status"`
	PayoutMethod  string               `bson:"payoutMethod" json:"payoutMethod"`
	PayoutDetails string               `bson:"payoutDetails,omitempty" json:"-"`
	Reference     string               `bson:"reference" json:"reference"`
	ReferralIDs   []primitive.ObjectID `bson:"referralIds" json:"referralIds"`
	FailReason    string               `bson:"failReason,omitempty" json:"failReason,omitempty"`
	ProcessedAt   *time.Time           `bson:"processedAt,omitempty" json:"processedAt,omitempty"`
	CreatedAt     time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time            `bson:"updatedAt" json:"updatedAt"`
}

// CreatePayoutRequest batches an affiliate's approved referrals
type CreatePayoutRequest struct {
	AffiliateID string `json:"affiliateId" validate:"required"`
}

// FailPayoutRequest carries the settlement failure reason
type FailPayoutRequest struct {
	Reason string `json:"reason" validate:"required"`
}
