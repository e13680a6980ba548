package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Referral statuses. Transitions only move forward:
// pending -> approved -> paid, or pending|approved -> cancelled.
const (
	ReferralStatusPending   = "pending"
	ReferralStatusApproved  = "approved"
	ReferralStatusPaid      = "paid"
	ReferralStatusCancelled = "cancelled"
)

// AffiliateReferral is the unit of commission: one qualifying sale
// attributed to an affiliate. CommissionEarned is computed once at creation
// and never recomputed; PayoutID is stamped by at most one live payout.
type AffiliateReferral struct {
	ID               primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	AffiliateID      primitive.ObjectID  `bson:"affiliateId" json:"affiliateId"`
	ReferredUserID   primitive.ObjectID  `bson:"referredUserId" json:"referredUserId"`
	ProductID        *primitive.ObjectID `bson:"productId,omitempty" json:"productId,omitempty"`
	SaleAmount       float64             `bson:"saleAmount" json:"saleAmount"`
	CommissionEarned float64             `bson:"commissionEarned" json:"commissionEarned"`
	Status           string              `bson:"status" json:"status"`
	ReferralSource   string              `bson:"referralSource,omitempty" json:"referralSource,omitempty"`
	CancelReason     string              `bson:"cancelReason,omitempty" json:"cancelReason,omitempty"`
	PayoutID         *primitive.ObjectID `bson:"payoutId,omitempty" json:"payoutId,omitempty"`
	CreatedAt        time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt        time.Time           `bson:"updatedAt" json:"updatedAt"`
}

// RecordReferralRequest records a referral for a known affiliate
type RecordReferralRequest struct {
	AffiliateID    string  `json:"affiliateId" validate:"required"`
	ReferredUserID string  `json:"referredUserId" validate:"required"`
	SaleAmount     float64 `json:"saleAmount" validate:"required,gt=0"`
	ProductID      string  `json:"productId,omitempty"`
	ReferralSource string  `json:"referralSource,omitempty"`
}

// SaleCompletedEvent is the payload delivered by the catalog/order
// collaborator when a sale carrying an affiliate code completes.
type SaleCompletedEvent struct {
	BuyerID           string  `json:"buyerId" validate:"required"`
	ProductID         string  `json:"productId,omitempty"`
	SaleAmount        float64 `json:"saleAmount" validate:"required,gt=0"`
	AffiliateCodeUsed string  `json:"affiliateCodeUsed" validate:"required"`
	ClickID           string  `json:"clickId,omitempty"`
}

// CancelReferralRequest carries the cancellation reason
type CancelReferralRequest struct {
	Reason string `json:"reason" validate:"required"`
}
