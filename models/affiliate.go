package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Affiliate account statuses
const (
	AffiliateStatusActive    = "active"
	AffiliateStatusInactive  = "inactive"
	AffiliateStatusSuspended = "suspended"
)

// Affiliate represents a user enrolled in the affiliate program.
// TotalEarnings and TotalReferrals are aggregate counters maintained by
// atomic increments only; they must equal the sum over the affiliate's
// non-cancelled referral rows.
type Affiliate struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID         primitive.ObjectID `bson:"userId" json:"userId"`
	AffiliateCode  string             `bson:"affiliateCode" json:"affiliateCode"`
	CommissionRate float64            `bson:"commissionRate" json:"commissionRate"`
	TotalEarnings  float64            `bson:"totalEarnings" json:"totalEarnings"`
	TotalReferrals int                `bson:"totalReferrals" json:"totalReferrals"`
	Status         string             `bson:"status" json:"status"`
	PayoutMethod   string             `bson:"payoutMethod" json:"payoutMethod"`
	PayoutDetails  string             `bson:"payoutDetails,omitempty" json:"-"`
	SuspendReason  string             `bson:"suspendReason,omitempty" json:"suspendReason,omitempty"`
	CreatedAt      time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// RegisterAffiliateRequest is the enrollment payload
type RegisterAffiliateRequest struct {
	PayoutMethod   string   `json:"payoutMethod" validate:"required"`
	PayoutDetails  string   `json:"payoutDetails" validate:"required"`
	CommissionRate *float64 `json:"commissionRate,omitempty"`
}

// SuspendAffiliateRequest carries the admin's suspension reason
type SuspendAffiliateRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// AdjustRateRequest changes the commission rate for future referrals only
type AdjustRateRequest struct {
	CommissionRate float64 `json:"commissionRate" validate:"gte=0,lte=1"`
}

// AffiliateDashboard is the self-service summary for an affiliate
type AffiliateDashboard struct {
	AffiliateCode  string  `json:"affiliateCode"`
	ReferralLink   string  `json:"referralLink"`
	CommissionRate float64 `json:"commissionRate"`
	TotalEarnings  float64 `json:"totalEarnings"`
	TotalReferrals int     `json:"totalReferrals"`
	Status         string  `json:"status"`
}
