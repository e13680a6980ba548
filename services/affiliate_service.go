package services

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/craftora/affiliate_backend/models"
	"github.com/craftora/affiliate_backend/repositories"
	"github.com/craftora/affiliate_backend/utils"
)

// AffiliateService owns affiliate account state: enrollment, suspension,
// rate changes and the self-service dashboard.
type AffiliateService struct {
	affiliates  repositories.AffiliateRepository
	referrals   repositories.ReferralRepository
	audit       repositories.AuditRepository
	defaultRate float64
	linkBase    string
}

func NewAffiliateService(affiliates repositories.AffiliateRepository, referrals repositories.ReferralRepository, audit repositories.AuditRepository, defaultRate float64, linkBase string) *AffiliateService {
	return &AffiliateService{
		affiliates:  affiliates,
		referrals:   referrals,
		audit:       audit,
		defaultRate: defaultRate,
		linkBase:    linkBase,
	}
}

// Register enrolls a user into the affiliate program. A user can hold at
// most one affiliate account; the unique index on userId surfaces a second
// enrollment as a conflict.
func (s *AffiliateService) Register(ctx context.Context, userID primitive.ObjectID, req models.RegisterAffiliateRequest) (*models.Affiliate, error) {
	rate := s.defaultRate
	if req.CommissionRate != nil {
		rate = *req.CommissionRate
	}
	if rate < 0 || rate > 1 {
		return nil, models.InvalidInputf("commission rate must be between 0 and 1")
	}

	code, err := utils.GenerateAffiliateCode()
	if err != nil {
		return nil, models.StorageError("generate affiliate code", err)
	}

	now := time.Now()
	affiliate := &models.Affiliate{
		UserID:         userID,
		AffiliateCode:  code,
		CommissionRate: rate,
		Status:         models.AffiliateStatusActive,
		PayoutMethod:   req.PayoutMethod,
		PayoutDetails:  req.PayoutDetails,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.affiliates.Insert(ctx, affiliate); err != nil {
		return nil, err
	}
	s.logAudit(ctx, affiliate.ID, "affiliate.registered", userID.Hex(), "", nil, affiliate)
	return affiliate, nil
}

func (s *AffiliateService) Get(ctx context.Context, userID primitive.ObjectID) (*models.Affiliate, error) {
	return s.affiliates.FindByUserID(ctx, userID)
}

// GetByID looks up an affiliate by its own ID, for admin endpoints.
func (s *AffiliateService) GetByID(ctx context.Context, affiliateID primitive.ObjectID) (*models.Affiliate, error) {
	return s.affiliates.FindByID(ctx, affiliateID)
}

// Dashboard is the affiliate's self-service summary.
func (s *AffiliateService) Dashboard(ctx context.Context, userID primitive.ObjectID) (*models.AffiliateDashboard, error) {
	affiliate, err := s.affiliates.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &models.AffiliateDashboard{
		AffiliateCode:  affiliate.AffiliateCode,
		ReferralLink:   s.linkBase + "?ref=" + affiliate.AffiliateCode,
		CommissionRate: affiliate.CommissionRate,
		TotalEarnings:  affiliate.TotalEarnings,
		TotalReferrals: affiliate.TotalReferrals,
		Status:         affiliate.Status,
	}, nil
}

// ReferralLink returns the share URL the QR endpoint renders.
func (s *AffiliateService) ReferralLink(ctx context.Context, userID primitive.ObjectID) (string, error) {
	affiliate, err := s.affiliates.FindByUserID(ctx, userID)
	if err != nil {
		return "", err
	}
	return s.linkBase + "?ref=" + affiliate.AffiliateCode, nil
}

// Suspend marks the affiliate suspended. Suspending an already-suspended
// affiliate is a no-op, not an error.
func (s *AffiliateService) Suspend(ctx context.Context, affiliateID primitive.ObjectID, reason, actorID string) (*models.Affiliate, error) {
	before, err := s.affiliates.FindByID(ctx, affiliateID)
	if err != nil {
		return nil, err
	}
	if before.Status == models.AffiliateStatusSuspended {
		return before, nil
	}
	after, err := s.affiliates.SetStatus(ctx, affiliateID, models.AffiliateStatusSuspended, reason)
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, affiliateID, "affiliate.suspended", actorID, reason, before, after)
	return after, nil
}

// Reactivate returns a suspended affiliate to active. No-op when already
// active.
func (s *AffiliateService) Reactivate(ctx context.Context, affiliateID primitive.ObjectID, actorID string) (*models.Affiliate, error) {
	before, err := s.affiliates.FindByID(ctx, affiliateID)
	if err != nil {
		return nil, err
	}
	if before.Status == models.AffiliateStatusActive {
		return before, nil
	}
	after, err := s.affiliates.SetStatus(ctx, affiliateID, models.AffiliateStatusActive, "")
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, affiliateID, "affiliate.reactivated", actorID, "", before, after)
	return after, nil
}

// AdjustRate changes the commission rate for referrals created after the
// change. Existing referrals keep their snapshotted commission.
func (s *AffiliateService) AdjustRate(ctx context.Context, affiliateID primitive.ObjectID, newRate float64, actorID string) (*models.Affiliate, error) {
	if newRate < 0 || newRate > 1 {
		return nil, models.InvalidInputf("commission rate must be between 0 and 1")
	}
	before, err := s.affiliates.FindByID(ctx, affiliateID)
	if err != nil {
		return nil, err
	}
	after, err := s.affiliates.SetRate(ctx, affiliateID, newRate)
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, affiliateID, "affiliate.rate_adjusted", actorID, "", before, after)
	return after, nil
}

// ReconcileTotals recomputes the earnings aggregate from referral rows so
// an operator can verify the cached counter. Read-only.
func (s *AffiliateService) ReconcileTotals(ctx context.Context, affiliateID primitive.ObjectID) (cached, derived float64, err error) {
	affiliate, err := s.affiliates.FindByID(ctx, affiliateID)
	if err != nil {
		return 0, 0, err
	}
	derived, err = s.referrals.SumCommission(ctx, affiliateID, []string{models.ReferralStatusApproved, models.ReferralStatusPaid})
	if err != nil {
		return 0, 0, err
	}
	return affiliate.TotalEarnings, derived, nil
}

func (s *AffiliateService) logAudit(ctx context.Context, affiliateID primitive.ObjectID, action, actorID, reason string, before, after interface{}) {
	entry := &models.AuditLog{
		AffiliateID: affiliateID,
		Action:      action,
		ActorID:     actorID,
		Reason:      reason,
		Before:      before,
		After:       after,
		CreatedAt:   time.Now(),
	}
	if err := s.audit.Append(ctx, entry); err != nil {
		log.Printf("Failed to append audit log for %s: %v", action, err)
	}
}
