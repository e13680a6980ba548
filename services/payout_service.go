package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/craftora/affiliate_backend/models"
	"github.com/craftora/affiliate_backend/repositories"
)

// PayoutService batches approved referral commissions into payouts and
// walks them through settlement.
type PayoutService struct {
	txn        repositories.TxnRunner
	payouts    repositories.PayoutRepository
	referrals  repositories.ReferralRepository
	affiliates repositories.AffiliateRepository
}

func NewPayoutService(txn repositories.TxnRunner, payouts repositories.PayoutRepository, referrals repositories.ReferralRepository, affiliates repositories.AffiliateRepository) *PayoutService {
	return &PayoutService{
		txn:        txn,
		payouts:    payouts,
		referrals:  referrals,
		affiliates: affiliates,
	}
}

// Create claims every approved, unclaimed referral of the affiliate and
// opens a pending payout over the batch. Claim and insert run as one
// atomic unit; referrals already claimed elsewhere never match the claim
// filter, so concurrent payout creation cannot double-pay a referral.
func (s *PayoutService) Create(ctx context.Context, affiliateID primitive.ObjectID) (*models.AffiliatePayout, error) {
	affiliate, err := s.affiliates.FindByID(ctx, affiliateID)
	if err != nil {
		return nil, err
	}

	payoutID := primitive.NewObjectID()
	now := time.Now()
	var payout *models.AffiliatePayout

	err = s.txn.WithTransaction(ctx, func(ctx context.Context) error {
		claimed, err := s.referrals.ClaimForPayout(ctx, affiliateID, payoutID, now)
		if err != nil {
			return err
		}
		if len(claimed) == 0 {
			return models.InvalidInputf("affiliate has no approved referrals to pay out")
		}
		amount := 0.0
		referralIDs := make([]primitive.ObjectID, 0, len(claimed))
		for _, referral := range claimed {
			amount += referral.CommissionEarned
			referralIDs = append(referralIDs, referral.ID)
		}
		payout = &models.AffiliatePayout{
			ID:            payoutID,
			AffiliateID:   affiliateID,
			Amount:        round2(amount),
			Status:        models.PayoutStatusPending,
			PayoutMethod:  affiliate.PayoutMethod,
			PayoutDetails: affiliate.PayoutDetails,
			Reference:     uuid.NewString(),
			ReferralIDs:   referralIDs,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		return s.payouts.Insert(ctx, payout)
	})
	if err != nil {
		return nil, err
	}
	return payout, nil
}

func (s *PayoutService) Get(ctx context.Context, payoutID primitive.ObjectID) (*models.AffiliatePayout, error) {
	return s.payouts.FindByID(ctx, payoutID)
}

// MarkProcessing hands the payout to the payment processor.
func (s *PayoutService) MarkProcessing(ctx context.Context, payoutID primitive.ObjectID) (*models.AffiliatePayout, error) {
	return s.payouts.SetStatus(ctx, payoutID, models.PayoutStatusPending, models.PayoutStatusProcessing, "", nil)
}

// MarkCompleted finishes settlement: the payout completes and its claimed
// referrals move to paid in the same atomic unit.
func (s *PayoutService) MarkCompleted(ctx context.Context, payoutID primitive.ObjectID) (*models.AffiliatePayout, error) {
	now := time.Now()
	var payout *models.AffiliatePayout
	err := s.txn.WithTransaction(ctx, func(ctx context.Context) error {
		updated, err := s.payouts.SetStatus(ctx, payoutID, models.PayoutStatusProcessing, models.PayoutStatusCompleted, "", &now)
		if err != nil {
			return err
		}
		payout = updated
		return s.referrals.MarkPaid(ctx, payoutID, now)
	})
	if err != nil {
		return nil, err
	}
	return payout, nil
}

// MarkFailed records the settlement failure and releases the claim so a
// future payout can re-batch the same referrals. The failed payout itself
// never retries in place.
func (s *PayoutService) MarkFailed(ctx context.Context, payoutID primitive.ObjectID, reason string) (*models.AffiliatePayout, error) {
	now := time.Now()
	var payout *models.AffiliatePayout
	err := s.txn.WithTransaction(ctx, func(ctx context.Context) error {
		updated, err := s.payouts.SetStatus(ctx, payoutID, models.PayoutStatusProcessing, models.PayoutStatusFailed, reason, nil)
		if err != nil {
			return err
		}
		payout = updated
		return s.referrals.ReleaseClaim(ctx, payoutID, now)
	})
	if err != nil {
		return nil, err
	}
	return payout, nil
}
