package services

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/craftora/affiliate_backend/models"
	"github.com/craftora/affiliate_backend/repositories"
)

// ReferralService creates referrals from qualifying sales and drives their
// status lifecycle. Writes that touch both a referral row and the
// affiliate's aggregate counters run as one transactional unit.
type ReferralService struct {
	txn          repositories.TxnRunner
	referrals    repositories.ReferralRepository
	affiliates   repositories.AffiliateRepository
	clicks       repositories.ClickRepository
	competitions repositories.CompetitionRepository
	participants repositories.ParticipantRepository
}

func NewReferralService(txn repositories.TxnRunner, referrals repositories.ReferralRepository, affiliates repositories.AffiliateRepository, clicks repositories.ClickRepository, competitions repositories.CompetitionRepository, participants repositories.ParticipantRepository) *ReferralService {
	return &ReferralService{
		txn:          txn,
		referrals:    referrals,
		affiliates:   affiliates,
		clicks:       clicks,
		competitions: competitions,
		participants: participants,
	}
}

// Record creates a pending referral with the commission snapshotted from
// the affiliate's current rate, and increments totalReferrals in the same
// atomic unit so concurrent sales never lose a count.
func (s *ReferralService) Record(ctx context.Context, affiliateID, referredUserID primitive.ObjectID, saleAmount float64, productID *primitive.ObjectID, source string) (*models.AffiliateReferral, error) {
	if saleAmount <= 0 {
		return nil, models.InvalidInputf("sale amount must be positive")
	}
	affiliate, err := s.affiliates.FindByID(ctx, affiliateID)
	if err != nil {
		return nil, err
	}
	if affiliate.Status != models.AffiliateStatusActive {
		return nil, models.Conflictf("affiliate is %s; referrals require an active affiliate", affiliate.Status)
	}

	now := time.Now()
	referral := &models.AffiliateReferral{
		AffiliateID:      affiliateID,
		ReferredUserID:   referredUserID,
		ProductID:        productID,
		SaleAmount:       saleAmount,
		CommissionEarned: Commission(saleAmount, affiliate.CommissionRate, nil),
		Status:           models.ReferralStatusPending,
		ReferralSource:   source,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	err = s.txn.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.referrals.Insert(ctx, referral); err != nil {
			return err
		}
		return s.affiliates.IncrementTotals(ctx, affiliateID, 1, 0)
	})
	if err != nil {
		return nil, err
	}

	s.bumpCompetitions(ctx, affiliateID, saleAmount, now)
	return referral, nil
}

// RecordSale handles the sale-completed event from the order collaborator:
// resolve the affiliate code, settle click attribution, record the
// referral.
func (s *ReferralService) RecordSale(ctx context.Context, event models.SaleCompletedEvent) (*models.AffiliateReferral, error) {
	affiliate, err := s.affiliates.FindByCode(ctx, event.AffiliateCodeUsed)
	if err != nil {
		return nil, models.NotFoundf("unknown affiliate code")
	}
	buyerID, err := primitive.ObjectIDFromHex(event.BuyerID)
	if err != nil {
		return nil, models.InvalidInputf("invalid buyer id")
	}
	var productID *primitive.ObjectID
	if event.ProductID != "" {
		id, err := primitive.ObjectIDFromHex(event.ProductID)
		if err != nil {
			return nil, models.InvalidInputf("invalid product id")
		}
		productID = &id
	}

	// Attribution: converting an already-converted click is a no-op, so
	// replayed sale events cannot flip anything back and forth.
	if event.ClickID != "" {
		if clickID, err := primitive.ObjectIDFromHex(event.ClickID); err == nil {
			if _, _, err := s.clicks.ConvertOnce(ctx, clickID, time.Now()); err != nil {
				log.Printf("Failed to convert click %s: %v", event.ClickID, err)
			}
		}
	}

	return s.Record(ctx, affiliate.ID, buyerID, event.SaleAmount, productID, "sale")
}

// Approve moves a pending referral to approved and credits the commission
// to the affiliate's totalEarnings in the same atomic unit.
func (s *ReferralService) Approve(ctx context.Context, referralID primitive.ObjectID) (*models.AffiliateReferral, error) {
	var approved *models.AffiliateReferral
	err := s.txn.WithTransaction(ctx, func(ctx context.Context) error {
		previous, err := s.referrals.Transition(ctx, referralID, []string{models.ReferralStatusPending}, models.ReferralStatusApproved, "", time.Now())
		if err != nil {
			return err
		}
		if err := s.affiliates.IncrementTotals(ctx, previous.AffiliateID, 0, previous.CommissionEarned); err != nil {
			return err
		}
		updated := *previous
		updated.Status = models.ReferralStatusApproved
		approved = &updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	return approved, nil
}

// Cancel moves a pending or approved referral to cancelled. Cancelling an
// approved referral debits the commission that Approve credited; paid and
// cancelled referrals are terminal. A referral already claimed by a payout
// cannot be cancelled: the payout amount was fixed at claim time, so the
// row is Conflict until the payout fails and releases it.
func (s *ReferralService) Cancel(ctx context.Context, referralID primitive.ObjectID, reason string) (*models.AffiliateReferral, error) {
	var cancelled *models.AffiliateReferral
	err := s.txn.WithTransaction(ctx, func(ctx context.Context) error {
		from := []string{models.ReferralStatusPending, models.ReferralStatusApproved}
		previous, err := s.referrals.Transition(ctx, referralID, from, models.ReferralStatusCancelled, reason, time.Now())
		if err != nil {
			return err
		}
		if previous.Status == models.ReferralStatusApproved {
			if err := s.affiliates.IncrementTotals(ctx, previous.AffiliateID, 0, -previous.CommissionEarned); err != nil {
				return err
			}
		}
		updated := *previous
		updated.Status = models.ReferralStatusCancelled
		updated.CancelReason = reason
		cancelled = &updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cancelled, nil
}

func (s *ReferralService) Get(ctx context.Context, referralID primitive.ObjectID) (*models.AffiliateReferral, error) {
	return s.referrals.FindByID(ctx, referralID)
}

// bumpCompetitions feeds the referral into every competition that is
// active right now and has this affiliate enrolled. Counter bumps are
// atomic per participant row; a failed bump only delays the leaderboard,
// never the referral.
func (s *ReferralService) bumpCompetitions(ctx context.Context, affiliateID primitive.ObjectID, saleAmount float64, now time.Time) {
	active, err := s.competitions.ListActive(ctx, now)
	if err != nil {
		log.Printf("Failed to list active competitions: %v", err)
		return
	}
	for _, competition := range active {
		if _, err := s.participants.IncrementActivity(ctx, competition.ID, affiliateID, saleAmount); err != nil {
			log.Printf("Failed to record competition activity for %s: %v", competition.ID.Hex(), err)
		}
	}
}
