package services

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/craftora/affiliate_backend/models"
	"github.com/craftora/affiliate_backend/repositories"
)

type referralFixture struct {
	stores     *repositories.MemoryStores
	affiliates *AffiliateService
	referrals  *ReferralService
	affiliate  *models.Affiliate
}

func newReferralFixture(t *testing.T) *referralFixture {
	t.Helper()
	stores := repositories.NewMemoryStores()
	affiliates := newAffiliateService(stores)
	referrals := NewReferralService(stores.Txn, stores.Referrals, stores.Affiliates, stores.Clicks, stores.Competitions, stores.Participants)

	affiliate, err := affiliates.Register(context.Background(), primitive.NewObjectID(), models.RegisterAffiliateRequest{
		PayoutMethod:  "paypal",
		PayoutDetails: "user@test",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	return &referralFixture{stores: stores, affiliates: affiliates, referrals: referrals, affiliate: affiliate}
}

func TestRecordReferral(t *testing.T) {
	ctx := context.Background()
	f := newReferralFixture(t)

	referral, err := f.referrals.Record(ctx, f.affiliate.ID, primitive.NewObjectID(), 250, nil, "link")
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if referral.Status != models.ReferralStatusPending {
		t.Errorf("status = %q, want pending", referral.Status)
	}
	if referral.CommissionEarned != 25 {
		t.Errorf("commission = %v, want 25", referral.CommissionEarned)
	}

	// Pending referrals count toward totalReferrals but not earnings.
	current, err := f.affiliates.GetByID(ctx, f.affiliate.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if current.TotalReferrals != 1 {
		t.Errorf("totalReferrals = %d, want 1", current.TotalReferrals)
	}
	if current.TotalEarnings != 0 {
		t.Errorf("totalEarnings = %v, want 0", current.TotalEarnings)
	}
}

func TestRecordReferralRejectsNonPositiveAmount(t *testing.T) {
	ctx := context.Background()
	f := newReferralFixture(t)

	for _, amount := range []float64{0, -10} {
		_, err := f.referrals.Record(ctx, f.affiliate.ID, primitive.NewObjectID(), amount, nil, "link")
		if !models.IsKind(err, models.KindInvalidInput) {
			t.Errorf("Record(%v) err = %v, want invalid_input", amount, err)
		}
	}
}

func TestRecordReferralRequiresActiveAffiliate(t *testing.T) {
	ctx := context.Background()
	f := newReferralFixture(t)

	if _, err := f.affiliates.Suspend(ctx, f.affiliate.ID, "tos violation", "admin1"); err != nil {
		t.Fatalf("Suspend: %v", err)
	}
	_, err := f.referrals.Record(ctx, f.affiliate.ID, primitive.NewObjectID(), 100, nil, "link")
	if !models.IsKind(err, models.KindConflict) {
		t.Errorf("err = %v, want conflict", err)
	}
}

func TestApproveCreditsEarnings(t *testing.T) {
	ctx := context.Background()
	f := newReferralFixture(t)

	referral, err := f.referrals.Record(ctx, f.affiliate.ID, primitive.NewObjectID(), 100, nil, "link")
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	approved, err := f.referrals.Approve(ctx, referral.ID)
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if approved.Status != models.ReferralStatusApproved {
		t.Errorf("status = %q, want approved", approved.Status)
	}

	current, _ := f.affiliates.GetByID(ctx, f.affiliate.ID)
	if current.TotalEarnings != 10 {
		t.Errorf("totalEarnings = %v, want 10", current.TotalEarnings)
	}

	// Approve is not idempotent: the second call must fail without
	// crediting twice.
	if _, err := f.referrals.Approve(ctx, referral.ID); !models.IsKind(err, models.KindIllegalTransition) {
		t.Errorf("second Approve err = %v, want illegal_transition", err)
	}
	current, _ = f.affiliates.GetByID(ctx, f.affiliate.ID)
	if current.TotalEarnings != 10 {
		t.Errorf("totalEarnings after repeat approve = %v, want 10", current.TotalEarnings)
	}
}

func TestCancelDebitsOnlyApprovedReferrals(t *testing.T) {
	ctx := context.Background()
	f := newReferralFixture(t)

	// Cancelling a pending referral never touches earnings.
	pending, _ := f.referrals.Record(ctx, f.affiliate.ID, primitive.NewObjectID(), 100, nil, "link")
	if _, err := f.referrals.Cancel(ctx, pending.ID, "order returned"); err != nil {
		t.Fatalf("Cancel pending: %v", err)
	}
	current, _ := f.affiliates.GetByID(ctx, f.affiliate.ID)
	if current.TotalEarnings != 0 {
		t.Errorf("totalEarnings = %v, want 0", current.TotalEarnings)
	}

	// Cancelling an approved referral reverses the credit.
	approved, _ := f.referrals.Record(ctx, f.affiliate.ID, primitive.NewObjectID(), 100, nil, "link")
	if _, err := f.referrals.Approve(ctx, approved.ID); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	cancelled, err := f.referrals.Cancel(ctx, approved.ID, "chargeback")
	if err != nil {
		t.Fatalf("Cancel approved: %v", err)
	}
	if cancelled.CancelReason != "chargeback" {
		t.Errorf("cancelReason = %q", cancelled.CancelReason)
	}
	current, _ = f.affiliates.GetByID(ctx, f.affiliate.ID)
	if current.TotalEarnings != 0 {
		t.Errorf("totalEarnings after reversal = %v, want 0", current.TotalEarnings)
	}

	// Cancelled is terminal.
	if _, err := f.referrals.Cancel(ctx, approved.ID, "again"); !models.IsKind(err, models.KindIllegalTransition) {
		t.Errorf("second Cancel err = %v, want illegal_transition", err)
	}
}

func TestRecordSaleResolvesCodeAndConvertsClick(t *testing.T) {
	ctx := context.Background()
	f := newReferralFixture(t)
	clicks := NewClickService(f.stores.Clicks, f.stores.Affiliates)

	click, err := clicks.RecordClick(ctx, models.RecordClickRequest{
		AffiliateCode: f.affiliate.AffiliateCode,
	}, "10.0.0.1", "test-agent")
	if err != nil {
		t.Fatalf("RecordClick: %v", err)
	}

	referral, err := f.referrals.RecordSale(ctx, models.SaleCompletedEvent{
		BuyerID:           primitive.NewObjectID().Hex(),
		SaleAmount:        80,
		AffiliateCodeUsed: f.affiliate.AffiliateCode,
		ClickID:           click.ID.Hex(),
	})
	if err != nil {
		t.Fatalf("RecordSale: %v", err)
	}
	if referral.ReferralSource != "sale" {
		t.Errorf("source = %q, want sale", referral.ReferralSource)
	}
	if referral.CommissionEarned != 8 {
		t.Errorf("commission = %v, want 8", referral.CommissionEarned)
	}

	converted, err := f.stores.Clicks.FindByID(ctx, click.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if !converted.Converted {
		t.Error("click not converted after sale")
	}

	_, err = f.referrals.RecordSale(ctx, models.SaleCompletedEvent{
		BuyerID:           primitive.NewObjectID().Hex(),
		SaleAmount:        80,
		AffiliateCodeUsed: "AFF-NOSUCH",
	})
	if !models.IsKind(err, models.KindNotFound) {
		t.Errorf("unknown code err = %v, want not_found", err)
	}
}

// TestEarningsConservation drives a random record/approve/cancel sequence
// and checks the cached counter still equals the sum over approved rows.
func TestEarningsConservation(t *testing.T) {
	ctx := context.Background()
	f := newReferralFixture(t)
	rng := rand.New(rand.NewSource(42))

	var pending, approved []primitive.ObjectID
	for i := 0; i < 500; i++ {
		switch op := rng.Intn(4); {
		case op <= 1: // record
			amount := float64(rng.Intn(100000)+1) / 100
			referral, err := f.referrals.Record(ctx, f.affiliate.ID, primitive.NewObjectID(), amount, nil, "link")
			if err != nil {
				t.Fatalf("Record: %v", err)
			}
			pending = append(pending, referral.ID)
		case op == 2 && len(pending) > 0: // approve
			idx := rng.Intn(len(pending))
			id := pending[idx]
			pending = append(pending[:idx], pending[idx+1:]...)
			if _, err := f.referrals.Approve(ctx, id); err != nil {
				t.Fatalf("Approve: %v", err)
			}
			approved = append(approved, id)
		case op == 3 && len(approved) > 0: // cancel an approved one
			idx := rng.Intn(len(approved))
			id := approved[idx]
			approved = append(approved[:idx], approved[idx+1:]...)
			if _, err := f.referrals.Cancel(ctx, id, "reversal"); err != nil {
				t.Fatalf("Cancel: %v", err)
			}
		}
	}

	current, err := f.affiliates.GetByID(ctx, f.affiliate.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	derived, err := f.stores.Referrals.SumCommission(ctx, f.affiliate.ID, []string{models.ReferralStatusApproved, models.ReferralStatusPaid})
	if err != nil {
		t.Fatalf("SumCommission: %v", err)
	}
	if math.Abs(current.TotalEarnings-derived) > 1e-6 {
		t.Errorf("totalEarnings = %v, sum over approved+paid = %v", current.TotalEarnings, derived)
	}
}

// TestConcurrentRecords checks counter increments never lose updates when
// sales land concurrently.
func TestConcurrentRecords(t *testing.T) {
	ctx := context.Background()
	f := newReferralFixture(t)

	const workers = 20
	const perWorker = 10

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				if _, err := f.referrals.Record(ctx, f.affiliate.ID, primitive.NewObjectID(), 50, nil, "link"); err != nil {
					t.Errorf("Record: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	current, err := f.affiliates.GetByID(ctx, f.affiliate.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if current.TotalReferrals != workers*perWorker {
		t.Errorf("totalReferrals = %d, want %d", current.TotalReferrals, workers*perWorker)
	}
}

func TestReferralFeedsActiveCompetitions(t *testing.T) {
	ctx := context.Background()
	f := newReferralFixture(t)

	now := time.Now()
	competition := &models.AffiliateCompetition{
		Name:      "Summer Sprint",
		StartDate: now.Add(-time.Hour),
		EndDate:   now.Add(time.Hour),
		PrizePool: 1000,
		Rules:     models.DefaultPrizeSplitRules(),
	}
	if err := f.stores.Competitions.Insert(ctx, competition); err != nil {
		t.Fatalf("Insert competition: %v", err)
	}
	if err := f.stores.Participants.Insert(ctx, &models.CompetitionParticipant{
		CompetitionID: competition.ID,
		AffiliateID:   f.affiliate.ID,
		JoinedAt:      now,
	}); err != nil {
		t.Fatalf("Insert participant: %v", err)
	}

	if _, err := f.referrals.Record(ctx, f.affiliate.ID, primitive.NewObjectID(), 120, nil, "link"); err != nil {
		t.Fatalf("Record: %v", err)
	}

	participant, err := f.stores.Participants.Find(ctx, competition.ID, f.affiliate.ID)
	if err != nil {
		t.Fatalf("Find participant: %v", err)
	}
	if participant.SalesCount != 1 || participant.TotalRevenue != 120 {
		t.Errorf("participant = %d sales / %v revenue, want 1 / 120", participant.SalesCount, participant.TotalRevenue)
	}
}
