package services

import (
	"context"
	"sync"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/craftora/affiliate_backend/models"
	"github.com/craftora/affiliate_backend/repositories"
)

type payoutFixture struct {
	stores     *repositories.MemoryStores
	affiliates *AffiliateService
	referrals  *ReferralService
	payouts    *PayoutService
	affiliate  *models.Affiliate
}

func newPayoutFixture(t *testing.T) *payoutFixture {
	t.Helper()
	stores := repositories.NewMemoryStores()
	f := &payoutFixture{
		stores:     stores,
		affiliates: newAffiliateService(stores),
		referrals:  NewReferralService(stores.Txn, stores.Referrals, stores.Affiliates, stores.Clicks, stores.Competitions, stores.Participants),
		payouts:    NewPayoutService(stores.Txn, stores.Payouts, stores.Referrals, stores.Affiliates),
	}
	affiliate, err := f.affiliates.Register(context.Background(), primitive.NewObjectID(), models.RegisterAffiliateRequest{
		PayoutMethod:  "bank_transfer",
		PayoutDetails: "IBAN123",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	f.affiliate = affiliate
	return f
}

// approvedReferral records a referral for the given sale amount and
// approves it, so its commission is payable.
func (f *payoutFixture) approvedReferral(t *testing.T, saleAmount float64) *models.AffiliateReferral {
	t.Helper()
	referral, err := f.referrals.Record(context.Background(), f.affiliate.ID, primitive.NewObjectID(), saleAmount, nil, "link")
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if _, err := f.referrals.Approve(context.Background(), referral.ID); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	return referral
}

func TestCreatePayoutBatchesApprovedReferrals(t *testing.T) {
	ctx := context.Background()
	f := newPayoutFixture(t)

	// 10 + 15 + 5 in commissions at the default 10% rate.
	f.approvedReferral(t, 100)
	f.approvedReferral(t, 150)
	f.approvedReferral(t, 50)

	// A pending referral must not be swept into the batch.
	if _, err := f.referrals.Record(ctx, f.affiliate.ID, primitive.NewObjectID(), 999, nil, "link"); err != nil {
		t.Fatalf("Record pending: %v", err)
	}

	payout, err := f.payouts.Create(ctx, f.affiliate.ID)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if payout.Amount != 30 {
		t.Errorf("amount = %v, want 30", payout.Amount)
	}
	if payout.Status != models.PayoutStatusPending {
		t.Errorf("status = %q, want pending", payout.Status)
	}
	if len(payout.ReferralIDs) != 3 {
		t.Errorf("batched referrals = %d, want 3", len(payout.ReferralIDs))
	}
	if payout.Reference == "" {
		t.Error("payout reference is empty")
	}

	// Everything payable is claimed now; a second payout has nothing left.
	if _, err := f.payouts.Create(ctx, f.affiliate.ID); !models.IsKind(err, models.KindInvalidInput) {
		t.Errorf("second Create err = %v, want invalid_input", err)
	}
}

func TestCreatePayoutWithNothingPayable(t *testing.T) {
	ctx := context.Background()
	f := newPayoutFixture(t)

	if _, err := f.payouts.Create(ctx, f.affiliate.ID); !models.IsKind(err, models.KindInvalidInput) {
		t.Errorf("err = %v, want invalid_input", err)
	}
	if _, err := f.payouts.Create(ctx, primitive.NewObjectID()); !models.IsKind(err, models.KindNotFound) {
		t.Errorf("unknown affiliate err = %v, want not_found", err)
	}
}

// TestConcurrentPayoutCreation checks a referral can never be claimed by
// two payouts.
func TestConcurrentPayoutCreation(t *testing.T) {
	ctx := context.Background()
	f := newPayoutFixture(t)

	for i := 0; i < 10; i++ {
		f.approvedReferral(t, 100)
	}

	const attempts = 8
	var wg sync.WaitGroup
	payouts := make([]*models.AffiliatePayout, attempts)
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			payouts[i], errs[i] = f.payouts.Create(ctx, f.affiliate.ID)
		}(i)
	}
	wg.Wait()

	claimed := map[primitive.ObjectID]bool{}
	succeeded := 0
	for i := 0; i < attempts; i++ {
		if errs[i] != nil {
			if !models.IsKind(errs[i], models.KindInvalidInput) {
				t.Errorf("unexpected Create err: %v", errs[i])
			}
			continue
		}
		succeeded++
		for _, id := range payouts[i].ReferralIDs {
			if claimed[id] {
				t.Errorf("referral %s claimed by two payouts", id.Hex())
			}
			claimed[id] = true
		}
	}
	if succeeded != 1 {
		t.Errorf("successful creations = %d, want exactly 1", succeeded)
	}
	if len(claimed) != 10 {
		t.Errorf("claimed referrals = %d, want 10", len(claimed))
	}
}

func TestPayoutLifecycleCompleted(t *testing.T) {
	ctx := context.Background()
	f := newPayoutFixture(t)
	referral := f.approvedReferral(t, 100)

	payout, err := f.payouts.Create(ctx, f.affiliate.ID)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Completing a pending payout skips the processing step.
	if _, err := f.payouts.MarkCompleted(ctx, payout.ID); !models.IsKind(err, models.KindIllegalTransition) {
		t.Errorf("complete pending err = %v, want illegal_transition", err)
	}

	processing, err := f.payouts.MarkProcessing(ctx, payout.ID)
	if err != nil {
		t.Fatalf("MarkProcessing: %v", err)
	}
	if processing.Status != models.PayoutStatusProcessing {
		t.Errorf("status = %q, want processing", processing.Status)
	}

	completed, err := f.payouts.MarkCompleted(ctx, payout.ID)
	if err != nil {
		t.Fatalf("MarkCompleted: %v", err)
	}
	if completed.Status != models.PayoutStatusCompleted {
		t.Errorf("status = %q, want completed", completed.Status)
	}
	if completed.ProcessedAt == nil {
		t.Error("processedAt not set")
	}

	paid, err := f.referrals.Get(ctx, referral.ID)
	if err != nil {
		t.Fatalf("Get referral: %v", err)
	}
	if paid.Status != models.ReferralStatusPaid {
		t.Errorf("referral status = %q, want paid", paid.Status)
	}

	// Completed is terminal.
	if _, err := f.payouts.MarkFailed(ctx, payout.ID, "late failure"); !models.IsKind(err, models.KindIllegalTransition) {
		t.Errorf("fail completed err = %v, want illegal_transition", err)
	}
}

// TestCancelClaimedReferralConflicts checks a referral swept into a live
// payout cannot be cancelled out from under it: the payout amount is fixed
// at claim time, so a cancel in the pending/processing window would pay a
// cancelled commission.
func TestCancelClaimedReferralConflicts(t *testing.T) {
	ctx := context.Background()
	f := newPayoutFixture(t)

	// 10 + 20 in commissions at the default 10% rate.
	f.approvedReferral(t, 100)
	referral := f.approvedReferral(t, 200)

	payout, err := f.payouts.Create(ctx, f.affiliate.ID)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if payout.Amount != 30 {
		t.Fatalf("amount = %v, want 30", payout.Amount)
	}

	if _, err := f.referrals.Cancel(ctx, referral.ID, "buyer returned order"); !models.IsKind(err, models.KindConflict) {
		t.Errorf("cancel claimed err = %v, want conflict", err)
	}
	if _, err := f.payouts.MarkProcessing(ctx, payout.ID); err != nil {
		t.Fatalf("MarkProcessing: %v", err)
	}
	if _, err := f.referrals.Cancel(ctx, referral.ID, "buyer returned order"); !models.IsKind(err, models.KindConflict) {
		t.Errorf("cancel while processing err = %v, want conflict", err)
	}

	// Completion pays exactly what was claimed, and both referrals land paid.
	completed, err := f.payouts.MarkCompleted(ctx, payout.ID)
	if err != nil {
		t.Fatalf("MarkCompleted: %v", err)
	}
	if completed.Amount != 30 {
		t.Errorf("completed amount = %v, want 30", completed.Amount)
	}
	paid, err := f.referrals.Get(ctx, referral.ID)
	if err != nil {
		t.Fatalf("Get referral: %v", err)
	}
	if paid.Status != models.ReferralStatusPaid {
		t.Errorf("referral status = %q, want paid", paid.Status)
	}
	affiliate, err := f.affiliates.GetByID(ctx, f.affiliate.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if affiliate.TotalEarnings != 30 {
		t.Errorf("totalEarnings = %v, want 30", affiliate.TotalEarnings)
	}
}

// TestCancelReleasedReferral checks a failed payout makes its referrals
// cancellable again.
func TestCancelReleasedReferral(t *testing.T) {
	ctx := context.Background()
	f := newPayoutFixture(t)
	referral := f.approvedReferral(t, 100)

	payout, err := f.payouts.Create(ctx, f.affiliate.ID)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := f.payouts.MarkProcessing(ctx, payout.ID); err != nil {
		t.Fatalf("MarkProcessing: %v", err)
	}
	if _, err := f.payouts.MarkFailed(ctx, payout.ID, "bank rejected transfer"); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}

	cancelled, err := f.referrals.Cancel(ctx, referral.ID, "buyer returned order")
	if err != nil {
		t.Fatalf("Cancel after release: %v", err)
	}
	if cancelled.Status != models.ReferralStatusCancelled {
		t.Errorf("status = %q, want cancelled", cancelled.Status)
	}
	affiliate, err := f.affiliates.GetByID(ctx, f.affiliate.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if affiliate.TotalEarnings != 0 {
		t.Errorf("totalEarnings = %v, want 0 after cancel debit", affiliate.TotalEarnings)
	}
}

func TestPayoutFailureReleasesClaim(t *testing.T) {
	ctx := context.Background()
	f := newPayoutFixture(t)
	referral := f.approvedReferral(t, 100)

	payout, err := f.payouts.Create(ctx, f.affiliate.ID)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := f.payouts.MarkProcessing(ctx, payout.ID); err != nil {
		t.Fatalf("MarkProcessing: %v", err)
	}

	failed, err := f.payouts.MarkFailed(ctx, payout.ID, "bank rejected transfer")
	if err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}
	if failed.Status != models.PayoutStatusFailed {
		t.Errorf("status = %q, want failed", failed.Status)
	}
	if failed.FailReason != "bank rejected transfer" {
		t.Errorf("failReason = %q", failed.FailReason)
	}

	// The referral is approved and unclaimed again, so a fresh payout can
	// batch it.
	released, err := f.referrals.Get(ctx, referral.ID)
	if err != nil {
		t.Fatalf("Get referral: %v", err)
	}
	if released.Status != models.ReferralStatusApproved || released.PayoutID != nil {
		t.Errorf("referral = %q claimed=%v, want approved and unclaimed", released.Status, released.PayoutID != nil)
	}

	retry, err := f.payouts.Create(ctx, f.affiliate.ID)
	if err != nil {
		t.Fatalf("Create retry: %v", err)
	}
	if retry.Amount != 10 {
		t.Errorf("retry amount = %v, want 10", retry.Amount)
	}
	if retry.ID == payout.ID {
		t.Error("retry reused the failed payout row")
	}
}
