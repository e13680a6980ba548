package services

import (
	"context"
	"strings"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/craftora/affiliate_backend/models"
	"github.com/craftora/affiliate_backend/repositories"
)

func newAffiliateService(stores *repositories.MemoryStores) *AffiliateService {
	return NewAffiliateService(stores.Affiliates, stores.Referrals, stores.Audit, 0.10, "https://shop.test")
}

func TestRegisterAffiliate(t *testing.T) {
	ctx := context.Background()
	stores := repositories.NewMemoryStores()
	svc := newAffiliateService(stores)

	userID := primitive.NewObjectID()
	affiliate, err := svc.Register(ctx, userID, models.RegisterAffiliateRequest{
		PayoutMethod:  "bank_transfer",
		PayoutDetails: "IBAN123",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if affiliate.CommissionRate != 0.10 {
		t.Errorf("default rate = %v, want 0.10", affiliate.CommissionRate)
	}
	if affiliate.Status != models.AffiliateStatusActive {
		t.Errorf("status = %q, want active", affiliate.Status)
	}
	if !strings.HasPrefix(affiliate.AffiliateCode, "AFF-") {
		t.Errorf("code = %q, want AFF- prefix", affiliate.AffiliateCode)
	}

	// Second enrollment for the same user collides on the userId index.
	_, err = svc.Register(ctx, userID, models.RegisterAffiliateRequest{
		PayoutMethod:  "paypal",
		PayoutDetails: "user@test",
	})
	if !models.IsKind(err, models.KindConflict) {
		t.Errorf("second Register err = %v, want conflict", err)
	}
}

func TestRegisterAffiliateRejectsBadRate(t *testing.T) {
	ctx := context.Background()
	svc := newAffiliateService(repositories.NewMemoryStores())

	badRate := 1.5
	_, err := svc.Register(ctx, primitive.NewObjectID(), models.RegisterAffiliateRequest{
		PayoutMethod:   "paypal",
		PayoutDetails:  "user@test",
		CommissionRate: &badRate,
	})
	if !models.IsKind(err, models.KindInvalidInput) {
		t.Errorf("err = %v, want invalid_input", err)
	}
}

func TestSuspendAndReactivate(t *testing.T) {
	ctx := context.Background()
	stores := repositories.NewMemoryStores()
	svc := newAffiliateService(stores)

	affiliate, err := svc.Register(ctx, primitive.NewObjectID(), models.RegisterAffiliateRequest{
		PayoutMethod:  "paypal",
		PayoutDetails: "user@test",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	suspended, err := svc.Suspend(ctx, affiliate.ID, "fraud review", "admin1")
	if err != nil {
		t.Fatalf("Suspend: %v", err)
	}
	if suspended.Status != models.AffiliateStatusSuspended {
		t.Errorf("status = %q, want suspended", suspended.Status)
	}

	// Suspending again is a no-op, not an error.
	again, err := svc.Suspend(ctx, affiliate.ID, "fraud review", "admin1")
	if err != nil {
		t.Fatalf("second Suspend: %v", err)
	}
	if again.Status != models.AffiliateStatusSuspended {
		t.Errorf("status after repeat suspend = %q", again.Status)
	}

	reactivated, err := svc.Reactivate(ctx, affiliate.ID, "admin1")
	if err != nil {
		t.Fatalf("Reactivate: %v", err)
	}
	if reactivated.Status != models.AffiliateStatusActive {
		t.Errorf("status = %q, want active", reactivated.Status)
	}

	if len(stores.Audit.Entries) < 3 {
		t.Errorf("audit entries = %d, want register + suspend + reactivate", len(stores.Audit.Entries))
	}
}

func TestAdjustRateDoesNotTouchExistingReferrals(t *testing.T) {
	ctx := context.Background()
	stores := repositories.NewMemoryStores()
	svc := newAffiliateService(stores)
	referralSvc := NewReferralService(stores.Txn, stores.Referrals, stores.Affiliates, stores.Clicks, stores.Competitions, stores.Participants)

	affiliate, err := svc.Register(ctx, primitive.NewObjectID(), models.RegisterAffiliateRequest{
		PayoutMethod:  "paypal",
		PayoutDetails: "user@test",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	referral, err := referralSvc.Record(ctx, affiliate.ID, primitive.NewObjectID(), 100, nil, "link")
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if referral.CommissionEarned != 10 {
		t.Fatalf("commission = %v, want 10", referral.CommissionEarned)
	}

	if _, err := svc.AdjustRate(ctx, affiliate.ID, 0.25, "admin1"); err != nil {
		t.Fatalf("AdjustRate: %v", err)
	}

	// Old referral keeps its snapshot; new referrals use the new rate.
	unchanged, err := referralSvc.Get(ctx, referral.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if unchanged.CommissionEarned != 10 {
		t.Errorf("existing commission = %v, want 10", unchanged.CommissionEarned)
	}
	fresh, err := referralSvc.Record(ctx, affiliate.ID, primitive.NewObjectID(), 100, nil, "link")
	if err != nil {
		t.Fatalf("Record after rate change: %v", err)
	}
	if fresh.CommissionEarned != 25 {
		t.Errorf("new commission = %v, want 25", fresh.CommissionEarned)
	}

	if _, err := svc.AdjustRate(ctx, affiliate.ID, -0.1, "admin1"); !models.IsKind(err, models.KindInvalidInput) {
		t.Errorf("negative rate err = %v, want invalid_input", err)
	}
}

func TestReconcileTotals(t *testing.T) {
	ctx := context.Background()
	stores := repositories.NewMemoryStores()
	svc := newAffiliateService(stores)
	referralSvc := NewReferralService(stores.Txn, stores.Referrals, stores.Affiliates, stores.Clicks, stores.Competitions, stores.Participants)

	affiliate, err := svc.Register(ctx, primitive.NewObjectID(), models.RegisterAffiliateRequest{
		PayoutMethod:  "paypal",
		PayoutDetails: "user@test",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	for i := 0; i < 3; i++ {
		referral, err := referralSvc.Record(ctx, affiliate.ID, primitive.NewObjectID(), 100, nil, "link")
		if err != nil {
			t.Fatalf("Record: %v", err)
		}
		if _, err := referralSvc.Approve(ctx, referral.ID); err != nil {
			t.Fatalf("Approve: %v", err)
		}
	}

	cached, derived, err := svc.ReconcileTotals(ctx, affiliate.ID)
	if err != nil {
		t.Fatalf("ReconcileTotals: %v", err)
	}
	if cached != 30 || derived != 30 {
		t.Errorf("cached = %v, derived = %v, want 30 each", cached, derived)
	}
}

func TestDashboard(t *testing.T) {
	ctx := context.Background()
	stores := repositories.NewMemoryStores()
	svc := newAffiliateService(stores)

	userID := primitive.NewObjectID()
	affiliate, err := svc.Register(ctx, userID, models.RegisterAffiliateRequest{
		PayoutMethod:  "paypal",
		PayoutDetails: "user@test",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	dashboard, err := svc.Dashboard(ctx, userID)
	if err != nil {
		t.Fatalf("Dashboard: %v", err)
	}
	if dashboard.AffiliateCode != affiliate.AffiliateCode {
		t.Errorf("code = %q, want %q", dashboard.AffiliateCode, affiliate.AffiliateCode)
	}
	if !strings.Contains(dashboard.ReferralLink, "?ref="+affiliate.AffiliateCode) {
		t.Errorf("link = %q, want ref query param", dashboard.ReferralLink)
	}

	if _, err := svc.Dashboard(ctx, primitive.NewObjectID()); !models.IsKind(err, models.KindNotFound) {
		t.Errorf("unknown user err = %v, want not_found", err)
	}
}
