package services

import (
	"context"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/craftora/affiliate_backend/models"
	"github.com/craftora/affiliate_backend/repositories"
)

func TestRecordClick(t *testing.T) {
	ctx := context.Background()
	stores := repositories.NewMemoryStores()
	affiliates := newAffiliateService(stores)
	clicks := NewClickService(stores.Clicks, stores.Affiliates)

	affiliate, err := affiliates.Register(ctx, primitive.NewObjectID(), models.RegisterAffiliateRequest{
		PayoutMethod:  "paypal",
		PayoutDetails: "user@test",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	click, err := clicks.RecordClick(ctx, models.RecordClickRequest{
		AffiliateCode: affiliate.AffiliateCode,
		LandingPage:   "/products/42",
	}, "10.0.0.1", "test-agent")
	if err != nil {
		t.Fatalf("RecordClick: %v", err)
	}
	if click.AffiliateID != affiliate.ID {
		t.Errorf("affiliateId = %s, want %s", click.AffiliateID.Hex(), affiliate.ID.Hex())
	}
	if click.Converted {
		t.Error("new click already converted")
	}

	if _, err := clicks.RecordClick(ctx, models.RecordClickRequest{
		AffiliateCode: "AFF-NOSUCH",
	}, "10.0.0.1", "test-agent"); !models.IsKind(err, models.KindNotFound) {
		t.Errorf("unknown code err = %v, want not_found", err)
	}

	// Suspended affiliates look the same as unknown codes to the public
	// endpoint.
	if _, err := affiliates.Suspend(ctx, affiliate.ID, "spam", "admin1"); err != nil {
		t.Fatalf("Suspend: %v", err)
	}
	if _, err := clicks.RecordClick(ctx, models.RecordClickRequest{
		AffiliateCode: affiliate.AffiliateCode,
	}, "10.0.0.1", "test-agent"); !models.IsKind(err, models.KindNotFound) {
		t.Errorf("suspended code err = %v, want not_found", err)
	}
}

func TestMarkConvertedIsWriteOnce(t *testing.T) {
	ctx := context.Background()
	stores := repositories.NewMemoryStores()
	affiliates := newAffiliateService(stores)
	clicks := NewClickService(stores.Clicks, stores.Affiliates)

	affiliate, err := affiliates.Register(ctx, primitive.NewObjectID(), models.RegisterAffiliateRequest{
		PayoutMethod:  "paypal",
		PayoutDetails: "user@test",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	click, err := clicks.RecordClick(ctx, models.RecordClickRequest{
		AffiliateCode: affiliate.AffiliateCode,
	}, "10.0.0.1", "test-agent")
	if err != nil {
		t.Fatalf("RecordClick: %v", err)
	}

	converted, err := clicks.MarkConverted(ctx, click.ID)
	if err != nil {
		t.Fatalf("MarkConverted: %v", err)
	}
	if !converted.Converted || converted.ConvertedAt == nil {
		t.Errorf("click = %+v, want converted with timestamp", converted)
	}
	firstConvertedAt := *converted.ConvertedAt

	// Replay keeps the original conversion timestamp.
	again, err := clicks.MarkConverted(ctx, click.ID)
	if err != nil {
		t.Fatalf("second MarkConverted: %v", err)
	}
	if !again.ConvertedAt.Equal(firstConvertedAt) {
		t.Errorf("convertedAt changed on replay: %v vs %v", again.ConvertedAt, firstConvertedAt)
	}

	if _, err := clicks.MarkConverted(ctx, primitive.NewObjectID()); !models.IsKind(err, models.KindNotFound) {
		t.Errorf("unknown click err = %v, want not_found", err)
	}
}
