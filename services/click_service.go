package services

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/craftora/affiliate_backend/models"
	"github.com/craftora/affiliate_backend/repositories"
)

// ClickService records inbound affiliate-tagged visits and their
// conversion.
type ClickService struct {
	clicks     repositories.ClickRepository
	affiliates repositories.AffiliateRepository
}

func NewClickService(clicks repositories.ClickRepository, affiliates repositories.AffiliateRepository) *ClickService {
	return &ClickService{clicks: clicks, affiliates: affiliates}
}

// RecordClick resolves the affiliate code and stores one visit row. Codes
// belonging to suspended or inactive affiliates are rejected the same way
// as unknown codes.
func (s *ClickService) RecordClick(ctx context.Context, req models.RecordClickRequest, ipAddress, userAgent string) (*models.AffiliateClick, error) {
	affiliate, err := s.affiliates.FindByCode(ctx, req.AffiliateCode)
	if err != nil || affiliate.Status != models.AffiliateStatusActive {
		return nil, models.NotFoundf("unknown or inactive affiliate code")
	}

	click := &models.AffiliateClick{
		AffiliateID: affiliate.ID,
		IPAddress:   ipAddress,
		UserAgent:   userAgent,
		Referrer:    req.Referrer,
		LandingPage: req.LandingPage,
		Converted:   false,
		CreatedAt:   time.Now(),
	}
	if req.ProductID != "" {
		productID, err := primitive.ObjectIDFromHex(req.ProductID)
		if err != nil {
			return nil, models.InvalidInputf("invalid product id")
		}
		click.ProductID = &productID
	}
	if err := s.clicks.Insert(ctx, click); err != nil {
		return nil, err
	}
	return click, nil
}

// MarkConverted flips the click's write-once converted flag. A second call
// on an already-converted click returns the click unchanged.
func (s *ClickService) MarkConverted(ctx context.Context, clickID primitive.ObjectID) (*models.AffiliateClick, error) {
	click, _, err := s.clicks.ConvertOnce(ctx, clickID, time.Now())
	return click, err
}
