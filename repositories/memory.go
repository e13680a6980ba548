package repositories

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/craftora/affiliate_backend/models"
)

// MemoryStores is an in-memory implementation of every repository with the
// same uniqueness and compare-and-set semantics as the Mongo layer. It backs
// the service test suite.
type MemoryStores struct {
	Txn          *MemoryTxnRunner
	Affiliates   *MemoryAffiliateRepository
	Clicks       *MemoryClickRepository
	Referrals    *MemoryReferralRepository
	Competitions *MemoryCompetitionRepository
	Participants *MemoryParticipantRepository
	Payouts      *MemoryPayoutRepository
	Audit        *MemoryAuditRepository
}

func NewMemoryStores() *MemoryStores {
	return &MemoryStores{
		Txn:          &MemoryTxnRunner{},
		Affiliates:   &MemoryAffiliateRepository{rows: map[primitive.ObjectID]models.Affiliate{}},
		Clicks:       &MemoryClickRepository{rows: map[primitive.ObjectID]models.AffiliateClick{}},
		Referrals:    &MemoryReferralRepository{rows: map[primitive.ObjectID]models.AffiliateReferral{}},
		Competitions: &MemoryCompetitionRepository{rows: map[primitive.ObjectID]models.AffiliateCompetition{}},
		Participants: &MemoryParticipantRepository{rows: map[primitive.ObjectID]models.CompetitionParticipant{}},
		Payouts:      &MemoryPayoutRepository{rows: map[primitive.ObjectID]models.AffiliatePayout{}},
		Audit:        &MemoryAuditRepository{},
	}
}

// MemoryTxnRunner serializes transactional units under one lock.
type MemoryTxnRunner struct {
	mu sync.Mutex
}

func (r *MemoryTxnRunner) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn(ctx)
}

type MemoryAffiliateRepository struct {
	mu   sync.Mutex
	rows map[primitive.ObjectID]models.Affiliate
}

func (r *MemoryAffiliateRepository) Insert(_ context.Context, affiliate *models.Affiliate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.UserID == affiliate.UserID {
			return models.Conflictf("user is already registered as an affiliate")
		}
		if row.AffiliateCode == affiliate.AffiliateCode {
			return models.Conflictf("affiliate code already in use")
		}
	}
	if affiliate.ID.IsZero() {
		affiliate.ID = primitive.NewObjectID()
	}
	r.rows[affiliate.ID] = *affiliate
	return nil
}

func (r *MemoryAffiliateRepository) FindByID(_ context.Context, id primitive.ObjectID) (*models.Affiliate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return nil, models.NotFoundf("affiliate not found")
	}
	return &row, nil
}

func (r *MemoryAffiliateRepository) FindByUserID(_ context.Context, userID primitive.ObjectID) (*models.Affiliate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.UserID == userID {
			match := row
			return &match, nil
		}
	}
	return nil, models.NotFoundf("affiliate not found")
}

func (r *MemoryAffiliateRepository) FindByCode(_ context.Context, code string) (*models.Affiliate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.AffiliateCode == code {
			match := row
			return &match, nil
		}
	}
	return nil, models.NotFoundf("affiliate not found")
}

func (r *MemoryAffiliateRepository) SetStatus(_ context.Context, id primitive.ObjectID, status, reason string) (*models.Affiliate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return nil, models.NotFoundf("affiliate not found")
	}
	row.Status = status
	row.SuspendReason = reason
	row.UpdatedAt = time.Now()
	r.rows[id] = row
	return &row, nil
}

func (r *MemoryAffiliateRepository) SetRate(_ context.Context, id primitive.ObjectID, rate float64) (*models.Affiliate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return nil, models.NotFoundf("affiliate not found")
	}
	row.CommissionRate = rate
	row.UpdatedAt = time.Now()
	r.rows[id] = row
	return &row, nil
}

func (r *MemoryAffiliateRepository) IncrementTotals(_ context.Context, id primitive.ObjectID, referrals int, earnings float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return models.NotFoundf("affiliate not found")
	}
	row.TotalReferrals += referrals
	row.TotalEarnings += earnings
	row.UpdatedAt = time.Now()
	r.rows[id] = row
	return nil
}

type MemoryClickRepository struct {
	mu   sync.Mutex
	rows map[primitive.ObjectID]models.AffiliateClick
}

func (r *MemoryClickRepository) Insert(_ context.Context, click *models.AffiliateClick) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if click.ID.IsZero() {
		click.ID = primitive.NewObjectID()
	}
	r.rows[click.ID] = *click
	return nil
}

func (r *MemoryClickRepository) FindByID(_ context.Context, id primitive.ObjectID) (*models.AffiliateClick, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return nil, models.NotFoundf("click not found")
	}
	return &row, nil
}

func (r *MemoryClickRepository) ConvertOnce(_ context.Context, id primitive.ObjectID, at time.Time) (*models.AffiliateClick, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return nil, false, models.NotFoundf("click not found")
	}
	if row.Converted {
		return &row, true, nil
	}
	row.Converted = true
	row.ConvertedAt = &at
	r.rows[id] = row
	return &row, false, nil
}

type MemoryReferralRepository struct {
	mu   sync.Mutex
	rows map[primitive.ObjectID]models.AffiliateReferral
}

func (r *MemoryReferralRepository) Insert(_ context.Context, referral *models.AffiliateReferral) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if referral.ID.IsZero() {
		referral.ID = primitive.NewObjectID()
	}
	r.rows[referral.ID] = *referral
	return nil
}

func (r *MemoryReferralRepository) FindByID(_ context.Context, id primitive.ObjectID) (*models.AffiliateReferral, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return nil, models.NotFoundf("referral not found")
	}
	return &row, nil
}

func (r *MemoryReferralRepository) Transition(_ context.Context, id primitive.ObjectID, from []string, to, reason string, at time.Time) (*models.AffiliateReferral, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return nil, models.NotFoundf("referral not found")
	}
	allowed := false
	for _, status := range from {
		if row.Status == status {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, models.IllegalTransitionf("referral is %s, expected %s", row.Status, strings.Join(from, " or "))
	}
	if row.PayoutID != nil {
		return nil, models.Conflictf("referral is claimed by a payout")
	}
	previous := row
	row.Status = to
	if reason != "" {
		row.CancelReason = reason
	}
	row.UpdatedAt = at
	r.rows[id] = row
	return &previous, nil
}

func (r *MemoryReferralRepository) ClaimForPayout(_ context.Context, affiliateID, payoutID primitive.ObjectID, at time.Time) ([]models.AffiliateReferral, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var claimed []models.AffiliateReferral
	for id, row := range r.rows {
		if row.AffiliateID == affiliateID && row.Status == models.ReferralStatusApproved && row.PayoutID == nil {
			pid := payoutID
			row.PayoutID = &pid
			row.UpdatedAt = at
			r.rows[id] = row
			claimed = append(claimed, row)
		}
	}
	return claimed, nil
}

func (r *MemoryReferralRepository) MarkPaid(_ context.Context, payoutID primitive.ObjectID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, row := range r.rows {
		if row.PayoutID != nil && *row.PayoutID == payoutID && row.Status == models.ReferralStatusApproved {
			row.Status = models.ReferralStatusPaid
			row.UpdatedAt = at
			r.rows[id] = row
		}
	}
	return nil
}

func (r *MemoryReferralRepository) ReleaseClaim(_ context.Context, payoutID primitive.ObjectID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, row := range r.rows {
		if row.PayoutID != nil && *row.PayoutID == payoutID {
			row.PayoutID = nil
			row.UpdatedAt = at
			r.rows[id] = row
		}
	}
	return nil
}

func (r *MemoryReferralRepository) SumCommission(_ context.Context, affiliateID primitive.ObjectID, statuses []string) (float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := 0.0
	for _, row := range r.rows {
		if row.AffiliateID != affiliateID {
			continue
		}
		for _, status := range statuses {
			if row.Status == status {
				total += row.CommissionEarned
				break
			}
		}
	}
	return total, nil
}

type MemoryCompetitionRepository struct {
	mu   sync.Mutex
	rows map[primitive.ObjectID]models.AffiliateCompetition
}

func (r *MemoryCompetitionRepository) Insert(_ context.Context, competition *models.AffiliateCompetition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if competition.ID.IsZero() {
		competition.ID = primitive.NewObjectID()
	}
	r.rows[competition.ID] = *competition
	return nil
}

func (r *MemoryCompetitionRepository) FindByID(_ context.Context, id primitive.ObjectID) (*models.AffiliateCompetition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return nil, models.NotFoundf("competition not found")
	}
	return &row, nil
}

func (r *MemoryCompetitionRepository) List(_ context.Context) ([]models.AffiliateCompetition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.AffiliateCompetition, 0, len(r.rows))
	for _, row := range r.rows {
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.After(out[j].StartDate) })
	return out, nil
}

func (r *MemoryCompetitionRepository) ListActive(_ context.Context, now time.Time) ([]models.AffiliateCompetition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.AffiliateCompetition
	for _, row := range r.rows {
		if !row.Cancelled && !now.Before(row.StartDate) && now.Before(row.EndDate) {
			out = append(out, row)
		}
	}
	return out, nil
}

func (r *MemoryCompetitionRepository) Cancel(_ context.Context, id primitive.ObjectID, at time.Time) (*models.AffiliateCompetition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return nil, models.NotFoundf("competition not found")
	}
	if !row.Cancelled {
		row.Cancelled = true
		row.CancelledAt = &at
		row.UpdatedAt = at
		r.rows[id] = row
	}
	return &row, nil
}

func (r *MemoryCompetitionRepository) MarkSettled(_ context.Context, id primitive.ObjectID, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return false, models.NotFoundf("competition not found")
	}
	if row.Settled {
		return false, nil
	}
	row.Settled = true
	row.SettledAt = &at
	row.UpdatedAt = at
	r.rows[id] = row
	return true, nil
}

type MemoryParticipantRepository struct {
	mu   sync.Mutex
	rows map[primitive.ObjectID]models.CompetitionParticipant
}

func (r *MemoryParticipantRepository) Insert(_ context.Context, participant *models.CompetitionParticipant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.CompetitionID == participant.CompetitionID && row.AffiliateID == participant.AffiliateID {
			return models.Conflictf("affiliate already joined this competition")
		}
	}
	if participant.ID.IsZero() {
		participant.ID = primitive.NewObjectID()
	}
	r.rows[participant.ID] = *participant
	return nil
}

func (r *MemoryParticipantRepository) Find(_ context.Context, competitionID, affiliateID primitive.ObjectID) (*models.CompetitionParticipant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.CompetitionID == competitionID && row.AffiliateID == affiliateID {
			match := row
			return &match, nil
		}
	}
	return nil, models.NotFoundf("participant not found")
}

func (r *MemoryParticipantRepository) IncrementActivity(_ context.Context, competitionID, affiliateID primitive.ObjectID, revenue float64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, row := range r.rows {
		if row.CompetitionID == competitionID && row.AffiliateID == affiliateID {
			row.SalesCount++
			row.TotalRevenue += revenue
			r.rows[id] = row
			return true, nil
		}
	}
	return false, nil
}

func (r *MemoryParticipantRepository) ListRanked(_ context.Context, competitionID primitive.ObjectID, skip, limit int64) ([]models.CompetitionParticipant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.CompetitionParticipant
	for _, row := range r.rows {
		if row.CompetitionID == competitionID {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalRevenue != out[j].TotalRevenue {
			return out[i].TotalRevenue > out[j].TotalRevenue
		}
		if out[i].SalesCount != out[j].SalesCount {
			return out[i].SalesCount > out[j].SalesCount
		}
		return out[i].JoinedAt.Before(out[j].JoinedAt)
	})
	if skip >= int64(len(out)) {
		return nil, nil
	}
	out = out[skip:]
	if limit > 0 && int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryParticipantRepository) SetPrize(_ context.Context, id primitive.ObjectID, rank int, prize float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return models.NotFoundf("participant not found")
	}
	row.Rank = rank
	row.PrizeEarned = prize
	r.rows[id] = row
	return nil
}

type MemoryPayoutRepository struct {
	mu   sync.Mutex
	rows map[primitive.ObjectID]models.AffiliatePayout
}

func (r *MemoryPayoutRepository) Insert(_ context.Context, payout *models.AffiliatePayout) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if payout.ID.IsZero() {
		payout.ID = primitive.NewObjectID()
	}
	r.rows[payout.ID] = *payout
	return nil
}

func (r *MemoryPayoutRepository) FindByID(_ context.Context, id primitive.ObjectID) (*models.AffiliatePayout, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return nil, models.NotFoundf("payout not found")
	}
	return &row, nil
}

func (r *MemoryPayoutRepository) SetStatus(_ context.Context, id primitive.ObjectID, from, to, reason string, processedAt *time.Time) (*models.AffiliatePayout, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return nil, models.NotFoundf("payout not found")
	}
	if row.Status != from {
		return nil, models.IllegalTransitionf("payout is %s, expected %s", row.Status, from)
	}
	row.Status = to
	if reason != "" {
		row.FailReason = reason
	}
	if processedAt != nil {
		row.ProcessedAt = processedAt
	}
	row.UpdatedAt = time.Now()
	r.rows[id] = row
	return &row, nil
}

type MemoryAuditRepository struct {
	mu      sync.Mutex
	Entries []models.AuditLog
}

func (r *MemoryAuditRepository) Append(_ context.Context, entry *models.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry.ID.IsZero() {
		entry.ID = primitive.NewObjectID()
	}
	r.Entries = append(r.Entries, *entry)
	return nil
}
