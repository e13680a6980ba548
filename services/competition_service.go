package services

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/craftora/affiliate_backend/models"
	"github.com/craftora/affiliate_backend/repositories"
)

const (
	leaderboardDefaultLimit = 50
	leaderboardMaxLimit     = 100
)

// CompetitionService manages competition lifecycle, enrollment and
// on-demand leaderboard ranking. Competition status is derived from the
// clock at read time; there is no background scheduler.
type CompetitionService struct {
	competitions repositories.CompetitionRepository
	participants repositories.ParticipantRepository
	affiliates   repositories.AffiliateRepository
	cache        *LeaderboardCache
}

func NewCompetitionService(competitions repositories.CompetitionRepository, participants repositories.ParticipantRepository, affiliates repositories.AffiliateRepository, cache *LeaderboardCache) *CompetitionService {
	return &CompetitionService{
		competitions: competitions,
		participants: participants,
		affiliates:   affiliates,
		cache:        cache,
	}
}

// Create validates the window and prize rules and stores the competition.
// Initial status falls out of the window derivation: upcoming or active.
func (s *CompetitionService) Create(ctx context.Context, req models.CreateCompetitionRequest) (*models.AffiliateCompetition, error) {
	if !req.EndDate.After(req.StartDate) {
		return nil, models.InvalidInputf("competition end date must be after start date")
	}
	if req.PrizePool < 0 {
		return nil, models.InvalidInputf("prize pool cannot be negative")
	}

	rules := models.DefaultPrizeSplitRules()
	if len(req.Splits) > 0 {
		total := 0.0
		for _, split := range req.Splits {
			if split < 0 || split > 1 {
				return nil, models.InvalidInputf("prize splits must be fractions between 0 and 1")
			}
			total += split
		}
		if total > 1.000001 {
			return nil, models.InvalidInputf("prize splits cannot exceed the prize pool")
		}
		rules = models.PrizeSplitRules{Version: req.RuleVersion, Splits: req.Splits}
		if rules.Version == 0 {
			rules.Version = 1
		}
	}

	now := time.Now()
	competition := &models.AffiliateCompetition{
		Name:        req.Name,
		Description: req.Description,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		PrizePool:   req.PrizePool,
		Rules:       rules,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.competitions.Insert(ctx, competition); err != nil {
		return nil, err
	}
	return competition, nil
}

func (s *CompetitionService) Get(ctx context.Context, competitionID primitive.ObjectID) (*models.AffiliateCompetition, error) {
	return s.competitions.FindByID(ctx, competitionID)
}

func (s *CompetitionService) List(ctx context.Context) ([]models.AffiliateCompetition, error) {
	return s.competitions.List(ctx)
}

// Join enrolls an affiliate. The unique (competitionId, affiliateId) index
// makes concurrent joins collapse to one row; the second join surfaces as
// a conflict.
func (s *CompetitionService) Join(ctx context.Context, competitionID, affiliateID primitive.ObjectID) (*models.CompetitionParticipant, error) {
	competition, err := s.competitions.FindByID(ctx, competitionID)
	if err != nil {
		return nil, err
	}
	status := competition.StatusAt(time.Now())
	if status == models.CompetitionStatusEnded || status == models.CompetitionStatusCancelled {
		return nil, models.Conflictf("competition is %s and cannot be joined", status)
	}
	affiliate, err := s.affiliates.FindByID(ctx, affiliateID)
	if err != nil {
		return nil, err
	}
	if affiliate.Status != models.AffiliateStatusActive {
		return nil, models.Conflictf("affiliate is %s; joining requires an active affiliate", affiliate.Status)
	}

	participant := &models.CompetitionParticipant{
		CompetitionID: competitionID,
		AffiliateID:   affiliateID,
		JoinedAt:      time.Now(),
	}
	if err := s.participants.Insert(ctx, participant); err != nil {
		return nil, err
	}
	return participant, nil
}

// Leaderboard ranks participants by totalRevenue desc, salesCount desc,
// joinedAt asc. Ranks are a dense 1..N permutation: the tie-breaks order
// every pair deterministically, so no rank is ever shared or skipped.
// Pages are cached briefly; staleness is bounded by the cache TTL.
func (s *CompetitionService) Leaderboard(ctx context.Context, competitionID primitive.ObjectID, page, limit int) (*models.Leaderboard, error) {
	competition, err := s.competitions.FindByID(ctx, competitionID)
	if err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = leaderboardDefaultLimit
	}
	if limit > leaderboardMaxLimit {
		limit = leaderboardMaxLimit
	}

	if cached, ok := s.cache.Get(ctx, competitionID, page, limit); ok {
		return cached, nil
	}

	skip := int64(page-1) * int64(limit)
	participants, err := s.participants.ListRanked(ctx, competitionID, skip, int64(limit))
	if err != nil {
		return nil, err
	}

	leaderboard := &models.Leaderboard{
		CompetitionID: competitionID,
		Status:        competition.StatusAt(time.Now()),
		Page:          page,
		Limit:         limit,
		Entries:       make([]models.LeaderboardEntry, 0, len(participants)),
	}
	for i, participant := range participants {
		entry := models.LeaderboardEntry{
			Rank:         int(skip) + i + 1,
			AffiliateID:  participant.AffiliateID,
			SalesCount:   participant.SalesCount,
			TotalRevenue: participant.TotalRevenue,
			PrizeEarned:  participant.PrizeEarned,
			JoinedAt:     participant.JoinedAt,
		}
		if affiliate, err := s.affiliates.FindByID(ctx, participant.AffiliateID); err == nil {
			entry.AffiliateCode = affiliate.AffiliateCode
		}
		leaderboard.Entries = append(leaderboard.Entries, entry)
	}

	s.cache.Set(ctx, leaderboard)
	return leaderboard, nil
}

// Settle distributes the prize pool over the final ranking per the
// competition's split rules. Only legal once the window has ended. Prizes
// are written before the settled flag is claimed: the ranking is frozen
// once the window closes, so prize writes are idempotent, and a failure
// mid-write leaves the flag unclaimed and the settle retryable. The flag
// itself is a compare-and-set, so of any concurrent settlers exactly one
// reports success and the rest see the conflict.
func (s *CompetitionService) Settle(ctx context.Context, competitionID primitive.ObjectID) ([]models.CompetitionParticipant, error) {
	competition, err := s.competitions.FindByID(ctx, competitionID)
	if err != nil {
		return nil, err
	}
	status := competition.StatusAt(time.Now())
	if status != models.CompetitionStatusEnded {
		return nil, models.IllegalTransitionf("competition is %s; settlement requires ended", status)
	}
	if competition.Settled {
		return nil, models.Conflictf("competition already settled")
	}

	ranked, err := s.participants.ListRanked(ctx, competitionID, 0, 0)
	if err != nil {
		return nil, err
	}
	splits := competition.Rules.Splits
	for i := range ranked {
		rank := i + 1
		prize := 0.0
		if i < len(splits) {
			prize = round2(competition.PrizePool * splits[i])
		}
		if err := s.participants.SetPrize(ctx, ranked[i].ID, rank, prize); err != nil {
			return nil, err
		}
		ranked[i].Rank = rank
		ranked[i].PrizeEarned = prize
	}

	claimed, err := s.competitions.MarkSettled(ctx, competitionID, time.Now())
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, models.Conflictf("competition already settled")
	}
	return ranked, nil
}

// Cancel is the manual, permanent override of the time-derived status.
func (s *CompetitionService) Cancel(ctx context.Context, competitionID primitive.ObjectID) (*models.AffiliateCompetition, error) {
	return s.competitions.Cancel(ctx, competitionID, time.Now())
}
