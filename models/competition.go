package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Competition statuses. upcoming/active/ended are derived from the window
// at read time; cancelled is the stored manual override and is terminal.
const (
	CompetitionStatusUpcoming  = "upcoming"
	CompetitionStatusActive    = "active"
	CompetitionStatusEnded     = "ended"
	CompetitionStatusCancelled = "cancelled"
)

// PrizeSplitRules is the versioned prize distribution policy applied at
// settlement. Splits are ordered fractions of the prize pool paid to ranks
// 1..len(Splits); the exact scheme is opaque to the rest of the engine.
type PrizeSplitRules struct {
	Version int       `bson:"version" json:"version"`
	Splits  []float64 `bson:"splits" json:"splits"`
}

// DefaultPrizeSplitRules pays the top three 50/30/20.
func DefaultPrizeSplitRules() PrizeSplitRules {
	return PrizeSplitRules{Version: 1, Splits: []float64{0.5, 0.3, 0.2}}
}

// AffiliateCompetition is a time-boxed contest ranking affiliates by
// referral performance.
type AffiliateCompetition struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name" json:"name"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	StartDate   time.Time          `bson:"startDate" json:"startDate"`
	EndDate     time.Time          `bson:"endDate" json:"endDate"`
	PrizePool   float64            `bson:"prizePool" json:"prizePool"`
	Rules       PrizeSplitRules    `bson:"rules" json:"rules"`
	Cancelled   bool               `bson:"cancelled" json:"-"`
	CancelledAt *time.Time         `bson:"cancelledAt,omitempty" json:"cancelledAt,omitempty"`
	Settled     bool               `bson:"settled" json:"settled"`
	SettledAt   *time.Time         `bson:"settledAt,omitempty" json:"settledAt,omitempty"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// StatusAt derives the competition status from wall-clock time. There is no
// background process moving competitions between states.
func (c *AffiliateCompetition) StatusAt(now time.Time) string {
	if c.Cancelled {
		return CompetitionStatusCancelled
	}
	switch {
	case now.Before(c.StartDate):
		return CompetitionStatusUpcoming
	case now.Before(c.EndDate):
		return CompetitionStatusActive
	default:
		return CompetitionStatusEnded
	}
}

// CompetitionParticipant is the unique (competition, affiliate) enrollment
// row. SalesCount and TotalRevenue are maintained by atomic increments;
// Rank and PrizeEarned are written at settlement.
type CompetitionParticipant struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CompetitionID primitive.ObjectID `bson:"competitionId" json:"competitionId"`
	AffiliateID   primitive.ObjectID `bson:"affiliateId" json:"affiliateId"`
	SalesCount    int                `bson:"salesCount" json:"salesCount"`
	TotalRevenue  float64            `bson:"totalRevenue" json:"totalRevenue"`
	Rank          int                `bson:"rank,omitempty" json:"rank,omitempty"`
	PrizeEarned   float64            `bson:"prizeEarned,omitempty" json:"prizeEarned,omitempty"`
	JoinedAt      time.Time          `bson:"joinedAt" json:"joinedAt"`
}

// LeaderboardEntry is one ranked row of a competition leaderboard
type LeaderboardEntry struct {
	Rank          int                `json:"rank"`
	AffiliateID   primitive.ObjectID `json:"affiliateId"`
	AffiliateCode string             `json:"affiliateCode,omitempty"`
	SalesCount    int                `json:"salesCount"`
	TotalRevenue  float64            `json:"totalRevenue"`
	PrizeEarned   float64            `json:"prizeEarned,omitempty"`
	JoinedAt      time.Time          `json:"joinedAt"`
}

// Leaderboard is a paginated ranking snapshot computed on demand
type Leaderboard struct {
	CompetitionID primitive.ObjectID `json:"competitionId"`
	Status        string             `json:"status"`
	Page          int                `json:"page"`
	Limit         int                `json:"limit"`
	Entries       []LeaderboardEntry `json:"entries"`
}

// CreateCompetitionRequest is the admin payload for opening a competition
type CreateCompetitionRequest struct {
	Name        string    `json:"name" validate:"required"`
	Description string    `json:"description,omitempty"`
	StartDate   time.Time `json:"startDate" validate:"required"`
	EndDate     time.Time `json:"endDate" validate:"required"`
	PrizePool   float64   `json:"prizePool" validate:"gte=0"`
	Splits      []float64 `json:"splits,omitempty"`
	RuleVersion int       `json:"ruleVersion,omitempty"`
}
