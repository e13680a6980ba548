package repositories

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/craftora/affiliate_backend/models"
)

// TxnRunner executes fn as one atomic unit. The Mongo implementation uses a
// session transaction; the in-memory implementation serializes under a lock.
type TxnRunner interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// AffiliateRepository owns affiliate account rows. Counter fields are only
// ever mutated through IncrementTotals, never read-modify-write.
type AffiliateRepository interface {
	Insert(ctx context.Context, affiliate *models.Affiliate) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Affiliate, error)
	FindByUserID(ctx context.Context, userID primitive.ObjectID) (*models.Affiliate, error)
	FindByCode(ctx context.Context, code string) (*models.Affiliate, error)
	SetStatus(ctx context.Context, id primitive.ObjectID, status, reason string) (*models.Affiliate, error)
	SetRate(ctx context.Context, id primitive.ObjectID, rate float64) (*models.Affiliate, error)
	IncrementTotals(ctx context.Context, id primitive.ObjectID, referrals int, earnings float64) error
}

// ClickRepository owns tracked visits.
type ClickRepository interface {
	Insert(ctx context.Context, click *models.AffiliateClick) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.AffiliateClick, error)
	// ConvertOnce flips converted false->true. Calling it on an already
	// converted click returns the click with alreadyConverted=true.
	ConvertOnce(ctx context.Context, id primitive.ObjectID, at time.Time) (click *models.AffiliateClick, alreadyConverted bool, err error)
}

// ReferralRepository owns referral rows and the referral->payout claim.
type ReferralRepository interface {
	Insert(ctx context.Context, referral *models.AffiliateReferral) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.AffiliateReferral, error)
	// Transition performs a compare-and-set status move and returns the
	// document as it was before the move. A referral whose current status
	// is not in from yields an illegal-transition error; one claimed by a
	// payout yields a conflict, since the payout amount is fixed at claim
	// time.
	Transition(ctx context.Context, id primitive.ObjectID, from []string, to, reason string, at time.Time) (*models.AffiliateReferral, error)
	// ClaimForPayout stamps payoutID onto every approved, unclaimed
	// referral of the affiliate and returns the claimed rows. Rows already
	// claimed by another payout are never matched.
	ClaimForPayout(ctx context.Context, affiliateID, payoutID primitive.ObjectID, at time.Time) ([]models.AffiliateReferral, error)
	MarkPaid(ctx context.Context, payoutID primitive.ObjectID, at time.Time) error
	ReleaseClaim(ctx context.Context, payoutID primitive.ObjectID, at time.Time) error
	SumCommission(ctx context.Context, affiliateID primitive.ObjectID, statuses []string) (float64, error)
}

// CompetitionRepository owns competition definitions.
type CompetitionRepository interface {
	Insert(ctx context.Context, competition *models.AffiliateCompetition) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.AffiliateCompetition, error)
	List(ctx context.Context) ([]models.AffiliateCompetition, error)
	// ListActive returns non-cancelled competitions whose window contains now.
	ListActive(ctx context.Context, now time.Time) ([]models.AffiliateCompetition, error)
	Cancel(ctx context.Context, id primitive.ObjectID, at time.Time) (*models.AffiliateCompetition, error)
	// MarkSettled flips the settled flag once; reports false when a prior
	// settlement already claimed it.
	MarkSettled(ctx context.Context, id primitive.ObjectID, at time.Time) (bool, error)
}

// ParticipantRepository owns (competition, affiliate) enrollment rows,
// unique per pair at the storage layer.
type ParticipantRepository interface {
	Insert(ctx context.Context, participant *models.CompetitionParticipant) error
	Find(ctx context.Context, competitionID, affiliateID primitive.ObjectID) (*models.CompetitionParticipant, error)
	// IncrementActivity bumps salesCount and totalRevenue atomically,
	// reporting whether a participant row matched.
	IncrementActivity(ctx context.Context, competitionID, affiliateID primitive.ObjectID, revenue float64) (bool, error)
	// ListRanked returns participants ordered by totalRevenue desc,
	// salesCount desc, joinedAt asc.
	ListRanked(ctx context.Context, competitionID primitive.ObjectID, skip, limit int64) ([]models.CompetitionParticipant, error)
	SetPrize(ctx context.Context, id primitive.ObjectID, rank int, prize float64) error
}

// PayoutRepository owns payout rows.
type PayoutRepository interface {
	Insert(ctx context.Context, payout *models.AffiliatePayout) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.AffiliatePayout, error)
	// SetStatus performs a compare-and-set move on the payout state machine
	// and returns the updated document.
	SetStatus(ctx context.Context, id primitive.ObjectID, from, to, reason string, processedAt *time.Time) (*models.AffiliatePayout, error)
}

// AuditRepository is append-only.
type AuditRepository interface {
	Append(ctx context.Context, entry *models.AuditLog) error
}

// MongoTxnRunner runs fn inside a Mongo session transaction.
type MongoTxnRunner struct {
	client *mongo.Client
}

func NewMongoTxnRunner(client *mongo.Client) *MongoTxnRunner {
	return &MongoTxnRunner{client: client}
}

func (r *MongoTxnRunner) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	session, err := r.client.StartSession()
	if err != nil {
		return models.StorageError("start session", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		return nil, fn(sessCtx)
	})
	return err
}
