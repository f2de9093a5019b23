package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"ai-learning-backend/internal/domain"
	"ai-learning-backend/internal/domain/model"
	"ai-learning-backend/internal/domain/ports/repository"
)

// Ensure subscriptionRepo implements repository.SubscriptionRepository
var _ repository.SubscriptionRepository = (*subscriptionRepo)(nil)

type subscriptionRepo struct {
	pool *pgxpool.Pool
}

func NewSubscriptionRepo(pool *pgxpool.Pool) *subscriptionRepo {
	return &subscriptionRepo{pool: pool}
}

const subColumns = `
id, user_id, plan_type, quiz_limit, flashcard_limit, tutor_messages_limit,
quizzes_used, flashcards_used, tutor_messages_used, usage_reset_date,
created_at, updated_at`

// usageColumns maps a resource type to its counter/limit column pair. Only
// values from this map are ever interpolated into SQL.
var usageColumns = map[model.UsageType]struct {
	used  string
	limit string
}{
	model.UsageQuiz:      {used: "quizzes_used", limit: "quiz_limit"},
	model.UsageFlashcard: {used: "flashcards_used", limit: "flashcard_limit"},
	model.UsageTutor:     {used: "tutor_messages_used", limit: "tutor_messages_limit"},
}

func (r *subscriptionRepo) FindByUser(ctx context.Context, userID string) (*model.UserSubscription, error) {
	q := `SELECT ` + subColumns + ` FROM user_subscriptions WHERE user_id=$1;`
	s, err := scanSub(r.pool.QueryRow(ctx, q, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find subscription: %w", err)
	}
	return s, nil
}

func (r *subscriptionRepo) Create(ctx context.Context, s *model.UserSubscription) error {
	const q = `
INSERT INTO user_subscriptions (
  id, user_id, plan_type, quiz_limit, flashcard_limit, tutor_messages_limit,
  quizzes_used, flashcards_used, tutor_messages_used, usage_reset_date,
  created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12);`

	_, err := r.pool.Exec(ctx, q,
		s.ID, s.UserID, s.PlanType, s.QuizLimit, s.FlashcardLimit, s.TutorMessagesLimit,
		s.QuizzesUsed, s.FlashcardsUsed, s.TutorMessagesUsed, s.UsageResetDate,
		s.CreatedAt, s.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("create subscription: %w", err)
	}
	return nil
}

// ResetUsage zeroes the counters and advances the reset date, guarded on the
// stored reset date being due so concurrent callers reset at most once.
func (r *subscriptionRepo) ResetUsage(ctx context.Context, userID string, resetDate time.Time) (*model.UserSubscription, error) {
	q := `
UPDATE user_subscriptions
   SET quizzes_used=0, flashcards_used=0, tutor_messages_used=0,
       usage_reset_date=$2, updated_at=NOW()
 WHERE user_id=$1 AND usage_reset_date <= NOW()
RETURNING ` + subColumns + `;`

	s, err := scanSub(r.pool.QueryRow(ctx, q, userID, resetDate))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Someone else reset first; serve the current row.
			return r.FindByUser(ctx, userID)
		}
		return nil, fmt.Errorf("reset usage: %w", err)
	}
	return s, nil
}

// TryIncrementUsage performs the check and the increment in one statement so
// a counter can never pass its ceiling, however many requests race.
func (r *subscriptionRepo) TryIncrementUsage(ctx context.Context, userID string, t model.UsageType) (bool, error) {
	cols, ok := usageColumns[t]
	if !ok {
		return false, domain.ErrInvalidArgument
	}
	q := fmt.Sprintf(`
UPDATE user_subscriptions
   SET %[1]s = %[1]s + 1, updated_at = NOW()
 WHERE user_id=$1 AND (%[2]s = -1 OR %[1]s < %[2]s);`, cols.used, cols.limit)

	tag, err := r.pool.Exec(ctx, q, userID)
	if err != nil {
		return false, fmt.Errorf("increment usage: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func scanSub(row pgx.Row) (*model.UserSubscription, error) {
	var s model.UserSubscription
	err := row.Scan(
		&s.ID, &s.UserID, &s.PlanType, &s.QuizLimit, &s.FlashcardLimit, &s.TutorMessagesLimit,
		&s.QuizzesUsed, &s.FlashcardsUsed, &s.TutorMessagesUsed, &s.UsageResetDate,
		&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
