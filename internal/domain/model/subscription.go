package model

import (
	"math"
	"time"

	"ai-learning-backend/internal/domain"
)

type PlanType string

const (
	PlanFree       PlanType = "free"
	PlanPremium    PlanType = "premium"
	PlanEnterprise PlanType = "enterprise"
)

type UsageType string

const (
	UsageQuiz      UsageType = "quiz"
	UsageFlashcard UsageType = "flashcard"
	UsageTutor     UsageType = "tutor"
)

// Unlimited marks a per-resource limit with no ceiling.
const Unlimited = -1

// ResetInterval is the monthly usage window length.
const ResetInterval = 30 * 24 * time.Hour

// PlanLimits is the static per-plan allowance table. Adjust here for scaling.
type PlanLimits struct {
	Quizzes       int
	Flashcards    int
	TutorMessages int
}

var planLimits = map[PlanType]PlanLimits{
	PlanFree:       {Quizzes: 5, Flashcards: 5, TutorMessages: 20},
	PlanPremium:    {Quizzes: 100, Flashcards: 100, TutorMessages: 500},
	PlanEnterprise: {Quizzes: Unlimited, Flashcards: Unlimited, TutorMessages: Unlimited},
}

// LimitsFor returns the allowance table for a plan, defaulting to free.
func LimitsFor(p PlanType) PlanLimits {
	if l, ok := planLimits[p]; ok {
		return l
	}
	return planLimits[PlanFree]
}

// UserSubscription is the persisted per-user quota record. Counters stay in
// [0, limit] for bounded resources and reset together when the reset date
// passes.
type UserSubscription struct {
	ID                 string
	UserID             string
	PlanType           PlanType
	QuizLimit          int
	FlashcardLimit     int
	TutorMessagesLimit int
	QuizzesUsed        int
	FlashcardsUsed     int
	TutorMessagesUsed  int
	UsageResetDate     time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// NewFreeSubscription creates the lazily-provisioned default record with a
// reset date 30 days out.
func NewFreeSubscription(id, userID string, now time.Time) (*UserSubscription, error) {
	if id == "" || userID == "" {
		return nil, domain.ErrInvalidArgument
	}
	limits := LimitsFor(PlanFree)
	return &UserSubscription{
		ID:                 id,
		UserID:             userID,
		PlanType:           PlanFree,
		QuizLimit:          limits.Quizzes,
		FlashcardLimit:     limits.Flashcards,
		TutorMessagesLimit: limits.TutorMessages,
		UsageResetDate:     now.Add(ResetInterval),
		CreatedAt:          now,
		UpdatedAt:          now,
	}, nil
}

// NeedsReset reports whether the monthly window has elapsed.
func (s *UserSubscription) NeedsReset(now time.Time) bool {
	return !now.Before(s.UsageResetDate)
}

// ResetUsage zeroes all counters and advances the reset date 30 days from now.
func (s *UserSubscription) ResetUsage(now time.Time) {
	s.QuizzesUsed = 0
	s.FlashcardsUsed = 0
	s.TutorMessagesUsed = 0
	s.UsageResetDate = now.Add(ResetInterval)
	s.UpdatedAt = now
}

// Used returns the consumed count for a resource type.
func (s *UserSubscription) Used(t UsageType) int {
	switch t {
	case UsageQuiz:
		return s.QuizzesUsed
	case UsageFlashcard:
		return s.FlashcardsUsed
	default:
		return s.TutorMessagesUsed
	}
}

// Limit returns the ceiling for a resource type (Unlimited for no ceiling).
func (s *UserSubscription) Limit(t UsageType) int {
	switch t {
	case UsageQuiz:
		return s.QuizLimit
	case UsageFlashcard:
		return s.FlashcardLimit
	default:
		return s.TutorMessagesLimit
	}
}

// UsageStatus is the projection served to callers before and after a
// generation request.
type UsageStatus struct {
	Allowed         bool     `json:"allowed"`
	Used            int      `json:"used"`
	Limit           int      `json:"limit"`
	Remaining       int      `json:"remaining"`
	PlanType        PlanType `json:"plan_type"`
	IsUnlimited     bool     `json:"is_unlimited"`
	PercentUsed     int      `json:"percent_used"`
	UpgradeRequired bool     `json:"upgrade_required"`
}

// StatusFor computes the admission decision for one resource type.
// Remaining is -1 when unlimited; PercentUsed is clamped to 100.
func (s *UserSubscription) StatusFor(t UsageType) UsageStatus {
	used := s.Used(t)
	limit := s.Limit(t)

	unlimited := limit == Unlimited
	allowed := unlimited || used < limit

	remaining := Unlimited
	percent := 0
	if !unlimited {
		remaining = limit - used
		if remaining < 0 {
			remaining = 0
		}
		if limit > 0 {
			percent = int(math.Round(float64(used) / float64(limit) * 100))
			if percent > 100 {
				percent = 100
			}
		}
	}

	return UsageStatus{
		Allowed:         allowed,
		Used:            used,
		Limit:           limit,
		Remaining:       remaining,
		PlanType:        s.PlanType,
		IsUnlimited:     unlimited,
		PercentUsed:     percent,
		UpgradeRequired: !allowed,
	}
}

// UsageSummary aggregates all three resources for the usage endpoint.
type UsageSummary struct {
	Quiz           UsageStatus       `json:"quiz"`
	Flashcard      UsageStatus       `json:"flashcard"`
	Tutor          UsageStatus       `json:"tutor"`
	Subscription   *UserSubscription `json:"subscription"`
	DaysUntilReset int               `json:"days_until_reset"`
}
