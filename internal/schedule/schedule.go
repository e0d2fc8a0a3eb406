// Package schedule holds the pure review-scheduling logic. It performs no
// I/O; the store calls into it while applying a mark-solved mutation.
package schedule

import (
	"fmt"
	"time"

	"github.com/conorfennell/leetrack/internal/domain"
)

const day = 24 * time.Hour

// IsDue reports whether a question should be reviewed at the given time.
// A question with no schedule is always due; that is the state of every
// newly created question.
func IsDue(q domain.Question, now time.Time) bool {
	if q.NextReviewAt == nil {
		return true
	}
	return !now.Before(*q.NextReviewAt)
}

// NextReviewAt computes the next review timestamp from an explicit interval.
// Days are fixed 24h multiples; no calendar or timezone normalization.
func NextReviewAt(now time.Time, interval time.Duration) time.Time {
	return now.Add(interval)
}

// DifficultyRank orders difficulties Easy < Medium < Hard. It is used only
// for display grouping and carries no scheduling weight.
func DifficultyRank(d domain.Difficulty) int {
	switch d {
	case domain.Easy:
		return 0
	case domain.Medium:
		return 1
	case domain.Hard:
		return 2
	}
	return 3
}

// IntervalPolicy decides how long to wait before the next review of a
// question that was just solved. Exactly one policy is chosen at
// configuration time; policies are never mixed at call sites.
type IntervalPolicy interface {
	// Interval returns the duration to add to "now" for the solve being
	// recorded. weeks is the caller-supplied interval; a policy may ignore
	// it but the wire contract always carries it.
	Interval(q domain.Question, weeks int) (time.Duration, error)
}

// WeeksPolicy schedules the next review a caller-supplied number of weeks
// out. This is the default policy.
type WeeksPolicy struct{}

func (WeeksPolicy) Interval(_ domain.Question, weeks int) (time.Duration, error) {
	if weeks < 1 {
		return 0, fmt.Errorf("%w: interval weeks must be a positive integer, got %d", domain.ErrInvalidArgument, weeks)
	}
	return time.Duration(weeks) * 7 * day, nil
}

// reviewLadder maps the nth successful solve to a review interval:
// 1 day, 1 week, 1 month, 2 months. Solves past the end stay at the cap.
var reviewLadder = []time.Duration{1 * day, 7 * day, 30 * day, 60 * day}

// SolveCountPolicy schedules the next review from the question's solve
// count via a fixed lookup table, ignoring the caller-supplied weeks.
type SolveCountPolicy struct{}

func (SolveCountPolicy) Interval(q domain.Question, _ int) (time.Duration, error) {
	idx := q.SolveCount // solve being recorded is SolveCount+1, table is zero-based
	if idx >= len(reviewLadder) {
		idx = len(reviewLadder) - 1
	}
	if idx < 0 {
		idx = 0
	}
	return reviewLadder[idx], nil
}

// PolicyNames lists the accepted scheduler.policy configuration values.
const (
	PolicyWeeks      = "weeks"
	PolicySolveCount = "solve-count"
)

// PolicyFromName resolves a configured policy name.
func PolicyFromName(name string) (IntervalPolicy, error) {
	switch name {
	case PolicyWeeks:
		return WeeksPolicy{}, nil
	case PolicySolveCount:
		return SolveCountPolicy{}, nil
	}
	return nil, fmt.Errorf("%w: unknown interval policy %q", domain.ErrInvalidArgument, name)
}
