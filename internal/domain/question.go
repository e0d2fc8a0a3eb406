package domain

import "time"

// Difficulty is the problem's difficulty as labelled by the problem source.
type Difficulty string

const (
	Easy   Difficulty = "Easy"
	Medium Difficulty = "Medium"
	Hard   Difficulty = "Hard"
)

// ParseDifficulty maps the literal enum string to a Difficulty.
// The comparison is case-sensitive; "easy" is not a valid difficulty.
func ParseDifficulty(s string) (Difficulty, bool) {
	switch Difficulty(s) {
	case Easy, Medium, Hard:
		return Difficulty(s), true
	}
	return "", false
}

// Question represents a single tracked practice problem and its review
// schedule. A nil NextReviewAt means the question has never been solved
// and is due immediately.
type Question struct {
	ID           int64
	Title        string
	SourceURL    string
	Difficulty   Difficulty
	LastSolvedAt *time.Time
	NextReviewAt *time.Time
	SolveCount   int
	CreatedAt    time.Time
}
