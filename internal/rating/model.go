// Package rating provides donor ratings of ONGs and maintenance of
// each ONG's denormalized rating aggregates.
package rating

import (
	"errors"
	"time"
)

// Score bounds for a rating.
const (
	MinScore = 1
	MaxScore = 5
)

// Common errors for rating operations.
var (
	ErrRatingNotFound = errors.New("rating not found")
	ErrInvalidScore   = errors.New("invalid score: must be between 1 and 5")
)

// Rating is one donor's rating of an ONG. A donor holds at most one
// rating per ONG; repeated ratings replace the previous one.
type Rating struct {
	ID        int64     `json:"id"`
	DonorID   int64     `json:"donor_id"`
	OngID     int64     `json:"ong_id"`
	Score     int       `json:"score"`
	Comment   *string   `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ValidScore checks if a score is within the accepted range.
func ValidScore(score int) bool {
	return score >= MinScore && score <= MaxScore
}

// Validate checks the rating's score.
// Returns ErrInvalidScore if the score is out of range.
func (r *Rating) Validate() error {
	if !ValidScore(r.Score) {
		return ErrInvalidScore
	}
	return nil
}

// Aggregate is the denormalized rating summary carried on an ONG.
type Aggregate struct {
	OngID      int64     `json:"ong_id"`
	Average    float64   `json:"average"`
	Count      int64     `json:"count"`
	ComputedAt time.Time `json:"computed_at"`
}

// ComputeAggregate calculates the average score and count over a set
// of ratings. An empty set yields a zero average and zero count.
func ComputeAggregate(ratings []Rating) (average float64, count int64) {
	if len(ratings) == 0 {
		return 0.0, 0
	}

	var sum int
	for _, r := range ratings {
		sum += r.Score
	}
	return float64(sum) / float64(len(ratings)), int64(len(ratings))
}
