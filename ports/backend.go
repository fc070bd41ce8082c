package ports

import (
	"context"

	"tennisweb/models"
)

// MatchBackend is the slice of the backend gateway the recommendation
// orchestrator depends on. The full gateway satisfies it.
type MatchBackend interface {
	FetchProfile(ctx context.Context) (*models.UserWithProfile, error)
	Recommend(ctx context.Context, exclude []int64) (*models.Recommendation, error)
	Candidates(ctx context.Context, exclude []int64, limit int) ([]models.Recommendation, error)
}
