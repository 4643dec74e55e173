package ports

import (
	"context"

	"github.com/yumeka/bili2tg/internal/domain"
)

// AuthGateway is the platform's login and identity surface.
type AuthGateway interface {
	IssueQRChallenge(ctx context.Context) (domain.QRChallenge, error)
	PollQRChallenge(ctx context.Context, pollKey string) (domain.QRPollResult, error)
	// CommitCredential swaps the session credential and the HTTP client
	// derived from it as one unit; no request started afterwards observes a
	// mixed pair.
	CommitCredential(credential string)
	// WhoAmI runs the liveness probe. A well-formed response with a non-zero
	// code yields domain.ErrNotAuthenticated; transport failures and
	// malformed responses are returned as hard errors, never downgraded.
	WhoAmI(ctx context.Context) (int64, error)
}

// ActivityFeed reads the two activity streams through the committed session.
type ActivityFeed interface {
	RecentUpvotes(ctx context.Context, accountID int64) ([]domain.ActivityRecord, error)
	RecentViews(ctx context.Context) ([]domain.ActivityRecord, error)
}
