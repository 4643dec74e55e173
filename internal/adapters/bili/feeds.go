package bili

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yumeka/bili2tg/internal/domain"
)

type upvoteFeedResponse struct {
	Data struct {
		List *[]struct {
			BVID  *string `json:"bvid"`
			Title *string `json:"title"`
		} `json:"list"`
	} `json:"data"`
}

// RecentUpvotes reads the account's liked-items feed. The feed is assumed
// internally consistent: every entry must carry a bvid and a title or the
// whole call fails.
func (c *Client) RecentUpvotes(ctx context.Context, accountID int64) ([]domain.ActivityRecord, error) {
	endpoint := fmt.Sprintf("%s/x/space/like/video?vmid=%d", c.api.BaseURL, accountID)

	var payload upvoteFeedResponse
	if err := c.getJSON(ctx, endpoint, &payload); err != nil {
		return nil, fmt.Errorf("fetch upvote feed: %w", err)
	}
	if payload.Data.List == nil {
		return nil, errors.New("fetch upvote feed: response missing data.list")
	}

	now := time.Now()
	records := make([]domain.ActivityRecord, 0, len(*payload.Data.List))
	for i, item := range *payload.Data.List {
		if item.BVID == nil || *item.BVID == "" {
			return nil, fmt.Errorf("fetch upvote feed: entry %d missing bvid", i)
		}
		if item.Title == nil {
			return nil, fmt.Errorf("fetch upvote feed: entry %d missing title", i)
		}
		records = append(records, domain.ActivityRecord{
			ItemID:     domain.ItemID(*item.BVID),
			Title:      *item.Title,
			Source:     domain.SourceUpvote,
			ObservedAt: now,
		})
	}

	return records, nil
}

type viewFeedResponse struct {
	Data struct {
		List *[]struct {
			Title   *string `json:"title"`
			History struct {
				BVID *string `json:"bvid"`
			} `json:"history"`
		} `json:"list"`
	} `json:"data"`
}

// RecentViews reads the account's recent watch history. The platform
// legitimately returns placeholder rows with an empty bvid; those are
// skipped. A missing bvid or title field is a hard error.
func (c *Client) RecentViews(ctx context.Context) ([]domain.ActivityRecord, error) {
	endpoint := c.api.BaseURL + "/x/web-interface/history/cursor"

	var payload viewFeedResponse
	if err := c.getJSON(ctx, endpoint, &payload); err != nil {
		return nil, fmt.Errorf("fetch view feed: %w", err)
	}
	if payload.Data.List == nil {
		return nil, errors.New("fetch view feed: response missing data.list")
	}

	now := time.Now()
	records := make([]domain.ActivityRecord, 0, len(*payload.Data.List))
	for i, item := range *payload.Data.List {
		if item.History.BVID == nil {
			return nil, fmt.Errorf("fetch view feed: entry %d missing history.bvid", i)
		}
		if *item.History.BVID == "" {
			continue
		}
		if item.Title == nil {
			return nil, fmt.Errorf("fetch view feed: entry %d missing title", i)
		}
		records = append(records, domain.ActivityRecord{
			ItemID:     domain.ItemID(*item.History.BVID),
			Title:      *item.Title,
			Source:     domain.SourceView,
			ObservedAt: now,
		})
	}

	return records, nil
}
