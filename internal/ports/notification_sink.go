package ports

import (
	"context"
	"time"
)

// NotificationSink delivers one formatted message per item. The caller paces
// sends; the sink applies its own formatting and rate limits beyond that.
type NotificationSink interface {
	Send(ctx context.Context, title, url string, observedAt time.Time) error
}
