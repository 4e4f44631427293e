package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"
)

// CacheFill is the payload published when a description is stored.
type CacheFill struct {
	Resource string `json:"resource"`
	Key      string `json:"key"`
}

// Notifier publishes cache fills on a PostgreSQL NOTIFY channel.  A nil
// Notifier or one with an empty channel does nothing.
type Notifier struct {
	Channel string
}

// NewNotifier returns nil when channel is empty so callers can skip the
// feature without branching.
func NewNotifier(channel string) *Notifier {
	if channel == "" {
		return nil
	}
	return &Notifier{Channel: channel}
}

// Notify issues NOTIFY on q.  Called inside a gate scope it is only delivered
// to listeners once the surrounding transaction commits.  NOTIFY takes no
// bind parameters, hence the quoting.
func (n *Notifier) Notify(ctx context.Context, q Querier, fill CacheFill) error {
	if n == nil || n.Channel == "" {
		return nil
	}
	payload, err := json.Marshal(fill)
	if err != nil {
		return err
	}
	stmt := fmt.Sprintf("NOTIFY %s, %s", pq.QuoteIdentifier(n.Channel), pq.QuoteLiteral(string(payload)))
	if _, err := q.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("notify %s: %w", n.Channel, err)
	}
	return nil
}
