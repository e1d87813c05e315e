package store

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"

	"github.com/hivemind-dev/hivemind/internal/hmerrors"
	"github.com/hivemind-dev/hivemind/internal/logging"
)

// SubscribeApprovals opens a dedicated pgx connection (distinct from the
// gorm transactional pool, since LISTEN/NOTIFY pins a connection for its
// lifetime — spec §4.3, §5, §9) and relays every NOTIFY on notifyChannel
// until ctx is cancelled, at which point the connection is closed and the
// channel closed.
func (s *PostgresStore) SubscribeApprovals(ctx context.Context) (<-chan ApprovalPayload, error) {
	conn, err := pgx.Connect(ctx, s.url)
	if err != nil {
		return nil, hmerrors.Wrap(hmerrors.KindInternal, "open notify listener connection", err)
	}

	if _, err := conn.Exec(ctx, "LISTEN "+notifyChannel); err != nil {
		conn.Close(ctx)
		return nil, hmerrors.Wrap(hmerrors.KindInternal, "listen on approvals channel", err)
	}

	out := make(chan ApprovalPayload, 16)

	go func() {
		defer close(out)
		defer conn.Close(context.Background())
		log := logging.From(ctx).WithName("store-notify")

		for {
			notification, err := conn.WaitForNotification(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Error(err, "notify listener error, stopping")
				return
			}

			var payload ApprovalPayload
			if err := json.Unmarshal([]byte(notification.Payload), &payload); err != nil {
				log.Error(err, "failed to decode approval notification payload")
				continue
			}

			select {
			case out <- payload:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}
