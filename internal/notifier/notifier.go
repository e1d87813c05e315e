// Package notifier fans a single Store.SubscribeApprovals stream out to
// many per-connection subscribers, each tenant-filtered and each bounded so
// one slow reader cannot back-pressure the others (spec §4.10, §5). It is
// grounded on the same dedicated-listener-then-fan-out shape the teacher
// uses for its activity-feed plugins, adapted to HiveMind's single
// upstream channel and tenant-scoped visibility rules instead of a
// broker-native topic model.
package notifier

import (
	"context"
	"sync"
	"time"

	"github.com/hivemind-dev/hivemind/internal/logging"
	"github.com/hivemind-dev/hivemind/internal/metrics"
	"github.com/hivemind-dev/hivemind/internal/store"
)

// Event is what a subscriber receives: either an approval payload or a
// heartbeat, mirroring the SSE wire format's event discriminator (spec §6.2).
type Event struct {
	Kind    string // "public", "private", or "ping"
	Payload *store.ApprovalPayload
}

// Subscription is a single connection's inbound event channel.
type Subscription struct {
	TenantID  string
	events    chan Event
	notifier  *Notifier
	ctxCancel context.CancelFunc
}

// Events returns the channel callers should range over. It is closed when
// Close is called, the subscriber falls behind and is disconnected, or the
// Notifier itself shuts down.
func (s *Subscription) Events() <-chan Event { return s.events }

// Close unregisters the subscription and releases its channel.
func (s *Subscription) Close() { s.notifier.disconnect(s) }

// Notifier is the process-wide fan-out singleton described in spec §4.10.
type Notifier struct {
	bufferSize int
	heartbeat  time.Duration

	mu   sync.Mutex
	subs map[*Subscription]struct{}
}

// New constructs a Notifier. bufferSize bounds each subscriber's channel
// (default 128 per spec §4.10); heartbeat must be <=30s.
func New(bufferSize int, heartbeat time.Duration) *Notifier {
	return &Notifier{
		bufferSize: bufferSize,
		heartbeat:  heartbeat,
		subs:       make(map[*Subscription]struct{}),
	}
}

// Run consumes upstream until ctx is cancelled, broadcasting each payload
// to every subscriber it is visible to: the owning tenant, or every
// subscriber when the snippet is public (spec §4.10, §6.2).
func (n *Notifier) Run(ctx context.Context, upstream <-chan store.ApprovalPayload) {
	log := logging.From(ctx).WithName("notifier")
	for {
		select {
		case <-ctx.Done():
			n.closeAll()
			return
		case payload, ok := <-upstream:
			if !ok {
				n.closeAll()
				return
			}
			n.broadcast(payload)
			log.V(1).Info("broadcast approval event", "id", payload.ID, "is_public", payload.IsPublic)
		}
	}
}

func (n *Notifier) broadcast(payload store.ApprovalPayload) {
	n.mu.Lock()
	defer n.mu.Unlock()

	kind := "private"
	if payload.IsPublic {
		kind = "public"
	}

	for sub := range n.subs {
		if !payload.IsPublic && sub.TenantID != payload.TenantID {
			continue
		}
		select {
		case sub.events <- Event{Kind: kind, Payload: &payload}:
		default:
			// subscriber fell behind; disconnect it rather than drop events
			// silently or block the broadcaster (spec §4.10 backpressure).
			n.disconnectLocked(sub)
		}
	}
}

// Subscribe registers a new per-connection subscription for tenantID. The
// returned Subscription emits a "ping" heartbeat at least once per
// heartbeat interval so idle SSE connections are kept alive (spec §4.10,
// §6.2). Subscribe and the eventual Close are serialized against Run's
// broadcast loop via the same mutex.
func (n *Notifier) Subscribe(ctx context.Context, tenantID string) *Subscription {
	subCtx, cancel := context.WithCancel(ctx)
	sub := &Subscription{
		TenantID:  tenantID,
		events:    make(chan Event, n.bufferSize),
		notifier:  n,
		ctxCancel: cancel,
	}

	n.mu.Lock()
	n.subs[sub] = struct{}{}
	n.mu.Unlock()
	metrics.SSESubscribers.Set(float64(n.SubscriberCount()))

	go n.heartbeatLoop(subCtx, sub)

	return sub
}

// disconnectLocked removes sub and closes its channel. Callers must hold n.mu.
func (n *Notifier) disconnectLocked(sub *Subscription) {
	if _, ok := n.subs[sub]; !ok {
		return
	}
	delete(n.subs, sub)
	close(sub.events)
	sub.ctxCancel()
}

func (n *Notifier) disconnect(sub *Subscription) {
	n.mu.Lock()
	n.disconnectLocked(sub)
	n.mu.Unlock()
	metrics.SSESubscribers.Set(float64(n.SubscriberCount()))
}

func (n *Notifier) heartbeatLoop(ctx context.Context, sub *Subscription) {
	ticker := time.NewTicker(n.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n.mu.Lock()
			if _, ok := n.subs[sub]; !ok {
				n.mu.Unlock()
				return
			}
			select {
			case sub.events <- Event{Kind: "ping"}:
			default:
			}
			n.mu.Unlock()
		}
	}
}

func (n *Notifier) closeAll() {
	n.mu.Lock()
	defer n.mu.Unlock()
	for sub := range n.subs {
		close(sub.events)
		delete(n.subs, sub)
		sub.ctxCancel()
	}
}

// SubscriberCount reports the number of currently registered subscriptions,
// exposed for metrics and tests.
func (n *Notifier) SubscriberCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.subs)
}
