// Package notify distributes campaign_saved announcements between writer
// contexts.
//
// Delivery is best effort: announcements are advisory freshness hints, and
// the revision check on the durable store is what actually protects data.
// A failed or unavailable remote channel therefore downgrades silently to
// local-only delivery instead of failing the save.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/ematosg/spiretracker/internal/revision"
)

// TypeCampaignSaved announces that a context committed a new revision.
const TypeCampaignSaved = "campaign_saved"

// Event is the message exchanged between contexts after a successful save.
type Event struct {
	Type       string         `json:"type"`
	Revision   revision.Token `json:"revision"`
	CampaignID string         `json:"campaign_id"`
	Actor      string         `json:"actor"`
	ActorRole  string         `json:"actor_role"`
	ClientID   string         `json:"client_id"`
	Time       time.Time      `json:"time"`
}

// Handler receives events delivered by a transport.
type Handler func(Event)

// Transport carries events to and from other contexts.
type Transport interface {
	// Start begins delivering incoming events to handler until the context
	// is canceled or the transport is closed.
	Start(ctx context.Context, handler Handler) error
	Send(Event) error
	Close() error
}

// Notifier fans announcements out over a local transport and, when one is
// attached and healthy, a remote transport.
type Notifier struct {
	mu         sync.Mutex
	local      Transport
	remote     Transport
	handler    Handler
	downgraded bool
	lastErr    error
}

// New creates a notifier over the given local transport.
func New(local Transport) *Notifier {
	return &Notifier{local: local}
}

// Subscribe registers the handler that receives events from every attached
// transport. It must be called before Start.
func (n *Notifier) Subscribe(handler Handler) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.handler = handler
}

// Start begins delivery on the local transport.
func (n *Notifier) Start(ctx context.Context) error {
	n.mu.Lock()
	local, handler := n.local, n.handler
	n.mu.Unlock()
	if local == nil {
		return nil
	}
	return local.Start(ctx, func(event Event) { n.deliver(handler, event) })
}

// SetTransport attaches a remote transport and starts it. A start failure
// downgrades the notifier to local-only delivery; the failure is recorded
// for diagnostics, never surfaced to the saving path.
func (n *Notifier) SetTransport(ctx context.Context, remote Transport) {
	n.mu.Lock()
	handler := n.handler
	n.mu.Unlock()

	if remote == nil {
		return
	}
	if err := remote.Start(ctx, func(event Event) { n.deliver(handler, event) }); err != nil {
		n.mu.Lock()
		n.downgraded = true
		n.lastErr = err
		n.mu.Unlock()
		return
	}

	n.mu.Lock()
	n.remote = remote
	n.downgraded = false
	n.mu.Unlock()
}

// Announce publishes the event on every attached transport. It never blocks
// the caller on delivery and never returns an error: send failures are
// recorded as diagnostics only.
func (n *Notifier) Announce(event Event) {
	n.mu.Lock()
	local, remote := n.local, n.remote
	n.mu.Unlock()

	if local != nil {
		if err := local.Send(event); err != nil {
			n.recordErr(err)
		}
	}
	if remote != nil {
		if err := remote.Send(event); err != nil {
			n.recordErr(err)
		}
	}
}

// Downgraded reports whether the remote channel failed and delivery fell
// back to local-only.
func (n *Notifier) Downgraded() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.downgraded
}

// LastError returns the most recent transport failure, for diagnostics.
func (n *Notifier) LastError() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.lastErr
}

// Close shuts down the attached transports.
func (n *Notifier) Close() error {
	n.mu.Lock()
	local, remote := n.local, n.remote
	n.local, n.remote = nil, nil
	n.mu.Unlock()

	var err error
	if local != nil {
		err = local.Close()
	}
	if remote != nil {
		if cerr := remote.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

func (n *Notifier) deliver(handler Handler, event Event) {
	if handler == nil {
		n.mu.Lock()
		handler = n.handler
		n.mu.Unlock()
	}
	if handler != nil {
		handler(event)
	}
}

func (n *Notifier) recordErr(err error) {
	n.mu.Lock()
	n.lastErr = err
	n.mu.Unlock()
}
