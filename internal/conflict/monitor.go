// Package conflict tracks divergence between the locally-known revision and
// the durable one.
//
// A conflict is sticky: once raised it survives unrelated successful
// operations and only an explicit resolution clears it. Dismissing hides
// the signal without clearing the condition, so it reappears on the next
// local write attempt.
package conflict

import (
	"github.com/ematosg/spiretracker/internal/revision"
)

// ResolutionKind names the explicit actions that end a conflict.
type ResolutionKind string

const (
	// ResolutionReloadLatest replaces local state with the durable state.
	ResolutionReloadLatest ResolutionKind = "reload_latest"
	// ResolutionForceOverwrite commits local state unconditionally.
	ResolutionForceOverwrite ResolutionKind = "force_overwrite"
	// ResolutionDismiss hides the signal without clearing the condition.
	ResolutionDismiss ResolutionKind = "dismiss"
)

// State is the sticky conflict flag surfaced to the UI.
type State struct {
	Active         bool
	SinceRevision  revision.Token
	LocalEditCount int
	Dismissed      bool
}

// Oracle observes externally-reported revisions. It is the single seam
// between the monitor and whichever transport feeds it: local broadcast,
// storage-change notification, or a remote channel.
type Oracle interface {
	Observe(external revision.Token)
}

// Monitor compares externally-observed revisions against the locally-known
// one and keeps the sticky conflict state.
//
// Monitor is not safe for concurrent use; the sync controller serializes
// access to it along with the rest of the session.
type Monitor struct {
	known revision.Token
	state State
}

// NewMonitor creates a monitor that considers known the current revision.
func NewMonitor(known revision.Token) *Monitor {
	return &Monitor{known: known}
}

// Observe records an externally-reported revision. A token that differs
// from the locally-known one raises the conflict; an already-active
// conflict stays active and keeps its original SinceRevision.
func (m *Monitor) Observe(external revision.Token) {
	if revision.Equal(external, m.known) {
		return
	}
	if m.state.Active {
		return
	}
	m.state = State{
		Active:        true,
		SinceRevision: m.known,
	}
}

// NoteLocalEdit counts a local write attempted while the conflict is
// active, purely for user-facing messaging, and re-surfaces a dismissed
// signal.
func (m *Monitor) NoteLocalEdit() {
	if !m.state.Active {
		return
	}
	m.state.LocalEditCount++
	m.state.Dismissed = false
}

// SetKnown records the revision this context believes is current. It never
// clears an active conflict; only Clear does.
func (m *Monitor) SetKnown(token revision.Token) {
	m.known = token
}

// Known returns the locally-known revision.
func (m *Monitor) Known() revision.Token {
	return m.known
}

// Active reports whether a conflict is currently raised, dismissed or not.
func (m *Monitor) Active() bool {
	return m.state.Active
}

// State returns the current conflict state.
func (m *Monitor) State() State {
	return m.state
}

// Dismiss hides the UI signal without clearing the underlying condition.
func (m *Monitor) Dismiss() {
	if !m.state.Active {
		return
	}
	m.state.Dismissed = true
}

// Clear ends the conflict after an explicit resolution and records the
// revision the resolution produced.
func (m *Monitor) Clear(known revision.Token) {
	m.known = known
	m.state = State{}
}
