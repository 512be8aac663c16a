// ABOUTME: Timeout-bounded call-status polling with tri-state results
// ABOUTME: Returns changed/unchanged/unknown per poll instead of blocking on the provider
package voip

import (
	"context"
	"time"

	"github.com/harperreed/dialdeck/models"
)

const (
	// PollInterval is the delay between status checks during a live call.
	PollInterval = 2 * time.Second

	// MaxPolls bounds one monitoring session; past it the call is treated
	// as unknown rather than polled forever.
	MaxPolls = 30
)

// PollResult classifies one status check.
type PollResult int

const (
	// PollUnchanged: the provider reported the same state as last time.
	PollUnchanged PollResult = iota
	// PollChanged: the state advanced; State holds the new value.
	PollChanged
	// PollUnknown: the provider could not be reached or reported an
	// unrecognized state.
	PollUnknown
)

// StatusFunc fetches the current state of a call.
type StatusFunc func(ctx context.Context, callID string) (string, error)

// Poller tracks one call's last observed state across polls.
type Poller struct {
	CallID string
	Status StatusFunc

	lastState string
	polls     int
}

func NewPoller(callID string, status StatusFunc) *Poller {
	return &Poller{CallID: callID, Status: status}
}

// State returns the last observed call state.
func (p *Poller) State() string {
	if p.lastState == "" {
		return models.CallUnknown
	}
	return p.lastState
}

// Exhausted reports whether the poll budget is spent.
func (p *Poller) Exhausted() bool {
	return p.polls >= MaxPolls
}

// Poll performs one status check. Transient provider errors map to
// PollUnknown without consuming the last known state.
func (p *Poller) Poll(ctx context.Context) (PollResult, string) {
	p.polls++

	state, err := p.Status(ctx, p.CallID)
	if err != nil || state == models.CallUnknown {
		return PollUnknown, p.State()
	}

	if state == p.lastState {
		return PollUnchanged, state
	}
	p.lastState = state
	return PollChanged, state
}

// WaitForEnd polls until the call ends, the budget is exhausted, or ctx is
// canceled. It returns the final observed state.
func (p *Poller) WaitForEnd(ctx context.Context) (string, error) {
	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()

	for !p.Exhausted() {
		result, state := p.Poll(ctx)
		if result != PollUnknown && state == models.CallEnded {
			return state, nil
		}

		select {
		case <-ctx.Done():
			return p.State(), ctx.Err()
		case <-ticker.C:
		}
	}
	return p.State(), nil
}
