// Package approval implements the per-action approval state machine that
// gates dangerous tool invocations behind a human decision.
package approval

import (
	"context"
	"fmt"
	"sync"

	"github.com/vinayprograms/agentkit/logging"
	"github.com/vinayprograms/warden/internal/policy"
)

// State of an approval machine. Every action starts in StateProposed and
// ends in exactly one of the terminal states.
type State string

const (
	StateProposed         State = "PROPOSED"
	StateAutoApproved     State = "AUTO_APPROVED"
	StateAutoRejected     State = "AUTO_REJECTED"
	StateAwaitingDecision State = "AWAITING_DECISION"
	StateApproved         State = "APPROVED"
	StateRejected         State = "REJECTED"
)

// Terminal reports whether the state allows execution to proceed or the
// action to be discarded; awaiting and proposed states are not terminal.
func (s State) Terminal() bool {
	switch s {
	case StateAutoApproved, StateAutoRejected, StateApproved, StateRejected:
		return true
	}
	return false
}

// Approved reports whether the state permits execution.
func (s State) Approved() bool {
	return s == StateAutoApproved || s == StateApproved
}

// DecisionType is a human verdict on a suspended action.
type DecisionType string

const (
	DecisionApprove DecisionType = "APPROVE"
	DecisionReject  DecisionType = "REJECT"
)

// Decision is the human response supplied to a suspended machine.
type Decision struct {
	Type   DecisionType
	Reason string
}

// ProtocolError reports a decision that violates the state machine, such as
// deciding an action that never suspended or deciding one twice.
type ProtocolError struct {
	ActionID string
	State    State
	Msg      string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("approval protocol violation for action %s (state %s): %s", e.ActionID, e.State, e.Msg)
}

// Machine tracks the approval lifecycle of a single proposed action. SAFE
// actions resolve immediately to AUTO_APPROVED, BLOCKED to AUTO_REJECTED,
// and DANGEROUS actions suspend in AWAITING_DECISION until Decide is called
// from another goroutine.
type Machine struct {
	actionID string
	tier     policy.RiskTier

	mu     sync.Mutex
	state  State
	reason string

	decisionCh chan Decision
	logger     *logging.Logger
}

// NewMachine creates a machine for one action and resolves the tiers that
// need no human input.
func NewMachine(actionID string, tier policy.RiskTier) *Machine {
	m := &Machine{
		actionID:   actionID,
		tier:       tier,
		state:      StateProposed,
		decisionCh: make(chan Decision, 1),
		logger:     logging.New().WithComponent("approval"),
	}

	switch tier {
	case policy.TierSafe:
		m.state = StateAutoApproved
	case policy.TierDangerous:
		m.state = StateAwaitingDecision
	default:
		// Unknown tiers fail closed, same as BLOCKED.
		m.state = StateAutoRejected
	}

	m.logger.Debug("approval machine created", map[string]interface{}{
		"action_id": actionID,
		"tier":      string(tier),
		"state":     string(m.state),
	})
	return m
}

// ActionID returns the action this machine gates.
func (m *Machine) ActionID() string { return m.actionID }

// Tier returns the risk tier the machine was created with.
func (m *Machine) Tier() policy.RiskTier { return m.tier }

// State returns the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Reason returns the decision reason, if one was supplied.
func (m *Machine) Reason() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reason
}

// Decide supplies a human verdict to a suspended machine. It returns a
// ProtocolError if the machine is not awaiting a decision: SAFE and BLOCKED
// actions accept no decision, and a second verdict on the same action is
// rejected.
func (m *Machine) Decide(d Decision) error {
	if d.Type != DecisionApprove && d.Type != DecisionReject {
		return &ProtocolError{
			ActionID: m.actionID,
			State:    m.State(),
			Msg:      fmt.Sprintf("unknown decision type %q", d.Type),
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.state {
	case StateAwaitingDecision:
		// fall through to deliver
	case StateAutoApproved:
		return &ProtocolError{ActionID: m.actionID, State: m.state, Msg: "action was auto-approved and accepts no decision"}
	case StateAutoRejected:
		return &ProtocolError{ActionID: m.actionID, State: m.state, Msg: "action was auto-rejected and accepts no decision"}
	case StateApproved, StateRejected:
		return &ProtocolError{ActionID: m.actionID, State: m.state, Msg: "action already decided"}
	default:
		return &ProtocolError{ActionID: m.actionID, State: m.state, Msg: "action is not awaiting a decision"}
	}

	if d.Type == DecisionApprove {
		m.state = StateApproved
	} else {
		m.state = StateRejected
	}
	m.reason = d.Reason

	m.logger.Info("decision recorded", map[string]interface{}{
		"action_id": m.actionID,
		"decision":  string(d.Type),
		"state":     string(m.state),
	})

	// Buffered, never blocks: only one decision is ever accepted.
	m.decisionCh <- d
	return nil
}

// Await blocks until the machine reaches a terminal state or the context is
// done. Auto-resolved machines return immediately. On context cancellation
// the machine stays suspended and the context error is returned.
func (m *Machine) Await(ctx context.Context) (State, error) {
	m.mu.Lock()
	state := m.state
	m.mu.Unlock()

	if state.Terminal() {
		return state, nil
	}

	m.logger.Info("suspended, waiting for decision", map[string]interface{}{
		"action_id": m.actionID,
		"tier":      string(m.tier),
	})

	select {
	case <-m.decisionCh:
		return m.State(), nil
	case <-ctx.Done():
		return m.State(), ctx.Err()
	}
}
