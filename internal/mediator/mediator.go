// Package mediator dispatches proposed tool invocations through policy
// classification, argument validation, the approval state machine, and the
// trajectory monitor before anything reaches the executor.
package mediator

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/vinayprograms/agentkit/logging"
	"github.com/vinayprograms/warden/internal/approval"
	"github.com/vinayprograms/warden/internal/envelope"
	"github.com/vinayprograms/warden/internal/policy"
	"github.com/vinayprograms/warden/internal/trajectory"
	"github.com/vinayprograms/warden/internal/validate"
)

// Decision labels recorded in the trajectory for non-approval outcomes.
const (
	decisionValidationRejected = "VALIDATION_REJECTED"
	decisionAbandoned          = "ABANDONED"
)

// ExecResult is what an executor reports back for one approved invocation.
type ExecResult struct {
	Output  string // raw tool output, untruncated
	Empty   bool   // output carried no information
	Failed  bool   // tool ran but reported failure
	Message string // failure detail when Failed
}

// Executor runs an approved command. Implementations must not interpret
// arguments through a shell.
type Executor interface {
	Execute(ctx context.Context, command string, args map[string]string) (ExecResult, error)
}

// PendingAction describes a suspended action handed to the decision callback.
type PendingAction struct {
	ActionID string
	Command  string
	Args     map[string]string
	Tier     policy.RiskTier
}

// Outcome is the full resolution of one proposed action. Envelope always
// carries something presentable to the planner; Abort is set when this
// action's observation tripped the trajectory monitor.
type Outcome struct {
	ActionID string
	Command  string
	Tier     policy.RiskTier
	State    approval.State
	Envelope envelope.Envelope
	Abort    *trajectory.Abort
}

// Config assembles a session's collaborators.
type Config struct {
	Table     *policy.Table
	Validator *validate.Validator
	Monitor   *trajectory.Monitor
	Executor  Executor
	Store     *trajectory.Store // optional audit persistence

	MaxOutputChars int // 0 takes the envelope default

	// OnAwaitingDecision is invoked, if set, when an action suspends.
	// Called on the proposing goroutine before it blocks; the decision
	// itself must arrive via SupplyDecision from elsewhere.
	OnAwaitingDecision func(PendingAction)
}

// Session mediates one planner session. ProposeAction calls are serialized;
// SupplyDecision is safe to call concurrently from another goroutine while a
// proposal is suspended.
type Session struct {
	id     string
	cfg    Config
	logger *logging.Logger

	mu sync.Mutex // serializes ProposeAction

	pendMu  sync.Mutex
	pending map[string]*approval.Machine

	traj    *trajectory.Trajectory
	aborted *trajectory.Abort
}

// NewSession creates a mediation session. Table and Executor are required.
func NewSession(cfg Config) (*Session, error) {
	if cfg.Table == nil {
		return nil, fmt.Errorf("mediator: policy table is required")
	}
	if cfg.Executor == nil {
		return nil, fmt.Errorf("mediator: executor is required")
	}
	if cfg.Validator == nil {
		cfg.Validator = validate.New(validate.Config{})
	}
	if cfg.Monitor == nil {
		cfg.Monitor = trajectory.NewMonitor(trajectory.MonitorConfig{})
	}
	return &Session{
		id:      uuid.NewString(),
		cfg:     cfg,
		logger:  logging.New().WithComponent("mediator"),
		pending: make(map[string]*approval.Machine),
		traj:    trajectory.New(),
	}, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Aborted returns the abort that terminated the session, or nil.
func (s *Session) Aborted() *trajectory.Abort {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.aborted
}

// Trajectory exposes the session's invocation log.
func (s *Session) Trajectory() *trajectory.Trajectory { return s.traj }

// ProposeAction mediates one invocation from the planner. It blocks for the
// whole lifecycle, including human approval for dangerous commands, and
// returns an Outcome whose envelope is always safe to hand back.
func (s *Session) ProposeAction(ctx context.Context, command string, args map[string]string) (out Outcome, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	actionID := uuid.NewString()
	out = Outcome{ActionID: actionID, Command: command}

	if s.aborted != nil {
		abortErr := &AbortError{SessionID: s.id, Abort: s.aborted}
		out.Abort = s.aborted
		out.Envelope = envelope.WrapError(abortErr.Error())
		return out, abortErr
	}

	ctx, span := s.startActionSpan(ctx, actionID, command)
	defer func() {
		s.endActionSpan(span, string(out.Tier), string(out.State), err)
	}()

	// Validation runs before classification so malformed input never
	// reaches the policy layer. Keys are scanned too; a hostile planner
	// controls both sides of the argument map.
	if rejection := s.cfg.Validator.Validate(command, flattenArgs(args)); rejection != nil {
		valErr := &ValidationError{ActionID: actionID, Command: command, Rejection: rejection}
		out.Envelope = envelope.WrapError(rejection.Message())
		s.record(trajectory.Record{
			ActionID: actionID,
			Command:  command,
			Args:     args,
			Decision: decisionValidationRejected,
			Summary:  rejection.Message(),
		})
		if abortErr := s.afterRecord(&out); abortErr != nil {
			return out, abortErr
		}
		return out, valErr
	}

	out.Tier = s.cfg.Table.Classify(command)
	machine := approval.NewMachine(actionID, out.Tier)

	if machine.State() == approval.StateAwaitingDecision {
		s.pendMu.Lock()
		s.pending[actionID] = machine
		s.pendMu.Unlock()
		defer func() {
			s.pendMu.Lock()
			delete(s.pending, actionID)
			s.pendMu.Unlock()
		}()

		if s.cfg.OnAwaitingDecision != nil {
			s.cfg.OnAwaitingDecision(PendingAction{
				ActionID: actionID,
				Command:  command,
				Args:     args,
				Tier:     out.Tier,
			})
		}
	}

	state, err := machine.Await(ctx)
	out.State = state
	if err != nil {
		// Context ended while suspended. The action is abandoned, not
		// decided; record it so repeated abandonment still counts.
		out.Envelope = envelope.WrapError(fmt.Sprintf("approval abandoned: %v", err))
		s.record(trajectory.Record{
			ActionID: actionID,
			Command:  command,
			Args:     args,
			Tier:     string(out.Tier),
			Decision: decisionAbandoned,
			Summary:  err.Error(),
		})
		if abortErr := s.afterRecord(&out); abortErr != nil {
			return out, abortErr
		}
		return out, err
	}

	if !state.Approved() {
		var refuseErr error
		summary := "rejected by operator"
		if reason := machine.Reason(); reason != "" {
			summary = fmt.Sprintf("rejected by operator: %s", reason)
		}
		if state == approval.StateAutoRejected {
			refuseErr = &BlockedError{ActionID: actionID, Command: command}
			summary = fmt.Sprintf("command %q is blocked by policy", command)
		}
		out.Envelope = envelope.WrapError(summary)
		s.record(trajectory.Record{
			ActionID: actionID,
			Command:  command,
			Args:     args,
			Tier:     string(out.Tier),
			Decision: string(state),
			Summary:  summary,
		})
		if abortErr := s.afterRecord(&out); abortErr != nil {
			return out, abortErr
		}
		return out, refuseErr
	}

	env, empty := s.execute(ctx, command, args)
	out.Envelope = env
	s.record(trajectory.Record{
		ActionID: actionID,
		Command:  command,
		Args:     args,
		Tier:     string(out.Tier),
		Decision: string(state),
		Success:  env.Success,
		Empty:    empty,
		Summary:  env.Error,
	})
	if abortErr := s.afterRecord(&out); abortErr != nil {
		return out, abortErr
	}
	return out, nil
}

// SupplyDecision delivers a human verdict for a suspended action. It is the
// counterpart to the OnAwaitingDecision callback and must be called from a
// goroutine other than the one blocked in ProposeAction.
func (s *Session) SupplyDecision(actionID string, d approval.Decision) error {
	s.pendMu.Lock()
	machine, ok := s.pending[actionID]
	s.pendMu.Unlock()
	if !ok {
		return &UnknownActionError{ActionID: actionID}
	}
	return machine.Decide(d)
}

// execute runs the approved command and wraps whatever comes back. The
// second return is the emptiness verdict fed to the loop detectors.
func (s *Session) execute(ctx context.Context, command string, args map[string]string) (envelope.Envelope, bool) {
	ctx, span := s.startExecSpan(ctx, command)
	result, err := s.cfg.Executor.Execute(ctx, command, args)
	s.endExecSpan(span, result, err)

	if err != nil {
		s.logger.Error("executor error", map[string]interface{}{
			"command": command,
			"error":   err.Error(),
		})
		return envelope.WrapError(err.Error()), false
	}
	if result.Failed {
		msg := result.Message
		if msg == "" {
			msg = fmt.Sprintf("command %q failed", command)
		}
		return envelope.WrapError(msg), false
	}
	empty := result.Empty || IsEmptyOutput(result.Output)
	return envelope.Wrap(result.Output, s.cfg.MaxOutputChars), empty
}

// record appends to the trajectory log.
func (s *Session) record(r trajectory.Record) {
	s.traj.Append(r)
}

// afterRecord persists the trajectory and runs the loop detectors. A store
// write failure is fatal: an unauditable session must not continue. A
// detected loop marks the session terminal but still returns this action's
// outcome intact.
func (s *Session) afterRecord(out *Outcome) error {
	abort := s.cfg.Monitor.Observe(s.traj)
	if abort != nil {
		s.aborted = abort
		out.Abort = abort
	}

	if s.cfg.Store != nil {
		status := trajectory.StatusActive
		if abort != nil {
			status = trajectory.StatusAborted
		}
		if err := s.cfg.Store.Save(s.id, s.traj, status, abort); err != nil {
			return fmt.Errorf("audit log write failed: %w", err)
		}
	}
	return nil
}

// flattenArgs turns the argument map into a deterministic token list for
// the validator, keys and values both.
func flattenArgs(args map[string]string) []string {
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	flat := make([]string, 0, len(args)*2)
	for _, k := range keys {
		flat = append(flat, k, args[k])
	}
	return flat
}

// IsEmptyOutput reports whether tool output carries no information: blank,
// or a bare "none"/"null" or empty JSON container once trimmed.
func IsEmptyOutput(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "none", "null", "[]", "{}":
		return true
	}
	return false
}
