package mediator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/vinayprograms/warden/internal/approval"
	"github.com/vinayprograms/warden/internal/policy"
	"github.com/vinayprograms/warden/internal/trajectory"
	"github.com/vinayprograms/warden/internal/validate"
)

// spyExecutor records every call and replays canned results.
type spyExecutor struct {
	mu      sync.Mutex
	calls   []string
	result  ExecResult
	execErr error
}

func (e *spyExecutor) Execute(ctx context.Context, command string, args map[string]string) (ExecResult, error) {
	e.mu.Lock()
	e.calls = append(e.calls, command)
	e.mu.Unlock()
	return e.result, e.execErr
}

func (e *spyExecutor) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.calls)
}

func newTestSession(t *testing.T, exec *spyExecutor, mutate func(*Config)) *Session {
	t.Helper()
	cfg := Config{
		Table:    policy.DefaultTable(),
		Executor: exec,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	sess, err := NewSession(cfg)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	return sess
}

func TestProposeAction_SafeAutoApprovedAndExecuted(t *testing.T) {
	exec := &spyExecutor{result: ExecResult{Output: "CONTAINER ID  IMAGE\nabc  nginx"}}
	sess := newTestSession(t, exec, nil)

	out, err := sess.ProposeAction(context.Background(), "listContainers", nil)
	if err != nil {
		t.Fatalf("ProposeAction: %v", err)
	}
	if out.Tier != policy.TierSafe {
		t.Errorf("tier = %s", out.Tier)
	}
	if out.State != approval.StateAutoApproved {
		t.Errorf("state = %s", out.State)
	}
	if !out.Envelope.Success {
		t.Errorf("envelope = %+v", out.Envelope)
	}
	if exec.callCount() != 1 {
		t.Errorf("executor called %d times, want 1", exec.callCount())
	}
	if out.ActionID == "" {
		t.Error("missing action id")
	}
}

func TestProposeAction_BlockedNeverReachesExecutor(t *testing.T) {
	exec := &spyExecutor{}
	sess := newTestSession(t, exec, nil)

	out, err := sess.ProposeAction(context.Background(), "removeVolume", map[string]string{"volume": "data"})
	var berr *BlockedError
	if !errors.As(err, &berr) {
		t.Fatalf("err = %v, want BlockedError", err)
	}
	if out.State != approval.StateAutoRejected {
		t.Errorf("state = %s", out.State)
	}
	if out.Envelope.Success {
		t.Error("blocked action must not report success")
	}
	if exec.callCount() != 0 {
		t.Errorf("executor called %d times for blocked command", exec.callCount())
	}
}

func TestProposeAction_UnknownCommandFailsClosed(t *testing.T) {
	exec := &spyExecutor{}
	sess := newTestSession(t, exec, nil)

	out, err := sess.ProposeAction(context.Background(), "formatDisk", nil)
	var berr *BlockedError
	if !errors.As(err, &berr) {
		t.Fatalf("err = %v, want BlockedError", err)
	}
	if out.Tier != policy.TierBlocked {
		t.Errorf("tier = %s, want BLOCKED", out.Tier)
	}
	if exec.callCount() != 0 {
		t.Error("executor reached for unknown command")
	}
}

func TestProposeAction_ValidationRejectsInjection(t *testing.T) {
	exec := &spyExecutor{}
	sess := newTestSession(t, exec, nil)

	out, err := sess.ProposeAction(context.Background(), "containerLogs", map[string]string{
		"container": "web; rm -rf /",
	})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	if verr.Rejection.Category != validate.CategoryForbiddenToken {
		t.Errorf("category = %s", verr.Rejection.Category)
	}
	if out.Envelope.Success {
		t.Error("rejected action must not report success")
	}
	if exec.callCount() != 0 {
		t.Error("executor reached despite validation rejection")
	}
	// Refusals still land in the trajectory so loops of bad calls abort.
	if sess.Trajectory().Len() != 1 {
		t.Errorf("trajectory len = %d, want 1", sess.Trajectory().Len())
	}
}

func TestProposeAction_DangerousApprovedViaCallback(t *testing.T) {
	exec := &spyExecutor{result: ExecResult{Output: "deleted"}}

	var sess *Session
	sess = newTestSession(t, exec, func(cfg *Config) {
		cfg.OnAwaitingDecision = func(p PendingAction) {
			if p.Tier != policy.TierDangerous {
				t.Errorf("pending tier = %s", p.Tier)
			}
			go func() {
				if err := sess.SupplyDecision(p.ActionID, approval.Decision{
					Type:   approval.DecisionApprove,
					Reason: "confirmed",
				}); err != nil {
					t.Errorf("SupplyDecision: %v", err)
				}
			}()
		}
	})

	out, err := sess.ProposeAction(context.Background(), "removeImage", map[string]string{"image": "old:latest"})
	if err != nil {
		t.Fatalf("ProposeAction: %v", err)
	}
	if out.State != approval.StateApproved {
		t.Errorf("state = %s", out.State)
	}
	if !out.Envelope.Success || out.Envelope.Payload != "deleted" {
		t.Errorf("envelope = %+v", out.Envelope)
	}
	if exec.callCount() != 1 {
		t.Errorf("executor called %d times", exec.callCount())
	}
}

func TestProposeAction_DangerousRejectedNeverExecutes(t *testing.T) {
	exec := &spyExecutor{}

	var sess *Session
	sess = newTestSession(t, exec, func(cfg *Config) {
		cfg.OnAwaitingDecision = func(p PendingAction) {
			go sess.SupplyDecision(p.ActionID, approval.Decision{
				Type:   approval.DecisionReject,
				Reason: "not today",
			})
		}
	})

	out, err := sess.ProposeAction(context.Background(), "removeImage", map[string]string{"image": "app:1"})
	if err != nil {
		t.Fatalf("ProposeAction returned %v for an operator rejection", err)
	}
	if out.State != approval.StateRejected {
		t.Errorf("state = %s", out.State)
	}
	if out.Envelope.Success {
		t.Error("rejected action must not report success")
	}
	if !strings.Contains(out.Envelope.Error, "not today") {
		t.Errorf("rejection reason lost: %q", out.Envelope.Error)
	}
	if exec.callCount() != 0 {
		t.Error("executor reached despite rejection")
	}
}

func TestProposeAction_AbandonedOnContextCancel(t *testing.T) {
	exec := &spyExecutor{}
	sess := newTestSession(t, exec, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	out, err := sess.ProposeAction(ctx, "pullImage", map[string]string{"image": "nginx"})
	if err == nil {
		t.Fatal("expected context error")
	}
	if out.Envelope.Success {
		t.Error("abandoned action must not report success")
	}
	if exec.callCount() != 0 {
		t.Error("executor reached after abandonment")
	}
}

func TestSupplyDecision_UnknownAction(t *testing.T) {
	sess := newTestSession(t, &spyExecutor{}, nil)
	err := sess.SupplyDecision("nope", approval.Decision{Type: approval.DecisionApprove})
	var uerr *UnknownActionError
	if !errors.As(err, &uerr) {
		t.Fatalf("err = %v, want UnknownActionError", err)
	}
}

func TestProposeAction_LoopAbortPreservesLastResult(t *testing.T) {
	exec := &spyExecutor{result: ExecResult{Output: "[]"}}
	sess := newTestSession(t, exec, func(cfg *Config) {
		cfg.Monitor = trajectory.NewMonitor(trajectory.MonitorConfig{
			EmptyStreakThreshold: 3,
			// keep the other detectors out of the way
			SameCommandThreshold: 100,
			IdenticalWindow:      100,
		})
	})

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		out, err := sess.ProposeAction(ctx, "listContainers", map[string]string{"n": fmt.Sprint(i)})
		if err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
		if out.Abort != nil {
			t.Fatalf("premature abort on call %d", i)
		}
	}

	out, err := sess.ProposeAction(ctx, "listContainers", map[string]string{"n": "2"})
	if err != nil {
		t.Fatalf("tripping call: %v", err)
	}
	if out.Abort == nil {
		t.Fatal("expected abort on third consecutive empty result")
	}
	if out.Abort.Detector != trajectory.DetectorConsecutiveEmpty {
		t.Errorf("detector = %s", out.Abort.Detector)
	}
	// The result that tripped the monitor still comes back intact.
	if !out.Envelope.Success {
		t.Errorf("final envelope = %+v", out.Envelope)
	}

	// The session is now terminal.
	_, err = sess.ProposeAction(ctx, "listImages", nil)
	var aerr *AbortError
	if !errors.As(err, &aerr) {
		t.Fatalf("post-abort err = %v, want AbortError", err)
	}
	if sess.Aborted() == nil {
		t.Error("Aborted() = nil after abort")
	}
}

func TestProposeAction_PersistsAuditLog(t *testing.T) {
	store, err := trajectory.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	exec := &spyExecutor{result: ExecResult{Output: "ok"}}
	sess := newTestSession(t, exec, func(cfg *Config) {
		cfg.Store = store
	})

	if _, err := sess.ProposeAction(context.Background(), "listContainers", nil); err != nil {
		t.Fatalf("ProposeAction: %v", err)
	}

	loaded, status, _, err := store.Load(sess.ID())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Len() != 1 {
		t.Errorf("persisted %d records, want 1", loaded.Len())
	}
	if status != trajectory.StatusActive {
		t.Errorf("status = %q", status)
	}
}

func TestProposeAction_ExecutorFailureWrapped(t *testing.T) {
	exec := &spyExecutor{result: ExecResult{Failed: true, Message: "no such container: web"}}
	sess := newTestSession(t, exec, nil)

	out, err := sess.ProposeAction(context.Background(), "containerLogs", map[string]string{"container": "web"})
	if err != nil {
		t.Fatalf("tool failure must not surface as a mediation error: %v", err)
	}
	if out.Envelope.Success {
		t.Error("failed execution reported success")
	}
	if out.Envelope.Error != "no such container: web" {
		t.Errorf("error = %q", out.Envelope.Error)
	}
	if out.Envelope.Truncated {
		t.Error("failure envelope marked truncated")
	}
}

func TestIsEmptyOutput(t *testing.T) {
	empty := []string{"", "   ", "\n", "none", "None", "null", "[]", "{}", "  [] \n"}
	for _, s := range empty {
		if !IsEmptyOutput(s) {
			t.Errorf("IsEmptyOutput(%q) = false", s)
		}
	}
	full := []string{"[{}]", "0", "ok", "{\"id\":1}"}
	for _, s := range full {
		if IsEmptyOutput(s) {
			t.Errorf("IsEmptyOutput(%q) = true", s)
		}
	}
}
