package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/vinayprograms/warden/internal/approval"
	"github.com/vinayprograms/warden/internal/config"
	"github.com/vinayprograms/warden/internal/dockercli"
	"github.com/vinayprograms/warden/internal/mediator"
	"github.com/vinayprograms/warden/internal/policy"
	"github.com/vinayprograms/warden/internal/trajectory"
	"github.com/vinayprograms/warden/internal/validate"
)

// proposal is one line of planner input.
type proposal struct {
	Command string            `json:"command"`
	Args    map[string]string `json:"args,omitempty"`
}

// Run reads JSON proposals from stdin, one per line, and writes an envelope
// per proposal to stdout. When a dangerous action suspends, the next stdin
// line is consumed as the operator's decision.
func (r *RunCmd) Run(cfg *config.Config) error {
	telem, err := setupTelemetry(cfg)
	if err != nil {
		return err
	}
	defer telem.Close()

	sess, scanner, err := r.buildSession(cfg, os.Stdin, os.Stdout)
	if err != nil {
		return err
	}
	return r.loop(sess, scanner, os.Stdout)
}

// buildSession assembles the mediation session from config and flags.
func (r *RunCmd) buildSession(cfg *config.Config, in io.Reader, out io.Writer) (*mediator.Session, *bufio.Scanner, error) {
	table, err := r.loadTable(cfg)
	if err != nil {
		return nil, nil, err
	}

	binary := cfg.Executor.Binary
	if r.Binary != "" {
		binary = r.Binary
	}
	workDir := cfg.Executor.WorkDir
	if r.WorkDir != "" {
		workDir = r.WorkDir
	}
	exec := dockercli.New(
		dockercli.WithBinary(binary),
		dockercli.WithTimeout(cfg.ExecTimeout()),
		dockercli.WithWorkDir(workDir),
	)

	var store *trajectory.Store
	if cfg.Audit.Enabled && !r.NoAudit {
		dir := cfg.AuditDir()
		if r.Audit != "" {
			dir = r.Audit
		}
		store, err = trajectory.NewStore(dir)
		if err != nil {
			return nil, nil, fmt.Errorf("audit store: %w", err)
		}
	}

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var sess *mediator.Session
	sess, err = mediator.NewSession(mediator.Config{
		Table: table,
		// No allow-list here: the tier table is the single authority on
		// command identifiers, and unlisted ones classify as blocked.
		Validator: validate.New(validate.Config{
			ForbiddenTokens:   cfg.Validator.ForbiddenTokens,
			MaxArgumentLength: cfg.Validator.MaxArgumentLength,
		}),
		Monitor: trajectory.NewMonitor(trajectory.MonitorConfig{
			EmptyStreakThreshold: cfg.Monitor.EmptyStreakThreshold,
			SameCommandThreshold: cfg.Monitor.SameCommandThreshold,
			IdenticalWindow:      cfg.Monitor.IdenticalWindow,
			SignaturePrefixLen:   cfg.Monitor.SignaturePrefixLen,
		}),
		Executor:       exec,
		Store:          store,
		MaxOutputChars: cfg.Output.MaxChars,
		OnAwaitingDecision: func(p mediator.PendingAction) {
			if r.AutoDeny {
				go sess.SupplyDecision(p.ActionID, approval.Decision{
					Type:   approval.DecisionReject,
					Reason: "auto-deny mode",
				})
				return
			}
			fmt.Fprintf(out, "%s %s %s %v\n",
				promptStyle.Render("[approval required]"),
				renderTier(p.Tier), p.Command, p.Args)
			fmt.Fprintf(out, "%s ", promptStyle.Render("approve/reject [reason]?"))
			// The proposing goroutine is blocked in ProposeAction, so
			// taking the next line from the shared scanner is safe here.
			go func() {
				decision := approval.Decision{Type: approval.DecisionReject, Reason: "no decision supplied"}
				if scanner.Scan() {
					decision = parseDecision(scanner.Text())
				}
				sess.SupplyDecision(p.ActionID, decision)
			}()
		},
	})
	if err != nil {
		return nil, nil, err
	}
	return sess, scanner, nil
}

func (r *RunCmd) loadTable(cfg *config.Config) (*policy.Table, error) {
	path := cfg.Policy.TablePath
	if r.Table != "" {
		path = r.Table
	}
	if path == "" {
		return policy.DefaultTable(), nil
	}
	return policy.LoadTable(path)
}

// loop drives proposals until stdin closes or the session aborts.
func (r *RunCmd) loop(sess *mediator.Session, scanner *bufio.Scanner, out io.Writer) error {
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var p proposal
		if err := json.Unmarshal([]byte(line), &p); err != nil {
			fmt.Fprintf(out, "%s\n", errorStyle.Render(fmt.Sprintf("unparseable proposal: %v", err)))
			continue
		}

		outcome, err := sess.ProposeAction(context.Background(), p.Command, p.Args)
		printOutcome(out, outcome, err)

		if outcome.Abort != nil {
			fmt.Fprintf(out, "%s\n", errorStyle.Render("session aborted: "+outcome.Abort.Reason))
			return nil
		}
	}
	return scanner.Err()
}

// printOutcome writes one resolution: a status line for the human, then the
// envelope JSON for the planner.
func printOutcome(out io.Writer, outcome mediator.Outcome, err error) {
	label := string(outcome.State)
	if label == "" {
		label = "REFUSED"
	}
	status := successStyle.Render(label)
	if !outcome.Envelope.Success {
		status = errorStyle.Render(label)
	}
	tier := ""
	if outcome.Tier != "" {
		tier = renderTier(outcome.Tier) + " "
	}
	fmt.Fprintf(out, "%s %s%s %s\n", dimStyle.Render(outcome.ActionID[:8]), tier, outcome.Command, status)
	if err != nil {
		fmt.Fprintf(out, "%s\n", dimStyle.Render(err.Error()))
	}

	data, jsonErr := json.Marshal(outcome.Envelope)
	if jsonErr != nil {
		fmt.Fprintf(out, "%s\n", errorStyle.Render(jsonErr.Error()))
		return
	}
	fmt.Fprintf(out, "%s\n", data)
}

// parseDecision interprets an operator line: "approve" or "reject", with an
// optional trailing reason. Anything unrecognized rejects.
func parseDecision(line string) approval.Decision {
	fields := strings.Fields(strings.TrimSpace(line))
	if len(fields) == 0 {
		return approval.Decision{Type: approval.DecisionReject, Reason: "empty decision"}
	}
	verdict := strings.ToLower(fields[0])
	reason := strings.Join(fields[1:], " ")

	switch verdict {
	case "approve", "yes", "y":
		return approval.Decision{Type: approval.DecisionApprove, Reason: reason}
	case "reject", "no", "n":
		if reason == "" {
			reason = "rejected at prompt"
		}
		return approval.Decision{Type: approval.DecisionReject, Reason: reason}
	}
	return approval.Decision{Type: approval.DecisionReject, Reason: fmt.Sprintf("unrecognized verdict %q", verdict)}
}
