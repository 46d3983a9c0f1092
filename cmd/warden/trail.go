package main

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/vinayprograms/warden/internal/config"
	"github.com/vinayprograms/warden/internal/trajectory"
)

// Run renders a persisted audit trail in session order.
func (t *TrailCmd) Run(cfg *config.Config) error {
	dir, sessionID := t.resolve(cfg)
	store, err := trajectory.NewStore(dir)
	if err != nil {
		return err
	}

	traj, status, abort, err := store.Load(sessionID)
	if err != nil {
		return fmt.Errorf("load audit trail: %w", err)
	}

	fmt.Println(titleStyle.Render(fmt.Sprintf("session %s (%d actions, %s)", sessionID, traj.Len(), status)))
	for i, rec := range traj.Records() {
		fmt.Printf("%s %s %-22s %s %s\n",
			dimStyle.Render(fmt.Sprintf("%4d", i+1)),
			dimStyle.Render(rec.Timestamp.Format("15:04:05")),
			rec.Command,
			renderDecision(rec.Decision, rec.Success),
			dimStyle.Render(rec.Summary))
		if len(rec.Args) > 0 {
			fmt.Printf("       %s\n", dimStyle.Render(formatArgs(rec.Args)))
		}
	}
	if abort != nil {
		fmt.Printf("\n%s\n", errorStyle.Render(fmt.Sprintf("aborted by %s: %s", abort.Detector, abort.Reason)))
	}
	return nil
}

// resolve accepts either a bare session ID (looked up in the audit dir) or
// a path to a .jsonl file.
func (t *TrailCmd) resolve(cfg *config.Config) (dir, sessionID string) {
	if strings.HasSuffix(t.Session, ".jsonl") {
		return filepath.Dir(t.Session), strings.TrimSuffix(filepath.Base(t.Session), ".jsonl")
	}
	return cfg.AuditDir(), t.Session
}

func renderDecision(decision string, success bool) string {
	switch decision {
	case "AUTO_APPROVED", "APPROVED":
		if success {
			return successStyle.Render(decision)
		}
		return errorStyle.Render(decision)
	case "AUTO_REJECTED", "REJECTED":
		return blockedStyle.Render(decision)
	default:
		return dangerStyle.Render(decision)
	}
}

func formatArgs(args map[string]string) string {
	parts := make([]string, 0, len(args))
	for k, v := range args {
		parts = append(parts, k+"="+v)
	}
	sort.Strings(parts)
	return strings.Join(parts, " ")
}
