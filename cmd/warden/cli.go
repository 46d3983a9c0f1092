// Package main defines the CLI structure using kong.
package main

import "github.com/alecthomas/kong"

// CLI defines the command-line interface.
type CLI struct {
	Config string `help:"Config file path (default: ./warden.toml)" type:"path"`

	Run     RunCmd     `cmd:"" help:"Mediate tool proposals read from stdin"`
	Check   CheckCmd   `cmd:"" help:"Validate a risk tier table"`
	Trail   TrailCmd   `cmd:"" help:"Show a persisted session audit trail"`
	Version VersionCmd `cmd:"" help:"Show version information"`
}

// RunCmd runs the interactive mediation loop.
type RunCmd struct {
	Table    string `short:"t" help:"Risk tier table path (overrides config)"`
	Audit    string `help:"Audit log directory (overrides config)"`
	NoAudit  bool   `help:"Disable audit persistence"`
	Binary   string `help:"Docker binary path (overrides config)"`
	WorkDir  string `help:"Working directory for compose commands"`
	AutoDeny bool   `help:"Reject every dangerous action without prompting"`
}

// CheckCmd validates a tier table and prints its contents.
type CheckCmd struct {
	Table string `arg:"" optional:"" help:"Tier table path (omit for the builtin table)"`
}

// TrailCmd renders a persisted audit trail.
type TrailCmd struct {
	Session string `arg:"" help:"Session ID or path to a .jsonl audit file"`
}

// VersionCmd shows version information.
type VersionCmd struct{}

// kongVars returns variables for kong (version info).
func kongVars() kong.Vars {
	return kong.Vars{
		"version": version,
	}
}
