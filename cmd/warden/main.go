// Package main is the entry point for the warden mediation CLI.
package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"github.com/vinayprograms/warden/internal/config"
)

// Build-time variables (set via ldflags)
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

func init() {
	// Load .env for any additional env vars
	_ = godotenv.Load()
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("warden"),
		kong.Description("Safety and mediation layer between a tool-using planner and the docker CLI."),
		kong.UsageOnError(),
		kongVars(),
	)

	cfg, err := loadConfig(cli.Config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warden: %v\n", err)
		os.Exit(1)
	}

	if err := ctx.Run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "warden: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig loads the named config file, or warden.toml when present, or
// defaults when neither exists.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	if _, err := os.Stat("warden.toml"); err == nil {
		return config.LoadDefault()
	}
	return config.Default(), nil
}

// Run prints version information.
func (v *VersionCmd) Run(cfg *config.Config) error {
	fmt.Printf("warden version %s (commit: %s, built: %s)\n", version, commit, buildTime)
	return nil
}
