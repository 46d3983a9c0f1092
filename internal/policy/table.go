// Tier table loading and the built-in default table.
package policy

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// tableFile is the on-disk shape of a tier table, shared by the TOML and
// YAML loaders.
type tableFile struct {
	Version string            `toml:"version" yaml:"version"`
	Tiers   map[string]string `toml:"tiers" yaml:"tiers"`
}

// LoadTable reads a tier table from a TOML or YAML file, selected by
// extension (.toml, .yaml, .yml). Unknown tier values fail the load; a table
// with a bad entry never reaches a running session.
func LoadTable(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tier table: %w", err)
	}

	var file tableFile
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		if err := toml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parse tier table %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parse tier table %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("tier table %s: unsupported extension %q (want .toml, .yaml or .yml)", path, ext)
	}

	if file.Version == "" {
		return nil, fmt.Errorf("tier table %s: missing version", path)
	}
	if len(file.Tiers) == 0 {
		return nil, fmt.Errorf("tier table %s: no tiers defined", path)
	}

	tiers := make(map[string]RiskTier, len(file.Tiers))
	for command, raw := range file.Tiers {
		tiers[command] = RiskTier(strings.ToUpper(strings.TrimSpace(raw)))
	}
	return NewTable(file.Version, tiers)
}

// DefaultTable returns the built-in tier table for the container command
// surface. Read-only and lifecycle commands are SAFE, resource creation and
// removal need approval, and volume destruction plus system-wide pruning are
// blocked outright.
func DefaultTable() *Table {
	table, err := NewTable("builtin-v1", map[string]RiskTier{
		// Read-only
		"listContainers":    TierSafe,
		"listImages":        TierSafe,
		"listNetworks":      TierSafe,
		"listVolumes":       TierSafe,
		"inspectContainer":  TierSafe,
		"inspectImage":      TierSafe,
		"inspectNetwork":    TierSafe,
		"inspectVolume":     TierSafe,
		"containerLogs":     TierSafe,
		"containerStats":    TierSafe,
		"systemInfo":        TierSafe,
		"dockerVersion":     TierSafe,
		"composePs":         TierSafe,
		"composeLogs":       TierSafe,
		// Lifecycle of existing resources
		"startContainer":    TierSafe,
		"stopContainer":     TierSafe,
		"restartContainer":  TierSafe,
		// Resource creation and mutation
		"runContainer":      TierDangerous,
		"pullImage":         TierDangerous,
		"buildImage":        TierDangerous,
		"tagImage":          TierDangerous,
		"createNetwork":     TierDangerous,
		"createVolume":      TierDangerous,
		"connectNetwork":    TierDangerous,
		"disconnectNetwork": TierDangerous,
		"execInContainer":   TierDangerous,
		"composeUp":         TierDangerous,
		"composeDown":       TierDangerous,
		// Removal
		"removeContainer":   TierDangerous,
		"removeImage":       TierDangerous,
		"removeNetwork":     TierDangerous,
		"pruneImages":       TierDangerous,
		// Irreversible data destruction
		"removeVolume":      TierBlocked,
		"pruneVolumes":      TierBlocked,
		"systemPrune":       TierBlocked,
	})
	if err != nil {
		// The builtin table is a compile-time constant in all but syntax.
		panic(err)
	}
	return table
}
