// Package policy classifies proposed commands into risk tiers.
package policy

import (
	"fmt"
	"sort"
)

// RiskTier is the risk classification of a command.
type RiskTier string

const (
	// TierSafe commands execute without approval.
	TierSafe RiskTier = "SAFE"
	// TierDangerous commands suspend until a human decision arrives.
	TierDangerous RiskTier = "DANGEROUS"
	// TierBlocked commands are rejected unconditionally. Commands absent
	// from the table classify as TierBlocked.
	TierBlocked RiskTier = "BLOCKED"
)

// valid reports whether t is one of the three known tiers.
func (t RiskTier) valid() bool {
	switch t {
	case TierSafe, TierDangerous, TierBlocked:
		return true
	}
	return false
}

// Table maps command identifiers to risk tiers. Tables are populated at load
// time and never mutated afterwards, so a single Table is safe to share
// across sessions without locking. Table updates are a deployment concern.
type Table struct {
	version string
	tiers   map[string]RiskTier
}

// NewTable builds a table from an explicit tier mapping. The mapping is
// copied; later changes to the argument do not affect the table.
func NewTable(version string, tiers map[string]RiskTier) (*Table, error) {
	copied := make(map[string]RiskTier, len(tiers))
	for command, tier := range tiers {
		if command == "" {
			return nil, fmt.Errorf("tier table %q: empty command identifier", version)
		}
		if !tier.valid() {
			return nil, fmt.Errorf("tier table %q: command %q has unknown tier %q", version, command, tier)
		}
		copied[command] = tier
	}
	return &Table{version: version, tiers: copied}, nil
}

// Version returns the table's version string.
func (t *Table) Version() string {
	return t.version
}

// Classify returns the risk tier for a command. Commands not present in the
// table classify as TierBlocked (fail-closed default).
func (t *Table) Classify(command string) RiskTier {
	if tier, ok := t.tiers[command]; ok {
		return tier
	}
	return TierBlocked
}

// Lookup returns the tier for a command and whether the command is known.
// Callers that need to distinguish "explicitly blocked" from "unknown,
// defaulted to blocked" use this instead of Classify.
func (t *Table) Lookup(command string) (RiskTier, bool) {
	tier, ok := t.tiers[command]
	if !ok {
		return TierBlocked, false
	}
	return tier, true
}

// Commands returns the sorted list of commands the table knows about.
func (t *Table) Commands() []string {
	out := make([]string, 0, len(t.tiers))
	for command := range t.tiers {
		out = append(out, command)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of commands in the table.
func (t *Table) Len() int {
	return len(t.tiers)
}
