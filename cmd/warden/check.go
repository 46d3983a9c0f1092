package main

import (
	"fmt"

	"github.com/vinayprograms/warden/internal/config"
	"github.com/vinayprograms/warden/internal/policy"
)

// Run validates a tier table and prints every command with its tier.
func (c *CheckCmd) Run(cfg *config.Config) error {
	table, err := c.load(cfg)
	if err != nil {
		return err
	}

	fmt.Println(titleStyle.Render(fmt.Sprintf("tier table %s (%d commands)", table.Version(), table.Len())))
	counts := map[policy.RiskTier]int{}
	for _, command := range table.Commands() {
		tier, _ := table.Lookup(command)
		counts[tier]++
		fmt.Printf("  %-22s %s\n", command, renderTier(tier))
	}
	fmt.Printf("\n%s\n", dimStyle.Render(fmt.Sprintf(
		"safe=%d dangerous=%d blocked=%d, unlisted commands are blocked",
		counts[policy.TierSafe], counts[policy.TierDangerous], counts[policy.TierBlocked])))
	return nil
}

func (c *CheckCmd) load(cfg *config.Config) (*policy.Table, error) {
	path := c.Table
	if path == "" {
		path = cfg.Policy.TablePath
	}
	if path == "" {
		return policy.DefaultTable(), nil
	}
	return policy.LoadTable(path)
}
