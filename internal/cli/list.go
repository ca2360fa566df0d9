package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/agentpm/pkg/installer"
)

// listCommand creates the list command.
func (c *CLI) listCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List installed packages and flag orphans",
		RunE: func(cmd *cobra.Command, args []string) error {
			inst, err := c.newInstaller()
			if err != nil {
				return err
			}
			st, err := inst.Status()
			if err != nil {
				return err
			}
			if len(st.Packages) == 0 && len(st.Orphans) == 0 {
				printInfo("No packages installed")
				return nil
			}

			for _, pkg := range st.Packages {
				label := pkg.Dependency.Key()
				detail := describeEntry(pkg.Dependency.ResolvedRef, pkg.Dependency.ResolvedCommit)
				switch {
				case !pkg.Installed:
					printError("%s %s", label, StyleDim.Render("(missing on disk, run 'agentpm install')"))
				case detail != "":
					printSuccess("%s %s", label, StyleDim.Render("("+detail+")"))
				default:
					printSuccess("%s", label)
				}
				if pkg.Manifest != nil && pkg.Manifest.Description != "" {
					printDetail("%s", pkg.Manifest.Description)
				}
			}

			if len(st.Orphans) > 0 {
				printNewline()
				printWarning("%d orphaned package(s) found (not in apm.lock):", len(st.Orphans))
				for _, orphan := range st.Orphans {
					printDetail("%s", orphan)
				}
				printDetail("Orphans are not tracked; delete them from %s/ by hand", installer.ModulesDir)
			}
			return nil
		},
	}
}

// describeEntry formats a lock entry's resolution for display.
func describeEntry(ref, commit string) string {
	if len(commit) > 8 {
		commit = commit[:8]
	}
	switch {
	case ref != "" && commit != "":
		return fmt.Sprintf("%s @ %s", ref, commit)
	case commit != "":
		return commit
	default:
		return ref
	}
}
