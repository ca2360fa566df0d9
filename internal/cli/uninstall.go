package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/agentpm/pkg/installer"
)

// uninstallCommand creates the uninstall command.
func (c *CLI) uninstallCommand() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "uninstall <references...>",
		Short: "Remove installed packages and their orphaned dependencies",
		Long: `Uninstall removes the named packages from apm_modules/ together with
any transitive dependencies no remaining declared dependency still
needs, and updates apm.lock accordingly.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inst, err := c.newInstaller()
			if err != nil {
				return err
			}
			res, err := inst.Uninstall(cmd.Context(), args, installer.Options{
				DryRun: dryRun,
				Logger: c.Logger.Debugf,
			})
			if err != nil {
				return err
			}

			if res.DryRun {
				printInfo("Would remove %d package(s):", len(res.Removed))
				for _, key := range res.Removed {
					printDetail("%s", key)
				}
				return nil
			}

			for _, key := range res.Removed {
				printSuccess("removed %s", key)
			}
			for _, failure := range res.Failures {
				printError("%s: %v", failure.Key, failure.Err)
			}
			if len(res.Failures) > 0 {
				return fmt.Errorf("%d package(s) could not be removed", len(res.Failures))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report what would be removed without touching disk")
	return cmd
}
