package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/agentpm/pkg/installer"
)

// updateCommand creates the update command.
func (c *CLI) updateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "update [references...]",
		Short: "Re-download declared dependencies",
		Long: `Update re-fetches dependencies declared in apm.yml, picking up new
commits on branch references and refreshing even commit-pinned
packages. Without arguments every declared dependency is updated;
with arguments only the named ones are.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			inst, err := c.newInstaller()
			if err != nil {
				return err
			}

			p := newProgress(c.Logger)
			sp := newSpinnerWithContext(cmd.Context(), "Updating dependencies...")
			sp.Start()
			res, err := inst.Update(cmd.Context(), args, installer.Options{
				Logger: c.Logger.Debugf,
			})
			sp.Stop()
			if err != nil {
				return err
			}
			return reportInstall(res, p, "Updated")
		},
	}
}
