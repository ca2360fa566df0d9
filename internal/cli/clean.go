package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/agentpm/pkg/installer"
)

// cleanCommand creates the clean command.
func (c *CLI) cleanCommand() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove all installed packages and the lock file",
		Long: `Clean deletes the entire apm_modules/ directory and apm.lock.
Dependencies declared in apm.yml are kept, so 'agentpm install'
rebuilds everything from scratch.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			inst, err := c.newInstaller()
			if err != nil {
				return err
			}

			plan, err := inst.Clean(installer.Options{DryRun: true})
			if err != nil {
				return err
			}
			if plan.Removed == 0 {
				printInfo("Nothing to clean")
				return nil
			}
			if !yes && !confirm(cmd, fmt.Sprintf("Remove %d installed package(s)?", plan.Removed)) {
				printInfo("Aborted")
				return nil
			}

			res, err := inst.Clean(installer.Options{Logger: c.Logger.Debugf})
			if err != nil {
				return err
			}
			printSuccess("Removed %d package(s)", res.Removed)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

// confirm asks a yes/no question on the command's input stream and
// defaults to no.
func confirm(cmd *cobra.Command, question string) bool {
	fmt.Fprintf(cmd.OutOrStdout(), "%s [y/N] ", question)
	reader := bufio.NewReader(cmd.InOrStdin())
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
