package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/agentpm/pkg/installer"
)

// installCommand creates the install command.
func (c *CLI) installCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "install [references...]",
		Short: "Install declared dependencies, adding any given references first",
		Long: `Install resolves every dependency declared in apm.yml, downloads the
full transitive graph into apm_modules/, and writes apm.lock.

References passed as arguments are added to apm.yml before resolution,
for example:

  agentpm install myorg/prompts
  agentpm install myorg/prompts/code-review.prompt.md#v1.2.0
  agentpm install dev.azure.com/org/project/repo`,
		RunE: func(cmd *cobra.Command, args []string) error {
			inst, err := c.newInstaller()
			if err != nil {
				return err
			}
			if len(args) > 0 {
				if err := inst.AddDependencies(args); err != nil {
					return err
				}
			}

			p := newProgress(c.Logger)
			sp := newSpinnerWithContext(cmd.Context(), "Resolving dependencies...")
			sp.Start()
			res, err := inst.Install(cmd.Context(), installer.Options{
				Logger: c.Logger.Debugf,
			})
			sp.Stop()
			if err != nil {
				return err
			}

			return reportInstall(res, p, "Installed")
		},
	}
}

// reportInstall renders a resolution result and returns an error when
// any dependency failed.
func reportInstall(res *installer.InstallResult, p *progress, verb string) error {
	for _, node := range res.Installed {
		name := node.Ref.DisplayName()
		if node.Info.Resolved != nil {
			printSuccess("%s %s", name, StyleDim.Render("("+node.Info.Resolved.String()+")"))
		} else {
			printSuccess("%s", name)
		}
		for _, w := range node.Info.Warnings {
			printWarning("%s", w)
		}
	}
	for _, conflict := range res.Conflicts {
		printWarning("%s requested as %q by %s; keeping %q",
			conflict.Canonical, conflict.RequestedRef, conflict.RequestedBy, conflict.ExistingRef)
	}
	for _, cycle := range res.Cycles {
		printWarning("circular dependency: %s", joinPath(cycle.Path))
	}
	for _, failure := range res.Failures {
		printError("%s: %v", failure.Reference, failure.Err)
	}

	switch {
	case len(res.Failures) > 0:
		return fmt.Errorf("%d of %d dependencies failed to install",
			len(res.Failures), len(res.Failures)+len(res.Installed))
	case len(res.Installed) == 0:
		printInfo("No dependencies declared in apm.yml")
	default:
		p.done(fmt.Sprintf("%s %d packages", verb, len(res.Installed)))
	}
	return nil
}

// joinPath formats a dependency chain for display.
func joinPath(path []string) string {
	out := ""
	for i, p := range path {
		if i > 0 {
			out += " " + iconArrow + " "
		}
		out += p
	}
	return out
}
