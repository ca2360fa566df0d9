package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/agentpm/pkg/manifest"
)

// infoCommand creates the info command.
func (c *CLI) infoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "info <reference>",
		Short: "Show details for an installed package",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inst, err := c.newInstaller()
			if err != nil {
				return err
			}
			detail, err := inst.Info(args[0])
			if err != nil {
				return err
			}

			dep := detail.Dependency
			printSuccess("%s", dep.Key())
			if d := describeEntry(dep.ResolvedRef, dep.ResolvedCommit); d != "" {
				printDetail("resolved: %s", d)
			}
			printDetail("path: %s", detail.InstallPath)

			if detail.Manifest == nil {
				printWarning("package directory is missing, run 'agentpm install'")
				return nil
			}
			if detail.Manifest.Version != "" {
				printDetail("version: %s", detail.Manifest.Version)
			}
			if detail.Manifest.Description != "" {
				printDetail("description: %s", detail.Manifest.Description)
			}
			if detail.Manifest.Author != "" {
				printDetail("author: %s", detail.Manifest.Author)
			}
			if detail.Manifest.License != "" {
				printDetail("license: %s", detail.Manifest.License)
			}

			if len(detail.Primitives) > 0 {
				printNewline()
				for _, pt := range manifest.PrimitiveTypes {
					if n := detail.Primitives[pt]; n > 0 {
						printDetail("%s: %d", pt, n)
					}
				}
			}
			return nil
		},
	}
}
