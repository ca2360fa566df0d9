package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/matzehuels/agentpm/pkg/lockfile"
)

// treeCommand creates the tree command.
func (c *CLI) treeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tree",
		Short: "Print the locked dependency graph as a tree",
		RunE: func(cmd *cobra.Command, args []string) error {
			inst, err := c.newInstaller()
			if err != nil {
				return err
			}
			lock, err := inst.Lock()
			if err != nil {
				return err
			}
			if lock == nil || lock.Len() == 0 {
				printInfo("No packages installed")
				return nil
			}
			printTree(lock)
			return nil
		},
	}
}

// printTree renders the lock as a hierarchy using the recorded
// resolved_by edges. Entries whose parent is missing from the lock are
// promoted to the root level so nothing disappears from the output.
func printTree(lock *lockfile.File) {
	children := make(map[string][]lockfile.Dependency)
	var roots []lockfile.Dependency
	for _, dep := range lock.AllDependencies() {
		if dep.ResolvedBy != "" && lock.Has(dep.ResolvedBy) {
			children[dep.ResolvedBy] = append(children[dep.ResolvedBy], dep)
			continue
		}
		roots = append(roots, dep)
	}
	sortDeps(roots)
	for parent := range children {
		sortDeps(children[parent])
	}

	fmt.Println(StyleTitle.Render(appName + " dependencies"))
	for i, root := range roots {
		printBranch(root, "", i == len(roots)-1, children)
	}
}

func sortDeps(deps []lockfile.Dependency) {
	sort.Slice(deps, func(i, j int) bool { return deps[i].Key() < deps[j].Key() })
}

func printBranch(dep lockfile.Dependency, prefix string, last bool, children map[string][]lockfile.Dependency) {
	connector := "├── "
	childPrefix := prefix + "│   "
	if last {
		connector = "└── "
		childPrefix = prefix + "    "
	}

	line := prefix + StyleDim.Render(connector) + dep.Key()
	if detail := describeEntry(dep.ResolvedRef, dep.ResolvedCommit); detail != "" {
		line += " " + StyleDim.Render("("+detail+")")
	}
	fmt.Println(line)

	kids := children[dep.Key()]
	for i, kid := range kids {
		printBranch(kid, childPrefix, i == len(kids)-1, children)
	}
}
