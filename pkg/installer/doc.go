// Package installer drives the install, uninstall, and status
// pipelines for a project.
//
// Install loads the project's apm.yml, resolves the full dependency
// graph through [resolver], and persists the outcome as an apm.lock
// next to the manifest. The lock write is atomic, and a dependency
// pinned to a commit SHA that the previous lock already resolved skips
// the network entirely when its install directory is intact.
//
// Uninstall removes the requested packages together with any locked
// transitive dependencies that no surviving declared dependency still
// reaches. Reachability is recomputed from installed manifests on
// disk, with the lock's resolved_by edges as a fallback for packages
// whose directories are already gone. Empty parent directories are
// pruned, and an empty lock file is deleted rather than written.
//
// [resolver]: github.com/matzehuels/agentpm/pkg/resolver
package installer
