// Package resolver builds the transitive dependency graph of a
// project.
//
// Resolution is a breadth-first walk: declared dependencies sit at
// depth 1, and every discovered package is fetched exactly once. The
// first reference to reach a package wins; later references to the
// same package under a different git ref are recorded as
// [ConflictInfo] but never re-fetched. Chains that loop back onto an
// ancestor are cut and recorded as [CircularRef]. Individual fetch or
// parse failures are collected in [Result.Failures] without aborting
// sibling branches.
//
// Child dependencies are read from each package's installed apm.yml,
// so packages restored from an earlier run contribute their children
// without a network round trip.
package resolver
