// Package resolver builds the requires-graph over a module selection. It
// detects dependency cycles with a depth-first walk and produces a stable
// application order in which every module follows the modules it requires.
//
// Requirements naming modules outside the selection are ignored here; the
// validation pipeline reports them as unsatisfied dependencies.
package resolver
