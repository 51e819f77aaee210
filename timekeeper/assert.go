package timekeeper

import "fmt"

// assertInvariant panics when a coordinator consistency invariant fails.
// Such a failure is a bug in the coordinator, never a usage error.
func assertInvariant(cond bool, format string, args ...any) {
	if !cond {
		panic(fmt.Sprintf("timekeeper: invariant violated: "+format, args...))
	}
}
