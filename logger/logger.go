package logger

import "github.com/jathurchan/rtiexec/types"

// Logger defines the structured, context-aware logging used across the executor.
//
// All logging methods accept a message and a variadic list of key-value pairs.
// Keys must be strings and alternate with values: key1, val1, key2, val2, ...
type Logger interface {
	Debugw(msg string, keysAndValues ...any)
	Infow(msg string, keysAndValues ...any)
	Warnw(msg string, keysAndValues ...any)
	Errorw(msg string, keysAndValues ...any)

	// Fatalw logs and then terminates the process.
	Fatalw(msg string, keysAndValues ...any)

	// With adds arbitrary key-value pairs to the logger's context.
	With(keysAndValues ...any) Logger

	// WithFederation tags output with the federation execution it belongs to.
	WithFederation(id types.FederationID) Logger

	// WithFederate tags output with the federate a session or request belongs to.
	WithFederate(h types.FederateHandle) Logger

	// WithComponent adds a component label (e.g., "timekeeper", "ownership").
	WithComponent(name string) Logger
}
