// Package exitcode defines the process exit codes the dna-server CLI
// returns, following the sysexits.h convention.
package exitcode

const (
	// OK indicates successful termination.
	OK = 0

	// Usage indicates the command was used incorrectly (bad flags, missing
	// required argument).
	Usage = 64

	// DataErr indicates the input configuration was malformed.
	DataErr = 65

	// NoInput indicates a configuration file or required resource could not
	// be found or opened.
	NoInput = 66

	// Unavailable indicates a required service (chain RPC, storage) was
	// unavailable at startup.
	Unavailable = 69

	// Software indicates an internal software error (state machine reached
	// an invariant-violating state, panic recovered at top level).
	Software = 70

	// IOErr indicates an error writing to the blockstore or another I/O
	// resource.
	IOErr = 74

	// Config indicates something was found in an unconfigured or
	// unsupported state (e.g. a logger that cannot be built from the
	// configured level).
	Config = 78
)
