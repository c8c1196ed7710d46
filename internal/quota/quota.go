// Package quota defines the optional external Quota capability (spec §6): a
// StreamEngine asks it to account for each outbound Data message and may be
// told to terminate the stream once a client exceeds its budget.
package quota

import "context"

// Verdict is the result of a quota check.
type Verdict int

const (
	// Ok means the caller may proceed.
	Ok Verdict = iota
	// Exceeded means the caller must terminate the stream with
	// ResourceExhausted.
	Exceeded
)

// Quota is the outbound capability a StreamEngine consults before sending
// each Data message, per spec §4.4's "before sending each Data message, call
// the external Quota capability". Implementations are expected to call out
// to a quota/billing service; this package only defines the shape and a
// null-object default for deployments that don't enforce quotas.
type Quota interface {
	// UpdateAndCheck reports units of usage for (team, client, network) and
	// returns whether the caller remains within budget.
	UpdateAndCheck(ctx context.Context, team, client, network string, units uint64) (Verdict, error)
}

// NoOp always returns Ok, following internal/db.NoOpMaintenance's null-object
// pattern for optional external capabilities.
type NoOp struct{}

// UpdateAndCheck implements Quota.
func (NoOp) UpdateAndCheck(_ context.Context, _, _, _ string, _ uint64) (Verdict, error) {
	return Ok, nil
}

var _ Quota = NoOp{}
