package engine

import "errors"

var (
	// ErrUnknownBehavior marks an event referencing a behavior the catalog
	// does not define. Fatal for that event, never silently scored.
	ErrUnknownBehavior = errors.New("unknown behavior")

	// ErrUnknownHabit marks a record referencing an unconfigured habit.
	ErrUnknownHabit = errors.New("unknown habit")

	// ErrCorruptStreakState marks a streak ledger that fails its invariants.
	// The day's classification is failed explicitly rather than guessed.
	ErrCorruptStreakState = errors.New("corrupt streak state")

	// ErrBadGroupBy marks a stack request grouping on an unknown facet.
	ErrBadGroupBy = errors.New("group_by must be a subset of {origin, nature}")

	// ErrApprovalResolved marks an answer to an approval that is no longer
	// pending. Late answers never flip a recorded decision.
	ErrApprovalResolved = errors.New("approval already resolved")
)
