package machine

// TransitionRule describes one possible move between states, or from
// any state when registered as global. Rules are configured through
// fluent setters; every mutation marks the owning machine's sort
// cache dirty so ordering is recomputed lazily on the next tick.
type TransitionRule[S comparable] struct {
	m *Machine[S]

	from   S
	global bool
	to     S

	condition Condition
	guard     Condition
	event     string

	priority int
	seq      uint64

	// minOverride < 0 means unset: the owning state's minTime applies.
	minOverride float64
	instant     bool

	triggered TriggeredHandler
}

// From returns the source state id. Meaningless for global rules.
func (r *TransitionRule[S]) From() S { return r.from }

// To returns the target state id.
func (r *TransitionRule[S]) To() S { return r.to }

// IsGlobal reports whether the rule applies from any current state.
func (r *TransitionRule[S]) IsGlobal() bool { return r.global }

// Event returns the event name the rule fires on, empty for polled rules.
func (r *TransitionRule[S]) Event() string { return r.event }

// Priority returns the explicit evaluation priority.
func (r *TransitionRule[S]) Priority() int { return r.priority }

// When sets the trigger condition, evaluated after guard and timing.
func (r *TransitionRule[S]) When(cond Condition) *TransitionRule[S] {
	r.condition = cond
	r.m.markDirty()
	return r
}

// GuardedBy sets the guard pre-check. A rejecting guard disqualifies
// the rule before timing and condition are considered.
func (r *TransitionRule[S]) GuardedBy(guard Condition) *TransitionRule[S] {
	r.guard = guard
	r.m.markDirty()
	return r
}

// OnEvent makes the rule event-driven: it is skipped during polled
// evaluation and considered only when the named event is drained.
func (r *TransitionRule[S]) OnEvent(name string) *TransitionRule[S] {
	if name == "" {
		r.m.fail(ErrInvalidArgument, "machine %s: empty event name on transition to %v", r.m.id, r.to)
		return r
	}
	r.event = name
	r.m.markDirty()
	return r
}

// WithPriority sets the evaluation priority. Higher priorities are
// evaluated first; ties resolve by registration order.
func (r *TransitionRule[S]) WithPriority(priority int) *TransitionRule[S] {
	r.priority = priority
	r.m.markDirty()
	return r
}

// WithMinTime overrides the owning state's minimum time, in seconds,
// for this rule only. Values <= 0 leave the state's minTime in effect.
func (r *TransitionRule[S]) WithMinTime(seconds float64) *TransitionRule[S] {
	r.minOverride = seconds
	r.m.markDirty()
	return r
}

// Instant makes the rule bypass every minimum-time gate.
func (r *TransitionRule[S]) Instant() *TransitionRule[S] {
	r.instant = true
	r.m.markDirty()
	return r
}

// Triggered sets a callback fired after this rule's transition applies.
func (r *TransitionRule[S]) Triggered(h TriggeredHandler) *TransitionRule[S] {
	r.triggered = h
	r.m.markDirty()
	return r
}

// before reports whether r is evaluated strictly before other:
// descending priority, then ascending registration order.
func (r *TransitionRule[S]) before(other *TransitionRule[S]) bool {
	if r.priority != other.priority {
		return r.priority > other.priority
	}
	return r.seq < other.seq
}

// requiredWait returns the effective minimum time in seconds that must
// be accumulated in owner before this rule may fire.
func (r *TransitionRule[S]) requiredWait(owner *StateDefinition[S]) float64 {
	if r.instant {
		return 0
	}
	if r.minOverride > 0 {
		return r.minOverride
	}
	return owner.minTime
}

// timingSatisfied reports whether stateTime meets the effective
// minimum-time gate for this rule in the given state.
func (r *TransitionRule[S]) timingSatisfied(stateTime float64, owner *StateDefinition[S]) bool {
	if r.instant {
		return true
	}
	return stateTime >= r.requiredWait(owner)
}
