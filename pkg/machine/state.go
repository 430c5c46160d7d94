package machine

import "sort"

// StateDefinition owns a state's outgoing transition rules, lifecycle
// handlers, timing and lock configuration, tags, and a private keyed
// data store. Instances are created by Machine.AddState and configured
// through fluent setters, before or after Start.
type StateDefinition[S comparable] struct {
	m  *Machine[S]
	id S

	minTime float64
	// timeout <= 0 means disabled.
	timeout          float64
	timeoutTarget    S
	hasTimeoutTarget bool

	mode ProcessMode
	lock LockMode

	tags map[string]struct{}
	data map[string]any

	onEnter   EnterHandler[S]
	onExit    ExitHandler[S]
	onUpdate  UpdateHandler
	onTimeout TimeoutHandler[S]

	transitions []*TransitionRule[S]
}

// ID returns the state's identifier.
func (s *StateDefinition[S]) ID() S { return s.id }

// OnEnter sets the enter handler.
func (s *StateDefinition[S]) OnEnter(h EnterHandler[S]) *StateDefinition[S] {
	s.onEnter = h
	return s
}

// OnExit sets the exit handler.
func (s *StateDefinition[S]) OnExit(h ExitHandler[S]) *StateDefinition[S] {
	s.onExit = h
	return s
}

// OnUpdate sets the per-tick update handler.
func (s *StateDefinition[S]) OnUpdate(h UpdateHandler) *StateDefinition[S] {
	s.onUpdate = h
	return s
}

// OnTimeout sets the handler invoked when the state's timeout elapses,
// before the automatic transition to the timeout target.
func (s *StateDefinition[S]) OnTimeout(h TimeoutHandler[S]) *StateDefinition[S] {
	s.onTimeout = h
	return s
}

// WithMinTime sets the minimum time in seconds the machine must remain
// in this state before any non-instant transition may fire. Negative
// values clamp to zero.
func (s *StateDefinition[S]) WithMinTime(seconds float64) *StateDefinition[S] {
	if seconds < 0 {
		seconds = 0
	}
	s.minTime = seconds
	return s
}

// WithTimeout configures an automatic transition to target once the
// machine has spent the given number of seconds in this state.
// Values <= 0 disable the timeout.
func (s *StateDefinition[S]) WithTimeout(seconds float64, target S) *StateDefinition[S] {
	s.timeout = seconds
	s.timeoutTarget = target
	s.hasTimeoutTarget = seconds > 0
	return s
}

// WithProcessMode binds the state to a host tick channel. Process
// calls for the other channel are no-ops while this state is current.
func (s *StateDefinition[S]) WithProcessMode(mode ProcessMode) *StateDefinition[S] {
	s.mode = mode
	return s
}

// WithLockMode sets how the state may be left.
func (s *StateDefinition[S]) WithLockMode(mode LockMode) *StateDefinition[S] {
	s.lock = mode
	return s
}

// WithTags adds tags to the state.
func (s *StateDefinition[S]) WithTags(tags ...string) *StateDefinition[S] {
	for _, tag := range tags {
		if tag == "" {
			s.m.fail(ErrInvalidArgument, "machine %s: empty tag on state %v", s.m.id, s.id)
			continue
		}
		s.tags[tag] = struct{}{}
	}
	return s
}

// HasTag reports whether the state carries the given tag.
func (s *StateDefinition[S]) HasTag(tag string) bool {
	_, ok := s.tags[tag]
	return ok
}

// Tags returns the state's tags in sorted order.
func (s *StateDefinition[S]) Tags() []string {
	out := make([]string, 0, len(s.tags))
	for tag := range s.tags {
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}

// Set stores a keyed value on the state. The store is first-write-wins:
// a second write to an existing key is ignored.
func (s *StateDefinition[S]) Set(key string, value any) *StateDefinition[S] {
	if key == "" {
		s.m.fail(ErrInvalidArgument, "machine %s: empty data key on state %v", s.m.id, s.id)
		return s
	}
	if _, exists := s.data[key]; exists {
		s.m.logger.Debugf("machine %s: state %v data key %q already set, keeping first value", s.m.id, s.id, key)
		return s
	}
	s.data[key] = value
	return s
}

// Value retrieves a keyed value from the state's data store.
func (s *StateDefinition[S]) Value(key string) (any, bool) {
	v, ok := s.data[key]
	return v, ok
}

// MinTime returns the state's minimum time in seconds.
func (s *StateDefinition[S]) MinTime() float64 { return s.minTime }

// Timeout returns the state's timeout in seconds, <= 0 when disabled.
func (s *StateDefinition[S]) Timeout() float64 { return s.timeout }

// TimeoutTarget returns the configured timeout target, if any.
func (s *StateDefinition[S]) TimeoutTarget() (S, bool) {
	return s.timeoutTarget, s.hasTimeoutTarget
}

// ProcessMode returns the tick channel the state is bound to.
func (s *StateDefinition[S]) ProcessMode() ProcessMode { return s.mode }

// LockMode returns the state's lock mode.
func (s *StateDefinition[S]) LockMode() LockMode { return s.lock }

// Transitions returns the state's outgoing rules in registration order.
func (s *StateDefinition[S]) Transitions() []*TransitionRule[S] {
	out := make([]*TransitionRule[S], len(s.transitions))
	copy(out, s.transitions)
	return out
}

// removeTransitionsTo drops every outgoing rule targeting the given id
// and reports whether any rule was removed.
func (s *StateDefinition[S]) removeTransitionsTo(id S) bool {
	kept := s.transitions[:0]
	removed := false
	for _, r := range s.transitions {
		if r.to == id {
			removed = true
			continue
		}
		kept = append(kept, r)
	}
	s.transitions = kept
	return removed
}
