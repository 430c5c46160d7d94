package machine

import "fmt"

// Snapshot is a point-in-time view of a machine, with state ids
// rendered as strings so it serializes uniformly for inspection and
// visualization regardless of the id type.
type Snapshot struct {
	ID            string          `json:"id"`
	Current       string          `json:"current,omitempty"`
	Previous      string          `json:"previous,omitempty"`
	Initial       string          `json:"initial,omitempty"`
	StateTime     float64         `json:"stateTime"`
	LastStateTime float64         `json:"lastStateTime"`
	Paused        bool            `json:"paused"`
	PendingEvents int             `json:"pendingEvents"`
	States        []StateSnapshot `json:"states"`
	// GlobalTransitions are rules applicable from any current state.
	GlobalTransitions []TransitionSnapshot `json:"globalTransitions,omitempty"`
}

// StateSnapshot describes one registered state.
type StateSnapshot struct {
	ID            string               `json:"id"`
	MinTime       float64              `json:"minTime,omitempty"`
	Timeout       float64              `json:"timeout,omitempty"`
	TimeoutTarget string               `json:"timeoutTarget,omitempty"`
	ProcessMode   string               `json:"processMode"`
	LockMode      string               `json:"lockMode"`
	Tags          []string             `json:"tags,omitempty"`
	Transitions   []TransitionSnapshot `json:"transitions,omitempty"`
}

// TransitionSnapshot describes one registered rule.
type TransitionSnapshot struct {
	From        string  `json:"from,omitempty"`
	To          string  `json:"to"`
	Event       string  `json:"event,omitempty"`
	Priority    int     `json:"priority,omitempty"`
	MinTime     float64 `json:"minTime,omitempty"`
	Instant     bool    `json:"instant,omitempty"`
	Guarded     bool    `json:"guarded,omitempty"`
	Conditional bool    `json:"conditional,omitempty"`
}

// Snapshot captures the machine's registries and position. States are
// listed in registration order.
func (m *Machine[S]) Snapshot() Snapshot {
	snap := Snapshot{
		ID:            m.id,
		StateTime:     m.stateTime,
		LastStateTime: m.lastStateTime,
		Paused:        m.paused,
		PendingEvents: len(m.eventQueue),
	}
	if m.hasCurrent {
		snap.Current = fmt.Sprint(m.current)
	}
	if m.hasPrevious {
		snap.Previous = fmt.Sprint(m.previous)
	}
	if m.hasInitial {
		snap.Initial = fmt.Sprint(m.initial)
	}
	for _, id := range m.order {
		st := m.states[id]
		ss := StateSnapshot{
			ID:          fmt.Sprint(id),
			MinTime:     st.minTime,
			Timeout:     st.timeout,
			ProcessMode: st.mode.String(),
			LockMode:    st.lock.String(),
			Tags:        st.Tags(),
		}
		if st.hasTimeoutTarget {
			ss.TimeoutTarget = fmt.Sprint(st.timeoutTarget)
		}
		for _, r := range st.transitions {
			ss.Transitions = append(ss.Transitions, snapshotRule(r))
		}
		snap.States = append(snap.States, ss)
	}
	for _, r := range m.globalTransitions {
		snap.GlobalTransitions = append(snap.GlobalTransitions, snapshotRule(r))
	}
	return snap
}

func snapshotRule[S comparable](r *TransitionRule[S]) TransitionSnapshot {
	ts := TransitionSnapshot{
		To:          fmt.Sprint(r.to),
		Event:       r.event,
		Priority:    r.priority,
		Instant:     r.instant,
		Guarded:     r.guard != nil,
		Conditional: r.condition != nil,
	}
	if !r.global {
		ts.From = fmt.Sprint(r.from)
	}
	if r.minOverride > 0 {
		ts.MinTime = r.minOverride
	}
	return ts
}
