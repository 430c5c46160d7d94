package machine

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/fluxionlab/fsmkit/pkg/core"
	"github.com/fluxionlab/fsmkit/pkg/core/failfast"
)

// PendingTransitionLimit caps the queue of state-change requests
// issued while another change is in flight. Requests beyond the cap
// are dropped and reported; this bounds runaway transition cycles.
const PendingTransitionLimit = 20

// DefaultHistoryLimit is the default size of the transition history ring.
const DefaultHistoryLimit = 64

// Machine tracks a current state over the registered state space,
// evaluates the priority-ordered transition rules every tick, and
// fires handlers deterministically.
//
// A Machine is single-threaded and cooperative: it advances only
// inside calls the host makes on its own thread and takes no locks.
// Cross-thread use is the caller's responsibility.
type Machine[S comparable] struct {
	id     string
	logger core.Logger

	states map[S]*StateDefinition[S]
	// order preserves registration order so initial-state fallback and
	// snapshots stay deterministic.
	order             []S
	globalTransitions []*TransitionRule[S]

	current     S
	hasCurrent  bool
	previous    S
	hasPrevious bool
	initial     S
	hasInitial  bool
	started     bool

	stateTime     float64
	lastStateTime float64
	paused        bool

	transitioning  bool
	pending        []pendingChange[S]
	eventQueue     []string
	drainingEvents bool
	eventListeners map[string][]EventListener

	data map[string]any

	sorted    []*TransitionRule[S]
	sortDirty bool
	seq       uint64

	observers    []Observer[S]
	history      []Change[S]
	historyLimit int
}

type pendingChange[S comparable] struct {
	to         S
	event      string
	payload    any
	hasPayload bool
}

// Option configures a Machine.
type Option[S comparable] func(*Machine[S])

// WithID sets a custom machine instance id.
func WithID[S comparable](id string) Option[S] {
	return func(m *Machine[S]) {
		m.id = id
	}
}

// WithLogger sets the logging sink.
func WithLogger[S comparable](logger core.Logger) Option[S] {
	return func(m *Machine[S]) {
		failfast.NotNil(logger, "logger")
		m.logger = logger
	}
}

// WithObserver registers an observer.
func WithObserver[S comparable](observer Observer[S]) Option[S] {
	return func(m *Machine[S]) {
		failfast.NotNil(observer, "observer")
		m.observers = append(m.observers, observer)
	}
}

// WithHistoryLimit sets the size of the transition history ring.
// A limit <= 0 disables history recording.
func WithHistoryLimit[S comparable](limit int) Option[S] {
	return func(m *Machine[S]) {
		m.historyLimit = limit
	}
}

// NewMachine creates an empty machine.
func NewMachine[S comparable](opts ...Option[S]) *Machine[S] {
	m := &Machine[S]{
		id:             uuid.New().String(),
		logger:         core.NewDefaultLogger(),
		states:         make(map[S]*StateDefinition[S]),
		eventListeners: make(map[string][]EventListener),
		data:           make(map[string]any),
		historyLimit:   DefaultHistoryLimit,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ID returns the machine instance id.
func (m *Machine[S]) ID() string { return m.id }

// AddObserver registers an observer after construction.
func (m *Machine[S]) AddObserver(observer Observer[S]) {
	failfast.NotNil(observer, "observer")
	m.observers = append(m.observers, observer)
}

// ===================== state registry =====================

// AddState registers a state and returns its definition for fluent
// configuration. The first state added becomes the initial state.
// Adding an existing id is reported and returns the existing
// definition unchanged.
func (m *Machine[S]) AddState(id S) *StateDefinition[S] {
	if existing, ok := m.states[id]; ok {
		m.fail(ErrDuplicateState, "machine %s: state %v already registered", m.id, id)
		return existing
	}
	st := &StateDefinition[S]{
		m:    m,
		id:   id,
		tags: make(map[string]struct{}),
		data: make(map[string]any),
	}
	m.states[id] = st
	m.order = append(m.order, id)
	if !m.hasInitial {
		m.initial = id
		m.hasInitial = true
	}
	m.markDirty()
	return st
}

// RemoveState unregisters a state. Every transition targeting it is
// stripped, the initial state is reassigned if it was the removed one,
// and the machine resets if the removed state was current.
func (m *Machine[S]) RemoveState(ctx context.Context, id S) bool {
	if _, ok := m.states[id]; !ok {
		m.fail(ErrUnknownState, "machine %s: cannot remove unknown state %v", m.id, id)
		return false
	}
	delete(m.states, id)
	for i, sid := range m.order {
		if sid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	for _, st := range m.states {
		st.removeTransitionsTo(id)
	}
	kept := m.globalTransitions[:0]
	for _, r := range m.globalTransitions {
		if r.to != id {
			kept = append(kept, r)
		}
	}
	m.globalTransitions = kept

	if m.hasInitial && m.initial == id {
		if len(m.order) > 0 {
			m.initial = m.order[0]
		} else {
			m.hasInitial = false
			m.started = false
		}
	}
	if m.hasPrevious && m.previous == id {
		m.hasPrevious = false
	}
	if m.hasCurrent && m.current == id {
		m.hasCurrent = false
		m.hasPrevious = false
		if m.hasInitial {
			m.Reset(ctx)
		} else {
			m.started = false
		}
	}
	m.markDirty()
	return true
}

// HasState reports whether the id is registered.
func (m *Machine[S]) HasState(id S) bool {
	_, ok := m.states[id]
	return ok
}

// State returns the definition for the id, if registered.
func (m *Machine[S]) State(id S) (*StateDefinition[S], bool) {
	st, ok := m.states[id]
	return st, ok
}

// StateIDs returns all registered ids in registration order.
func (m *Machine[S]) StateIDs() []S {
	out := make([]S, len(m.order))
	copy(out, m.order)
	return out
}

// SetInitial overrides the initial state.
func (m *Machine[S]) SetInitial(id S) bool {
	if _, ok := m.states[id]; !ok {
		m.fail(ErrUnknownState, "machine %s: cannot set unknown initial state %v", m.id, id)
		return false
	}
	m.initial = id
	m.hasInitial = true
	return true
}

// Initial returns the configured initial state, if any.
func (m *Machine[S]) Initial() (S, bool) { return m.initial, m.hasInitial }

// ===================== lifecycle =====================

// Start enters the initial state. The (nonexistent) previous state's
// exit handler is bypassed. Fails if no initial state is configured.
func (m *Machine[S]) Start(ctx context.Context) bool {
	if !m.hasInitial {
		m.fail(ErrNotStarted, "machine %s: cannot start, no initial state", m.id)
		return false
	}
	m.started = true
	m.hasCurrent = false
	m.hasPrevious = false
	m.stateTime = 0
	m.lastStateTime = 0
	return m.changeState(ctx, m.initial, "", nil, false)
}

// Reset re-enters the initial state, bypassing the current state's
// exit handler, and clears previous-state memory, queued events and
// recorded history. Fails if no initial state is configured.
func (m *Machine[S]) Reset(ctx context.Context) bool {
	if !m.hasInitial {
		m.fail(ErrNotStarted, "machine %s: cannot reset, no initial state", m.id)
		return false
	}
	m.hasCurrent = false
	m.hasPrevious = false
	m.stateTime = 0
	m.lastStateTime = 0
	m.eventQueue = nil
	m.pending = nil
	m.history = nil
	m.started = true
	return m.changeState(ctx, m.initial, "", nil, false)
}

// Teardown clears event listeners, local transitions, global
// transitions and the state registry. The machine returns to its
// freshly constructed shape, minus observers.
func (m *Machine[S]) Teardown() {
	m.eventListeners = make(map[string][]EventListener)
	m.globalTransitions = nil
	m.states = make(map[S]*StateDefinition[S])
	m.order = nil
	m.hasCurrent = false
	m.hasPrevious = false
	m.hasInitial = false
	m.started = false
	m.stateTime = 0
	m.lastStateTime = 0
	m.eventQueue = nil
	m.pending = nil
	m.history = nil
	m.data = make(map[string]any)
	m.markDirty()
}

// Pause freezes tick evaluation without losing the current state.
func (m *Machine[S]) Pause() { m.paused = true }

// Resume unfreezes tick evaluation. With resetTime the elapsed time in
// the current state restarts from zero.
func (m *Machine[S]) Resume(resetTime bool) {
	m.paused = false
	if resetTime {
		m.stateTime = 0
	}
}

// Paused reports whether tick evaluation is frozen.
func (m *Machine[S]) Paused() bool { return m.paused }

// ===================== queries =====================

// Current returns the current state id, if the machine has one.
func (m *Machine[S]) Current() (S, bool) { return m.current, m.hasCurrent }

// Previous returns the previously current state id, if recorded.
func (m *Machine[S]) Previous() (S, bool) { return m.previous, m.hasPrevious }

// IsIn reports whether the given state is current.
func (m *Machine[S]) IsIn(id S) bool { return m.hasCurrent && m.current == id }

// StateTime returns the accumulated seconds in the current state.
func (m *Machine[S]) StateTime() float64 { return m.stateTime }

// LastStateTime returns the seconds spent in the previously current
// state when it was exited.
func (m *Machine[S]) LastStateTime() float64 { return m.lastStateTime }

// CurrentMinTime returns the current state's minimum time. This is the
// one query the engine fails hard on: calling it before any state is
// current panics.
func (m *Machine[S]) CurrentMinTime() float64 {
	failfast.If(m.hasCurrent, "machine %s: minimum-time query with no current state", m.id)
	return m.states[m.current].minTime
}

// History returns the recorded state changes, oldest first.
func (m *Machine[S]) History() []Change[S] {
	out := make([]Change[S], len(m.history))
	copy(out, m.history)
	return out
}

// ===================== transition registry =====================

// AddTransition registers a rule from one state to another and returns
// it for fluent configuration. Returns nil when either endpoint is
// unregistered.
func (m *Machine[S]) AddTransition(from, to S) *TransitionRule[S] {
	src, ok := m.states[from]
	if !ok {
		m.fail(ErrUnknownState, "machine %s: transition from unknown state %v", m.id, from)
		return nil
	}
	if _, ok := m.states[to]; !ok {
		m.fail(ErrUnknownState, "machine %s: transition to unknown state %v", m.id, to)
		return nil
	}
	r := m.newRule(to)
	r.from = from
	src.transitions = append(src.transitions, r)
	m.markDirty()
	return r
}

// AddGlobalTransition registers a rule applicable from any current
// state. Returns nil when the target is unregistered.
func (m *Machine[S]) AddGlobalTransition(to S) *TransitionRule[S] {
	if _, ok := m.states[to]; !ok {
		m.fail(ErrUnknownState, "machine %s: global transition to unknown state %v", m.id, to)
		return nil
	}
	r := m.newRule(to)
	r.global = true
	m.globalTransitions = append(m.globalTransitions, r)
	m.markDirty()
	return r
}

// AddTransitions bulk-registers one rule per source state, all toward
// the same target with the same condition. Unknown sources are
// reported and skipped.
func (m *Machine[S]) AddTransitions(from []S, to S, cond Condition) []*TransitionRule[S] {
	rules := make([]*TransitionRule[S], 0, len(from))
	for _, f := range from {
		r := m.AddTransition(f, to)
		if r == nil {
			continue
		}
		if cond != nil {
			r.When(cond)
		}
		rules = append(rules, r)
	}
	return rules
}

// RemoveTransition drops every local rule from one state to another.
func (m *Machine[S]) RemoveTransition(from, to S) bool {
	src, ok := m.states[from]
	if !ok {
		m.fail(ErrUnknownState, "machine %s: cannot remove transition from unknown state %v", m.id, from)
		return false
	}
	if !src.removeTransitionsTo(to) {
		return false
	}
	m.markDirty()
	return true
}

// RemoveGlobalTransition drops every global rule toward the target.
func (m *Machine[S]) RemoveGlobalTransition(to S) bool {
	kept := m.globalTransitions[:0]
	removed := false
	for _, r := range m.globalTransitions {
		if r.to == to {
			removed = true
			continue
		}
		kept = append(kept, r)
	}
	m.globalTransitions = kept
	if removed {
		m.markDirty()
	}
	return removed
}

// ClearTransitionsFrom drops all local rules of one state.
func (m *Machine[S]) ClearTransitionsFrom(from S) bool {
	src, ok := m.states[from]
	if !ok {
		m.fail(ErrUnknownState, "machine %s: cannot clear transitions of unknown state %v", m.id, from)
		return false
	}
	src.transitions = nil
	m.markDirty()
	return true
}

// ClearTransitions drops all local rules of every state.
func (m *Machine[S]) ClearTransitions() {
	for _, st := range m.states {
		st.transitions = nil
	}
	m.markDirty()
}

// ClearGlobalTransitions drops all global rules.
func (m *Machine[S]) ClearGlobalTransitions() {
	m.globalTransitions = nil
	m.markDirty()
}

// HasTransition reports whether any local rule goes from one state to
// another.
func (m *Machine[S]) HasTransition(from, to S) bool {
	src, ok := m.states[from]
	if !ok {
		return false
	}
	for _, r := range src.transitions {
		if r.to == to {
			return true
		}
	}
	return false
}

func (m *Machine[S]) newRule(to S) *TransitionRule[S] {
	r := &TransitionRule[S]{
		m:           m,
		to:          to,
		minOverride: -1,
		seq:         m.seq,
	}
	m.seq++
	return r
}

// markDirty invalidates the cached sorted transition list. Sorting is
// deferred until the next evaluation.
func (m *Machine[S]) markDirty() { m.sortDirty = true }

// sortedTransitions returns the current state's local rules merged
// with the global list, ordered by descending priority then ascending
// registration order. The merge is cached until the registries or the
// current state change.
func (m *Machine[S]) sortedTransitions() []*TransitionRule[S] {
	if !m.sortDirty {
		return m.sorted
	}
	m.sorted = m.sorted[:0]
	if m.hasCurrent {
		if st, ok := m.states[m.current]; ok {
			m.sorted = append(m.sorted, st.transitions...)
		}
	}
	m.sorted = append(m.sorted, m.globalTransitions...)
	sort.SliceStable(m.sorted, func(i, j int) bool {
		return m.sorted[i].before(m.sorted[j])
	})
	m.sortDirty = false
	return m.sorted
}

// ===================== events =====================

// SendEvent queues an event for the next tick's drain.
func (m *Machine[S]) SendEvent(name string) bool {
	if name == "" {
		m.fail(ErrInvalidArgument, "machine %s: empty event name", m.id)
		return false
	}
	m.eventQueue = append(m.eventQueue, name)
	return true
}

// AddEventListener registers a listener invoked when the named event
// is drained, before event-driven transitions are evaluated.
func (m *Machine[S]) AddEventListener(name string, l EventListener) bool {
	if name == "" {
		m.fail(ErrInvalidArgument, "machine %s: empty event name for listener", m.id)
		return false
	}
	if l == nil {
		m.fail(ErrInvalidArgument, "machine %s: nil listener for event %q", m.id, name)
		return false
	}
	m.eventListeners[name] = append(m.eventListeners[name], l)
	return true
}

// RemoveEventListeners drops all listeners of the named event.
func (m *Machine[S]) RemoveEventListeners(name string) {
	delete(m.eventListeners, name)
}

// ===================== data store =====================

// SetData stores a value in the machine's cross-state data store.
func (m *Machine[S]) SetData(key string, value any) bool {
	if key == "" {
		m.fail(ErrInvalidArgument, "machine %s: empty data key", m.id)
		return false
	}
	m.data[key] = value
	return true
}

// Data retrieves a value from the cross-state data store.
func (m *Machine[S]) Data(key string) (any, bool) {
	v, ok := m.data[key]
	return v, ok
}

// DataAs retrieves a typed value from a machine's data store. Returns
// the zero value and false on a missing key or a type mismatch.
func DataAs[T any, S comparable](m *Machine[S], key string) (T, bool) {
	var zero T
	v, ok := m.data[key]
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	if !ok {
		return zero, false
	}
	return t, true
}

// ===================== state change execution =====================

// ChangeOption configures a TryChangeState request.
type ChangeOption func(*changeRequest)

type changeRequest struct {
	cond       Condition
	payload    any
	hasPayload bool
}

// IfCondition gates the change on a caller-supplied predicate,
// evaluated before anything else.
func IfCondition(cond Condition) ChangeOption {
	return func(req *changeRequest) {
		req.cond = cond
	}
}

// WithPayload stashes a one-shot payload visible to the enter handler
// of the resulting change only.
func WithPayload(payload any) ChangeOption {
	return func(req *changeRequest) {
		req.payload = payload
		req.hasPayload = true
	}
}

// TryChangeState forces a change to the target state, bypassing
// transition rules and lock gating. The optional condition is
// evaluated first; the target must be registered.
func (m *Machine[S]) TryChangeState(ctx context.Context, to S, opts ...ChangeOption) bool {
	var req changeRequest
	for _, opt := range opts {
		opt(&req)
	}
	if req.cond != nil && !req.cond(ctx) {
		return false
	}
	if _, ok := m.states[to]; !ok {
		m.fail(ErrUnknownState, "machine %s: cannot change to unknown state %v", m.id, to)
		return false
	}
	return m.changeState(ctx, to, "", req.payload, req.hasPayload)
}

// TryGoBack returns to the previously current state. It requires a
// recorded previous state, a still-registered target, and an unlocked
// current state.
func (m *Machine[S]) TryGoBack(ctx context.Context) bool {
	if !m.hasPrevious {
		return false
	}
	if _, ok := m.states[m.previous]; !ok {
		m.fail(ErrUnknownState, "machine %s: previous state %v no longer registered", m.id, m.previous)
		return false
	}
	if m.hasCurrent {
		if st := m.states[m.current]; st != nil && st.lock != LockNone {
			return false
		}
	}
	return m.changeState(ctx, m.previous, "", nil, false)
}

// changeState is the single path through which the current state ever
// changes. Requests issued while a change is in flight are serialized
// through the bounded pending queue and applied FIFO after the
// in-flight change completes, so handlers never observe a half-applied
// transition. The one-shot payload travels with its request, so each
// queued change hands exactly its own payload to its enter handler.
func (m *Machine[S]) changeState(ctx context.Context, to S, event string, payload any, hasPayload bool) bool {
	if m.transitioning {
		if len(m.pending) >= PendingTransitionLimit {
			m.failCtx(ctx, ErrQueueOverflow,
				"machine %s: pending transition queue at capacity (%d), dropping change to %v",
				m.id, PendingTransitionLimit, to)
			return false
		}
		m.pending = append(m.pending, pendingChange[S]{to: to, event: event, payload: payload, hasPayload: hasPayload})
		return true
	}
	m.transitioning = true
	m.applyChange(ctx, to, event, payload, hasPayload)
	for len(m.pending) > 0 {
		next := m.pending[0]
		m.pending = m.pending[1:]
		m.applyChange(ctx, next.to, next.event, next.payload, next.hasPayload)
	}
	m.transitioning = false
	return true
}

func (m *Machine[S]) applyChange(ctx context.Context, to S, event string, payload any, hasPayload bool) {
	target, ok := m.states[to]
	if !ok {
		m.failCtx(ctx, ErrUnknownState, "machine %s: deferred change to unregistered state %v", m.id, to)
		return
	}

	ch := Change[S]{To: to, Event: event, Elapsed: m.stateTime}
	if hasPayload {
		ch.Payload = payload
	}

	var old *StateDefinition[S]
	if m.hasCurrent {
		old = m.states[m.current]
		ch.From = m.current
		ch.HasFrom = true
	}

	// A fully locked state is left only by force, and quietly: its
	// exit handler does not run.
	if old != nil && old.lock != LockFull && old.onExit != nil {
		if err := old.onExit(ctx, ch); err != nil {
			m.failCtx(ctx, ErrHandlerFailed, "machine %s: exit handler of %v: %v", m.id, old.id, err)
		}
	}

	m.lastStateTime = m.stateTime
	m.stateTime = 0
	if m.hasCurrent {
		m.previous = m.current
		m.hasPrevious = true
	}
	m.current = to
	m.hasCurrent = true
	m.markDirty()

	if target.onEnter != nil {
		if err := target.onEnter(ctx, ch); err != nil {
			m.failCtx(ctx, ErrHandlerFailed, "machine %s: enter handler of %v: %v", m.id, to, err)
		}
	}

	m.recordHistory(ch)
	for _, o := range m.observers {
		o.OnStateChanged(ctx, ch)
	}
}

func (m *Machine[S]) recordHistory(ch Change[S]) {
	if m.historyLimit <= 0 {
		return
	}
	// Payload is enter-handler scoped, it does not outlive the change.
	ch.Payload = nil
	m.history = append(m.history, ch)
	if len(m.history) > m.historyLimit {
		m.history = m.history[len(m.history)-m.historyLimit:]
	}
}

// ===================== tick =====================

// Process advances the machine by one host tick on the given channel.
// No-op while paused, before Start, or when the current state is bound
// to the other channel. At most one polled transition fires per tick.
func (m *Machine[S]) Process(ctx context.Context, mode ProcessMode, dt float64) {
	if m.paused || !m.hasCurrent {
		return
	}
	st := m.states[m.current]
	if st == nil || st.mode != mode {
		return
	}
	m.stateTime += dt
	if st.onUpdate != nil {
		st.onUpdate(ctx, dt)
	}
	m.checkTransitions(ctx)
}

func (m *Machine[S]) checkTransitions(ctx context.Context) {
	m.drainEvents(ctx)
	if !m.hasCurrent {
		return
	}
	st := m.states[m.current]
	if st == nil {
		return
	}

	if st.timeout > 0 && m.stateTime >= st.timeout {
		if st.lock == LockFull {
			for _, o := range m.observers {
				o.OnTimeoutBlocked(ctx, st.id)
			}
			return
		}
		if !st.hasTimeoutTarget || !m.HasState(st.timeoutTarget) {
			m.failCtx(ctx, ErrMissingTimeoutTarget,
				"machine %s: state %v timed out without a registered target", m.id, st.id)
		} else {
			if st.onTimeout != nil {
				st.onTimeout(ctx, st.id)
			}
			for _, o := range m.observers {
				o.OnStateTimeout(ctx, st.id)
			}
			m.changeState(ctx, st.timeoutTarget, "", nil, false)
			return
		}
	}

	if st.lock != LockNone {
		return
	}

	for _, r := range m.sortedTransitions() {
		if r.event != "" {
			continue
		}
		if r.guard != nil && !r.guard(ctx) {
			continue
		}
		if !r.timingSatisfied(m.stateTime, st) {
			continue
		}
		if r.condition != nil && !r.condition(ctx) {
			continue
		}
		m.fire(ctx, r, "")
		return
	}
}

// drainEvents pops every event queued at tick start, FIFO. For each
// event the registered listeners run first, then the merged rule list
// is scanned for matching event-driven rules in priority order; the
// first rule passing guard, timing and condition wins. Events queued
// by callbacks during the drain wait for the next tick.
func (m *Machine[S]) drainEvents(ctx context.Context) {
	if m.drainingEvents {
		return
	}
	m.drainingEvents = true
	defer func() { m.drainingEvents = false }()

	// Listeners may clear the queue mid-drain (Reset, or RemoveState of
	// the current state), so the pop re-checks the live length.
	n := len(m.eventQueue)
	for i := 0; i < n && len(m.eventQueue) > 0; i++ {
		name := m.eventQueue[0]
		m.eventQueue = m.eventQueue[1:]

		for _, l := range m.eventListeners[name] {
			l(ctx, name)
		}

		if !m.hasCurrent {
			continue
		}
		st := m.states[m.current]
		if st == nil || st.lock == LockFull {
			continue
		}
		for _, r := range m.sortedTransitions() {
			if r.event != name {
				continue
			}
			if r.guard != nil && !r.guard(ctx) {
				continue
			}
			if !r.timingSatisfied(m.stateTime, st) {
				continue
			}
			if r.condition != nil && !r.condition(ctx) {
				continue
			}
			m.fire(ctx, r, name)
			break
		}
	}
}

func (m *Machine[S]) fire(ctx context.Context, r *TransitionRule[S], event string) {
	if !m.changeState(ctx, r.to, event, nil, false) {
		return
	}
	if r.triggered != nil {
		r.triggered(ctx)
	}
	for _, o := range m.observers {
		o.OnTransitionTriggered(ctx, r)
	}
}

// ===================== error reporting =====================

func (m *Machine[S]) fail(code ErrorCode, format string, args ...interface{}) {
	err := newError(code, format, args...)
	if code == ErrDuplicateState || code == ErrInvalidArgument {
		m.logger.Warn(err.Message)
	} else {
		m.logger.Error(err.Message)
	}
	for _, o := range m.observers {
		o.OnError(context.Background(), err)
	}
}

func (m *Machine[S]) failCtx(ctx context.Context, code ErrorCode, format string, args ...interface{}) {
	err := newError(code, format, args...)
	m.logger.Error(err.Message)
	for _, o := range m.observers {
		o.OnError(ctx, err)
	}
}
