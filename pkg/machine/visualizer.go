package machine

import (
	"fmt"
	"strings"
)

// Visualizer generates visual representations of a machine snapshot.
type Visualizer struct {
	snap Snapshot
}

// NewVisualizer creates a visualizer over a machine snapshot.
func NewVisualizer(snap Snapshot) *Visualizer {
	return &Visualizer{snap: snap}
}

// mermaidID renders a state id for Mermaid. Ids are interpolated bare
// when they are plain identifiers and quoted otherwise, so spaces and
// diagram metacharacters cannot break the output.
func mermaidID(id string) string {
	for _, r := range id {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '_' || r == '-' {
			continue
		}
		return fmt.Sprintf("%q", id)
	}
	if id == "" {
		return `""`
	}
	return id
}

func transitionLabel(t TransitionSnapshot) string {
	label := t.Event
	if label == "" {
		label = "polled"
	}
	if t.Guarded {
		label += " [guarded]"
	}
	if t.Instant {
		label += " !"
	}
	return label
}

// ToMermaid generates a Mermaid state diagram.
func (v *Visualizer) ToMermaid() string {
	var sb strings.Builder

	sb.WriteString("```mermaid\n")
	sb.WriteString("stateDiagram-v2\n")

	if v.snap.Initial != "" {
		sb.WriteString(fmt.Sprintf("    [*] --> %s\n", mermaidID(v.snap.Initial)))
	}

	for _, state := range v.snap.States {
		for _, t := range state.Transitions {
			sb.WriteString(fmt.Sprintf("    %s --> %s : %s\n",
				mermaidID(state.ID), mermaidID(t.To), transitionLabel(t)))
		}
		if state.Timeout > 0 && state.TimeoutTarget != "" {
			sb.WriteString(fmt.Sprintf("    %s --> %s : timeout %.3gs\n",
				mermaidID(state.ID), mermaidID(state.TimeoutTarget), state.Timeout))
		}
	}
	for _, t := range v.snap.GlobalTransitions {
		for _, state := range v.snap.States {
			if state.ID == t.To {
				continue
			}
			sb.WriteString(fmt.Sprintf("    %s --> %s : %s (global)\n",
				mermaidID(state.ID), mermaidID(t.To), transitionLabel(t)))
		}
	}

	sb.WriteString("```\n")
	return sb.String()
}

// ToGraphviz generates a Graphviz DOT representation.
func (v *Visualizer) ToGraphviz() string {
	var sb strings.Builder

	sb.WriteString("digraph Machine {\n")
	sb.WriteString("  rankdir=LR;\n")
	sb.WriteString("  node [shape=circle];\n\n")

	if v.snap.Initial != "" {
		sb.WriteString("  start [shape=point];\n")
		sb.WriteString(fmt.Sprintf("  start -> %q;\n\n", v.snap.Initial))
	}

	for _, state := range v.snap.States {
		attrs := ""
		if state.LockMode != "none" {
			attrs = ",peripheries=2"
		}
		sb.WriteString(fmt.Sprintf("  %q [shape=circle%s];\n", state.ID, attrs))

		for _, t := range state.Transitions {
			sb.WriteString(fmt.Sprintf("  %q -> %q [label=%q];\n",
				state.ID, t.To, transitionLabel(t)))
		}
		if state.Timeout > 0 && state.TimeoutTarget != "" {
			sb.WriteString(fmt.Sprintf("  %q -> %q [label=\"timeout %.3gs\",style=dashed];\n",
				state.ID, state.TimeoutTarget, state.Timeout))
		}
	}
	for _, t := range v.snap.GlobalTransitions {
		sb.WriteString(fmt.Sprintf("  %q [shape=doublecircle];\n", t.To))
	}

	sb.WriteString("}\n")
	return sb.String()
}

// Stats returns aggregate counts for the snapshot.
func (v *Visualizer) Stats() map[string]interface{} {
	transitionCount := len(v.snap.GlobalTransitions)
	lockedCount := 0
	for _, state := range v.snap.States {
		transitionCount += len(state.Transitions)
		if state.LockMode != "none" {
			lockedCount++
		}
	}
	return map[string]interface{}{
		"id":              v.snap.ID,
		"initial":         v.snap.Initial,
		"stateCount":      len(v.snap.States),
		"transitionCount": transitionCount,
		"globalCount":     len(v.snap.GlobalTransitions),
		"lockedCount":     lockedCount,
	}
}

// Validate performs static checks and returns a list of warnings.
func (v *Visualizer) Validate() []string {
	var issues []string

	// Reachability: BFS from the initial state over local transitions
	// and timeout edges. Global targets are reachable from everywhere.
	reachable := make(map[string]bool)
	var queue []string
	if v.snap.Initial != "" {
		reachable[v.snap.Initial] = true
		queue = append(queue, v.snap.Initial)
	}
	for _, t := range v.snap.GlobalTransitions {
		if !reachable[t.To] {
			reachable[t.To] = true
			queue = append(queue, t.To)
		}
	}
	states := make(map[string]StateSnapshot, len(v.snap.States))
	for _, state := range v.snap.States {
		states[state.ID] = state
	}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		state, ok := states[current]
		if !ok {
			continue
		}
		targets := make([]string, 0, len(state.Transitions)+1)
		for _, t := range state.Transitions {
			targets = append(targets, t.To)
		}
		if state.Timeout > 0 && state.TimeoutTarget != "" {
			targets = append(targets, state.TimeoutTarget)
		}
		for _, to := range targets {
			if !reachable[to] {
				reachable[to] = true
				queue = append(queue, to)
			}
		}
	}
	for _, state := range v.snap.States {
		if !reachable[state.ID] {
			issues = append(issues, fmt.Sprintf("state %q is unreachable", state.ID))
		}
	}

	// Dead ends: no outgoing rules, no timeout, and no global rules to
	// leave through.
	if len(v.snap.GlobalTransitions) == 0 {
		for _, state := range v.snap.States {
			if len(state.Transitions) == 0 && state.Timeout <= 0 {
				issues = append(issues, fmt.Sprintf("state %q has no way out", state.ID))
			}
		}
	}

	// Duplicate event rules on one state resolve by priority and
	// registration order; flag them so the ordering is intentional.
	for _, state := range v.snap.States {
		events := make(map[string]int)
		for _, t := range state.Transitions {
			if t.Event != "" {
				events[t.Event]++
			}
		}
		for event, count := range events {
			if count > 1 {
				issues = append(issues, fmt.Sprintf(
					"state %q has %d rules for event %q (ordering falls back to priority, then registration)",
					state.ID, count, event))
			}
		}
	}

	// Timeout with no target never fires.
	for _, state := range v.snap.States {
		if state.Timeout > 0 && state.TimeoutTarget == "" {
			issues = append(issues, fmt.Sprintf("state %q has a timeout but no target", state.ID))
		}
	}

	return issues
}
