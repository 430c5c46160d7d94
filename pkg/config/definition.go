package config

import (
	"fmt"
	"strings"

	"github.com/fluxionlab/fsmkit/pkg/machine"
)

// Definition is the declarative shape of a machine: states, their
// timing and lock configuration, and the transition graph.
type Definition struct {
	ID      string          `yaml:"id,omitempty" json:"id,omitempty"`
	Name    string          `yaml:"name,omitempty" json:"name,omitempty"`
	Initial string          `yaml:"initial,omitempty" json:"initial,omitempty"`
	States  []StateDef      `yaml:"states" json:"states"`
	Globals []TransitionDef `yaml:"globals,omitempty" json:"globals,omitempty"`
}

// StateDef declares one state.
type StateDef struct {
	ID            string          `yaml:"id" json:"id"`
	MinTime       float64         `yaml:"minTime,omitempty" json:"minTime,omitempty"`
	Timeout       float64         `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	TimeoutTarget string          `yaml:"timeoutTarget,omitempty" json:"timeoutTarget,omitempty"`
	ProcessMode   string          `yaml:"processMode,omitempty" json:"processMode,omitempty"`
	LockMode      string          `yaml:"lockMode,omitempty" json:"lockMode,omitempty"`
	Tags          []string        `yaml:"tags,omitempty" json:"tags,omitempty"`
	Transitions   []TransitionDef `yaml:"transitions,omitempty" json:"transitions,omitempty"`
}

// TransitionDef declares one transition rule.
type TransitionDef struct {
	To       string  `yaml:"to" json:"to"`
	Event    string  `yaml:"event,omitempty" json:"event,omitempty"`
	Priority int     `yaml:"priority,omitempty" json:"priority,omitempty"`
	MinTime  float64 `yaml:"minTime,omitempty" json:"minTime,omitempty"`
	Instant  bool    `yaml:"instant,omitempty" json:"instant,omitempty"`
}

// Validate checks the definition for structural problems: missing or
// duplicate state ids, dangling transition or timeout targets, and an
// unknown initial state.
func (d *Definition) Validate() error {
	if len(d.States) == 0 {
		return fmt.Errorf("definition %q has no states", d.ID)
	}

	ids := make(map[string]struct{}, len(d.States))
	for i, st := range d.States {
		if st.ID == "" {
			return fmt.Errorf("state %d has no id", i)
		}
		if _, dup := ids[st.ID]; dup {
			return fmt.Errorf("duplicate state id %q", st.ID)
		}
		ids[st.ID] = struct{}{}
	}

	if d.Initial != "" {
		if _, ok := ids[d.Initial]; !ok {
			return fmt.Errorf("initial state %q is not declared", d.Initial)
		}
	}

	for _, st := range d.States {
		if _, err := parseProcessMode(st.ProcessMode); err != nil {
			return fmt.Errorf("state %q: %w", st.ID, err)
		}
		if _, err := parseLockMode(st.LockMode); err != nil {
			return fmt.Errorf("state %q: %w", st.ID, err)
		}
		if st.Timeout > 0 {
			if st.TimeoutTarget == "" {
				return fmt.Errorf("state %q has a timeout but no timeoutTarget", st.ID)
			}
			if _, ok := ids[st.TimeoutTarget]; !ok {
				return fmt.Errorf("state %q timeout target %q is not declared", st.ID, st.TimeoutTarget)
			}
		}
		for _, tr := range st.Transitions {
			if _, ok := ids[tr.To]; !ok {
				return fmt.Errorf("state %q transition target %q is not declared", st.ID, tr.To)
			}
		}
	}
	for _, tr := range d.Globals {
		if _, ok := ids[tr.To]; !ok {
			return fmt.Errorf("global transition target %q is not declared", tr.To)
		}
	}
	return nil
}

// Build validates the definition and constructs a machine from it.
// Declared rules have no conditions or guards yet; the host attaches
// those through the returned machine's registries.
func (d *Definition) Build(opts ...machine.Option[string]) (*machine.Machine[string], error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	if d.ID != "" {
		opts = append([]machine.Option[string]{machine.WithID[string](d.ID)}, opts...)
	}
	m := machine.NewMachine[string](opts...)

	for _, sd := range d.States {
		st := m.AddState(sd.ID)
		if sd.MinTime > 0 {
			st.WithMinTime(sd.MinTime)
		}
		if sd.Timeout > 0 {
			st.WithTimeout(sd.Timeout, sd.TimeoutTarget)
		}
		if len(sd.Tags) > 0 {
			st.WithTags(sd.Tags...)
		}
		mode, _ := parseProcessMode(sd.ProcessMode)
		st.WithProcessMode(mode)
		lock, _ := parseLockMode(sd.LockMode)
		st.WithLockMode(lock)
	}

	for _, sd := range d.States {
		for _, td := range sd.Transitions {
			applyRule(m.AddTransition(sd.ID, td.To), td)
		}
	}
	for _, td := range d.Globals {
		applyRule(m.AddGlobalTransition(td.To), td)
	}

	if d.Initial != "" {
		m.SetInitial(d.Initial)
	}
	return m, nil
}

func applyRule(r *machine.TransitionRule[string], td TransitionDef) {
	if r == nil {
		return
	}
	if td.Event != "" {
		r.OnEvent(td.Event)
	}
	if td.Priority != 0 {
		r.WithPriority(td.Priority)
	}
	if td.MinTime > 0 {
		r.WithMinTime(td.MinTime)
	}
	if td.Instant {
		r.Instant()
	}
}

func parseProcessMode(s string) (machine.ProcessMode, error) {
	switch strings.ToLower(s) {
	case "", "update":
		return machine.ProcessUpdate, nil
	case "fixed":
		return machine.ProcessFixed, nil
	default:
		return machine.ProcessUpdate, fmt.Errorf("unknown process mode %q", s)
	}
}

func parseLockMode(s string) (machine.LockMode, error) {
	switch strings.ToLower(s) {
	case "", "none":
		return machine.LockNone, nil
	case "transitions":
		return machine.LockTransitions, nil
	case "full":
		return machine.LockFull, nil
	default:
		return machine.LockNone, fmt.Errorf("unknown lock mode %q", s)
	}
}
