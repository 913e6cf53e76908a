// Package scenario drives the gate pipeline from YAML descriptions of switch
// and touchpad activity, using in-memory devices and a virtual clock. It is
// used by the golden tests and by the replay command.
package scenario

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Scenario is one scripted run of the pipeline.
type Scenario struct {
	Name        string              `yaml:"name"`
	Description string              `yaml:"description"`
	Bindings    map[string][]string `yaml:"bindings,omitempty"`
	Switches    []SwitchSpec        `yaml:"switches"`
	Touchpads   []TouchpadSpec      `yaml:"touchpads,omitempty"`
	Steps       []Step              `yaml:"steps"`
}

// SwitchSpec declares a switch source. Initial defaults to OFF.
type SwitchSpec struct {
	ID      string `yaml:"id"`
	Initial string `yaml:"initial,omitempty"`
}

// TouchpadSpec declares a gated touchpad.
type TouchpadSpec struct {
	ID         string `yaml:"id"`
	EdgeScroll bool   `yaml:"edge_scroll,omitempty"`
}

// Step is one action. Every input action is stamped with the current virtual
// time, which then advances by Tick.
type Step struct {
	Action string        `yaml:"action"`
	Target string        `yaml:"target,omitempty"`
	State  string        `yaml:"state,omitempty"`
	X      float64       `yaml:"x,omitempty"`
	Y      float64       `yaml:"y,omitempty"`
	Steps  int           `yaml:"steps,omitempty"`
	Wait   time.Duration `yaml:"wait,omitempty"`
}

// Step actions.
const (
	ActionSwitch   = "switch"
	ActionDown     = "down"
	ActionMove     = "move"
	ActionUp       = "up"
	ActionDispatch = "dispatch"
	ActionDrain    = "drain"
	ActionWait     = "wait"
	ActionDetach   = "detach"
)

// Load reads and validates a scenario file. Unknown fields are rejected.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a scenario document.
func Parse(data []byte) (*Scenario, error) {
	var s Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if err := validate(&s); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &s, nil
}

func validate(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(s.Switches) == 0 && len(s.Touchpads) == 0 {
		return fmt.Errorf("at least one switch or touchpad is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	ids := make(map[string]string)
	for i, sw := range s.Switches {
		if sw.ID == "" {
			return fmt.Errorf("switches[%d]: id is required", i)
		}
		if _, dup := ids[sw.ID]; dup {
			return fmt.Errorf("switches[%d]: duplicate id %q", i, sw.ID)
		}
		switch sw.Initial {
		case "", "ON", "OFF":
		default:
			return fmt.Errorf("switches[%d]: initial must be ON or OFF, got %q", i, sw.Initial)
		}
		ids[sw.ID] = "switch"
	}
	for i, tp := range s.Touchpads {
		if tp.ID == "" {
			return fmt.Errorf("touchpads[%d]: id is required", i)
		}
		if _, dup := ids[tp.ID]; dup {
			return fmt.Errorf("touchpads[%d]: duplicate id %q", i, tp.ID)
		}
		ids[tp.ID] = "touchpad"
	}

	for sw, devs := range s.Bindings {
		if ids[sw] != "switch" {
			return fmt.Errorf("bindings: %q is not a declared switch", sw)
		}
		for _, dev := range devs {
			if ids[dev] != "touchpad" {
				return fmt.Errorf("bindings: %q is not a declared touchpad", dev)
			}
		}
	}

	for i, st := range s.Steps {
		if err := validateStep(st, ids); err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
	}
	return nil
}

func validateStep(st Step, ids map[string]string) error {
	switch st.Action {
	case ActionSwitch:
		if ids[st.Target] != "switch" {
			return fmt.Errorf("switch target %q is not a declared switch", st.Target)
		}
		if st.State != "ON" && st.State != "OFF" {
			return fmt.Errorf("switch state must be ON or OFF, got %q", st.State)
		}
	case ActionDown, ActionMove, ActionUp:
		if ids[st.Target] != "touchpad" {
			return fmt.Errorf("%s target %q is not a declared touchpad", st.Action, st.Target)
		}
		if st.Steps < 0 {
			return fmt.Errorf("steps must be non-negative")
		}
	case ActionDetach:
		if ids[st.Target] == "" {
			return fmt.Errorf("detach target %q is not declared", st.Target)
		}
	case ActionWait:
		if st.Wait <= 0 {
			return fmt.Errorf("wait must be positive")
		}
	case ActionDispatch, ActionDrain:
	case "":
		return fmt.Errorf("action is required")
	default:
		return fmt.Errorf("unknown action %q", st.Action)
	}
	return nil
}
