package xpc

import "fmt"

// State is the activation state of a session or listener. It only moves
// forward: inactive, active, canceled.
type State int32

const (
	StateInactive State = iota
	StateActive
	StateCanceled
)

var stateNames = map[State]string{
	StateInactive: "inactive",
	StateActive:   "active",
	StateCanceled: "canceled",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(text []byte) error {
	for st, name := range stateNames {
		if name == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("xpc: unknown state %q", text)
}

// Options are initialization options of sessions and listeners.
type Options uint8

const (
	OptionsNone Options = 0
	// OptionInactive creates the channel inactive. It has to be activated
	// before it is used.
	OptionInactive Options = 1 << 0
)

func (o Options) has(flag Options) bool {
	return o&flag != 0
}
