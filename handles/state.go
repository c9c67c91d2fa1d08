package handles

import "fmt"

//go:generate stringer -type State
type State byte

const (
	Uninitialized State = iota
	Initialized
	Running
	Stopped
	Destroyed
)

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(data []byte) error {
	for st := Uninitialized; st <= Destroyed; st++ {
		if string(data) == st.String() {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("invalid handle state '%s'", data)
}
