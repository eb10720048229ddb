package engine

import "maps"

func NewState() State {
	return State{
		Phase:     PhaseNarrative,
		Round:     1,
		Completed: map[string]bool{},
	}
}

// Clone returns a copy that shares no maps with s.
func (s State) Clone() State {
	c := s
	c.Completed = maps.Clone(s.Completed)
	if c.Completed == nil {
		c.Completed = map[string]bool{}
	}
	return c
}

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}
