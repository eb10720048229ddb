package roster

import "slices"

// Level is one named alert threshold; a value at or above Threshold is in it.
type Level struct {
	Name      string  `yaml:"name"`
	Threshold float64 `yaml:"threshold"`
}

// Alerts maps a status attribute name to its levels.
type Alerts map[string][]Level

type Alert struct {
	ParticipantID string
	Attribute     string
	Level         string
	Value         float64
}

// DefaultAlerts mirrors the tension bands shown on the director panel.
func DefaultAlerts() Alerts {
	return Alerts{
		"tension": {
			{Name: "medium", Threshold: 30},
			{Name: "high", Threshold: 60},
			{Name: "critical", Threshold: 80},
		},
	}
}

// levelOf returns the index of the highest level v reaches, or -1.
func levelOf(levels []Level, v float64) int {
	idx := -1
	for i, l := range levels {
		if v >= l.Threshold {
			idx = i
		}
	}
	return idx
}

func (a Alerts) crossed(attr string, prev float64, had bool, next float64) (Alert, bool) {
	levels := slices.Clone(a[attr])
	if len(levels) == 0 {
		return Alert{}, false
	}
	slices.SortFunc(levels, func(x, y Level) int {
		switch {
		case x.Threshold < y.Threshold:
			return -1
		case x.Threshold > y.Threshold:
			return 1
		}
		return 0
	})
	before := -1
	if had {
		before = levelOf(levels, prev)
	}
	after := levelOf(levels, next)
	if after < 0 || after <= before {
		return Alert{}, false
	}
	return Alert{Attribute: attr, Level: levels[after].Name, Value: next}, true
}
