package evt0

import (
	"encoding/json"
	"fmt"
)

// EligibilityMode selects how an axis is found to need the ringing correction.
type EligibilityMode int

const (
	// outer > inner and outer > e*middle + o
	ModeDefault EligibilityMode = iota
	// outer > inner and the axis width-exceeded bit of VETOSTT is clear
	ModeWidth
)

var eligibilityModeStrings = []string{
	"default",
	"width",
}

func (m EligibilityMode) String() string {
	if m < ModeDefault || m > ModeWidth {
		return "UNKNOWN"
	}
	return eligibilityModeStrings[m]
}

func (m EligibilityMode) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

func (m *EligibilityMode) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	for i, v := range eligibilityModeStrings {
		if v == s {
			*m = EligibilityMode(i)
			return nil
		}
	}
	return fmt.Errorf("invalid EligibilityMode: %s", s)
}

// Eligible reports whether the taps of axis need the ringing correction.
func (m EligibilityMode) Eligible(axis Axis, ev Event, coef AxisCoefficients) bool {
	outer := ev.Amps[axis][Tap1]
	middle := ev.Amps[axis][Tap2]
	inner := ev.Amps[axis][Tap3]
	if outer <= inner {
		return false
	}
	switch m {
	case ModeWidth:
		return ev.VetoStt&axis.vetoBit() == 0
	case ModeDefault:
		return float64(outer) > coef.E*float64(middle)+coef.O
	default:
		return false
	}
}
