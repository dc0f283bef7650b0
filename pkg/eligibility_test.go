package evt0

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEligibilityModeJSON(t *testing.T) {
	for _, mode := range []EligibilityMode{ModeDefault, ModeWidth} {
		data, err := json.Marshal(mode)
		require.NoError(t, err)

		var decoded EligibilityMode
		require.NoError(t, json.Unmarshal(data, &decoded))
		assert.Equal(t, mode, decoded)
	}

	data, err := json.Marshal(ModeWidth)
	require.NoError(t, err)
	assert.Equal(t, `"width"`, string(data))

	var mode EligibilityMode
	assert.Error(t, json.Unmarshal([]byte(`"sometimes"`), &mode))
	assert.Error(t, json.Unmarshal([]byte(`1`), &mode))
	assert.Equal(t, "UNKNOWN", EligibilityMode(7).String())
}

func TestEligible(t *testing.T) {
	coef := AxisCoefficients{A: 1, E: 0.5, O: 10}
	tests := []struct {
		name     string
		mode     EligibilityMode
		taps     [3]int16
		vetoStt  uint8
		expected bool
	}{
		{"default above limit", ModeDefault, [3]int16{200, 100, 50}, 0, true},
		{"default at limit", ModeDefault, [3]int16{60, 100, 50}, 0, false},
		{"default outer equals inner", ModeDefault, [3]int16{200, 100, 200}, 0, false},
		{"width bit clear", ModeWidth, [3]int16{60, 100, 50}, VetoWidthV, true},
		{"width bit set", ModeWidth, [3]int16{200, 100, 50}, VetoWidthU, false},
		{"width outer below inner", ModeWidth, [3]int16{40, 100, 50}, 0, false},
		{"unknown mode", EligibilityMode(5), [3]int16{200, 100, 50}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := Event{Amps: Amplitudes{tt.taps}, VetoStt: tt.vetoStt}
			assert.Equal(t, tt.expected, tt.mode.Eligible(AxisU, ev, coef))
		})
	}
}

func TestEligibleAxisBits(t *testing.T) {
	ev := Event{
		Amps:    Amplitudes{{200, 100, 50}, {200, 100, 50}},
		VetoStt: VetoWidthV,
	}
	coef := AxisCoefficients{A: 1}
	assert.True(t, ModeWidth.Eligible(AxisU, ev, coef))
	assert.False(t, ModeWidth.Eligible(AxisV, ev, coef))
}
