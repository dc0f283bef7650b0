package evt0

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ampsWithSum spreads total over the six taps.
func ampsWithSum(total int) Amplitudes {
	var amps Amplitudes
	share := total / 6
	for axis := range amps {
		for tap := range amps[axis] {
			amps[axis][tap] = int16(share)
		}
	}
	amps[AxisU][Tap3] += int16(total - 6*share)
	return amps
}

func TestAmplitudesSum(t *testing.T) {
	amps := Amplitudes{{1, 2, 3}, {-4, 5, 6}}
	assert.Equal(t, 13, amps.Sum())
	assert.Equal(t, 7363, ampsWithSum(7363).Sum())
}

func TestResolve(t *testing.T) {
	params := DefaultScaleFactorParams()
	tests := []struct {
		name     string
		pha      float64
		ampSum   int
		prior    uint8
		expected uint8
	}{
		{"below first band", 40, 0, 3, 1},
		{"first band matches range 1", 50, 7400, 3, 1}, // sum 50
		{"first band matches range 2", 50, 3700, 1, 2}, // sum 25
		{"first band unresolved", 50, 29600, 3, 3},     // sum 200
		{"between bands", 75, 0, 1, 2},
		{"second band matches range 2", 99.5, 7363, 3, 2}, // sum 49.75
		{"second band matches range 3", 100, 3700, 2, 3},  // sum 25
		{"second band unresolved", 100, 29600, 1, 1},
		{"above second band", 200, 0, 1, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := params.Resolve(tt.pha, ampsWithSum(tt.ampSum), tt.prior)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestResolveBandEdges(t *testing.T) {
	params := DefaultScaleFactorParams()

	// lower edge 48.5 is inside the band; the taps agree with range 1
	assert.Equal(t, uint8(1), params.Resolve(48.5, ampsWithSum(7178), 3))
	// and with no agreement the prior value is kept
	assert.Equal(t, uint8(3), params.Resolve(48.5, ampsWithSum(29600), 3))

	// upper edge 52.5 is past the band, taps agreeing with range 1 are ignored
	assert.Equal(t, uint8(2), params.Resolve(52.5, ampsWithSum(7770), 1))

	// same for the second band: 97.5 is inside, 101.5 is past it
	assert.Equal(t, uint8(1), params.Resolve(97.5, ampsWithSum(29600), 1))
	assert.Equal(t, uint8(3), params.Resolve(101.5, ampsWithSum(7511), 2))
}

func TestResolveTieTakesHigherRange(t *testing.T) {
	params := DefaultScaleFactorParams()
	params.Thresh1 = 100
	params.Thresh2 = 100
	// zero taps give d1 == d2 == PHA
	assert.Equal(t, uint8(2), params.Resolve(50, Amplitudes{}, 1))
}

func TestScaleFactorCorrectorApply(t *testing.T) {
	corrector := ScaleFactorCorrector{Params: DefaultScaleFactorParams()}
	cols, err := NewColumnSet(3, corrector.Inputs())
	require.NoError(t, err)

	rows := []struct {
		pha   uint8
		ampSF uint8
		amps  Amplitudes
	}{
		{40, 1, Amplitudes{}},       // already 1
		{200, 1, Amplitudes{}},      // becomes 3
		{50, 3, ampsWithSum(29600)}, // unresolved, kept
	}
	for i, row := range rows {
		cols.PHA[i] = row.pha
		cols.AmpSF[i] = row.ampSF
		for axis := range row.amps {
			for tap := range row.amps[axis] {
				cols.Amps[axis][tap][i] = row.amps[axis][tap]
			}
		}
	}

	changed := corrector.Apply(cols)
	assert.Equal(t, 1, changed)
	assert.Equal(t, []uint8{1, 3, 3}, cols.AmpSF)
	assert.Equal(t, []uint8{40, 200, 50}, cols.PHA)
	assert.Equal(t, []string{ColAmpSF}, corrector.Outputs())
}

func TestScaleFactorParameters(t *testing.T) {
	params := ScaleFactorCorrector{Params: DefaultScaleFactorParams()}.Parameters()
	assert.Len(t, params, 8)
	assert.Equal(t, 74.0, params["gain"])
	assert.Equal(t, 32.0, params["thresh3"])
	assert.Equal(t, 99.5, params["pha_2to3"])
}

func genAmplitudes() gopter.Gen {
	return gen.SliceOfN(6, gen.Int16Range(0, AmpMax)).Map(func(taps []int16) Amplitudes {
		var amps Amplitudes
		for i, tap := range taps {
			amps[i/3][i%3] = tap
		}
		return amps
	})
}

func TestProperty_ScaleFactor(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 500
	properties := gopter.NewProperties(parameters)
	params := DefaultScaleFactorParams()

	properties.Property("scale factor stays in 1..3", prop.ForAll(
		func(pha uint8, amps Amplitudes, prior uint8) bool {
			scale := params.Resolve(float64(pha), amps, prior)
			return scale >= 1 && scale <= 3
		},
		gen.UInt8(),
		genAmplitudes(),
		gen.UInt8Range(1, 3),
	))

	properties.Property("correcting twice equals correcting once", prop.ForAll(
		func(pha uint8, amps Amplitudes, prior uint8) bool {
			once := params.Resolve(float64(pha), amps, prior)
			return params.Resolve(float64(pha), amps, once) == once
		},
		gen.UInt8(),
		genAmplitudes(),
		gen.UInt8Range(1, 3),
	))

	properties.TestingRun(t)
}
