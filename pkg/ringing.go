package evt0

import (
	"math"
	"strings"
)

// Only events telemetered at this scale factor suffer from ringing.
const RingingScaleFactor = 3

// CorrectTap removes the ringing sinusoid from the far tap of one axis.
// The result is rounded half up and clamped to [0, AmpMax]. If the model
// is undefined for these samples (NaN) the far tap is returned unchanged.
func (c AxisCoefficients) CorrectTap(outer, middle, inner int16) int16 {
	a1 := float64(outer)
	a2 := float64(middle)
	a3 := float64(inner)

	phi := 0.0
	if outer > 0 {
		phi = c.F * (math.Pow(a2/a1, c.G) - 1.0)
	}
	a3 -= (a2 + c.B) / c.A * math.Sin(2.0*math.Pi*(a2-phi)/(a2*c.C+c.D))
	if math.IsNaN(a3) {
		return inner
	}
	return clampAmp(math.Trunc(a3 + 0.5))
}

func clampAmp(v float64) int16 {
	if v < 0 {
		return 0
	}
	if v > AmpMax {
		return AmpMax
	}
	return int16(v)
}

// Correct returns the far tap of each axis after the ringing correction.
// Axes that are not eligible, and every event not at RingingScaleFactor,
// keep their telemetered values.
func (p RingingParams) Correct(ev Event) [2]int16 {
	corrected := [2]int16{ev.Amps[AxisU][Tap3], ev.Amps[AxisV][Tap3]}
	if ev.AmpSF != RingingScaleFactor {
		return corrected
	}
	for _, axis := range []Axis{AxisU, AxisV} {
		coef := p.Axis(axis)
		if !p.Mode.Eligible(axis, ev, coef) {
			continue
		}
		taps := ev.Amps[axis]
		corrected[axis] = coef.CorrectTap(taps[Tap1], taps[Tap2], taps[Tap3])
	}
	return corrected
}

// RingingCorrector rewrites AU3 and AV3 of ringing events.
type RingingCorrector struct {
	Params RingingParams
}

func (c RingingCorrector) Name() string {
	return "ringcorrect"
}

func (c RingingCorrector) Inputs() []string {
	return []string{ColAmpSF, ColAU1, ColAU2, ColAU3, ColAV1, ColAV2, ColAV3, ColVetoStt}
}

func (c RingingCorrector) Outputs() []string {
	return []string{ColAV3, ColAU3}
}

// Apply corrects the far taps in place and returns the number of rows changed.
func (c RingingCorrector) Apply(cols *ColumnSet) int {
	changed := 0
	for i := 0; i < cols.Len(); i++ {
		ev := cols.Event(i)
		corrected := c.Params.Correct(ev)
		rowChanged := false
		for _, axis := range []Axis{AxisU, AxisV} {
			if corrected[axis] != ev.Amps[axis][Tap3] {
				cols.Amps[axis][Tap3][i] = corrected[axis]
				rowChanged = true
			}
		}
		if rowChanged {
			changed++
		}
	}
	return changed
}

func (c RingingCorrector) Parameters() map[string]float64 {
	params := map[string]float64{
		"use_width": float64(c.Params.Mode),
	}
	for _, axis := range []Axis{AxisU, AxisV} {
		coef := c.Params.Axis(axis)
		prefix := strings.ToLower(axis.String()) + "axis_"
		params[prefix+"a"] = coef.A
		params[prefix+"b"] = coef.B
		params[prefix+"c"] = coef.C
		params[prefix+"d"] = coef.D
		params[prefix+"e"] = coef.E
		params[prefix+"f"] = coef.F
		params[prefix+"g"] = coef.G
		params[prefix+"o"] = coef.O
	}
	return params
}
