package evt0

import "math"

// Resolve returns the amplitude scale factor (1, 2 or 3) matching the pulse
// height. Near the range switch points the six taps decide which range the
// PHA is consistent with; when neither range is close enough the prior
// telemetered value is kept.
func (p ScaleFactorParams) Resolve(pha float64, amps Amplitudes, prior uint8) uint8 {
	switch {
	case pha < p.Pha1to2-p.Width1:
		return 1
	case pha < p.Pha1to2+p.Width1:
		sum := p.sumAmps(amps)
		diff1 := math.Abs(pha - sum)
		diff2 := math.Abs(pha - 2.0*sum)
		scale := prior
		if diff1 <= diff2 && diff1 < float64(p.Thresh1) {
			scale = 1
		}
		// a tie passing both thresholds ends in the higher range
		if diff2 <= diff1 && diff2 < float64(p.Thresh2) {
			scale = 2
		}
		return scale
	case pha < p.Pha2to3-p.Width2:
		return 2
	case pha < p.Pha2to3+p.Width2:
		sum := p.sumAmps(amps)
		diff2 := math.Abs(pha - 2.0*sum)
		diff3 := math.Abs(pha - 4.0*sum)
		scale := prior
		if diff2 <= diff3 && diff2 < float64(p.Thresh2) {
			scale = 2
		}
		if diff3 <= diff2 && diff3 < float64(p.Thresh3) {
			scale = 3
		}
		return scale
	default:
		return 3
	}
}

// sumAmps converts the summed taps to the PHA scale at range 1.
func (p ScaleFactorParams) sumAmps(amps Amplitudes) float64 {
	return float64(amps.Sum()) * 0.5 / p.Gain
}

// ScaleFactorCorrector rewrites AMP_SF from PHA and the six taps.
type ScaleFactorCorrector struct {
	Params ScaleFactorParams
}

func (c ScaleFactorCorrector) Name() string {
	return "fixampsf"
}

func (c ScaleFactorCorrector) Inputs() []string {
	return []string{ColPHA, ColAmpSF, ColAU1, ColAU2, ColAU3, ColAV1, ColAV2, ColAV3}
}

func (c ScaleFactorCorrector) Outputs() []string {
	return []string{ColAmpSF}
}

// Apply corrects AMP_SF in place and returns the number of rows changed.
func (c ScaleFactorCorrector) Apply(cols *ColumnSet) int {
	changed := 0
	for i := 0; i < cols.Len(); i++ {
		ev := cols.Event(i)
		scale := c.Params.Resolve(float64(ev.PHA), ev.Amps, ev.AmpSF)
		if scale != ev.AmpSF {
			cols.AmpSF[i] = scale
			changed++
		}
	}
	return changed
}

func (c ScaleFactorCorrector) Parameters() map[string]float64 {
	p := c.Params
	return map[string]float64{
		"gain":     p.Gain,
		"thresh1":  float64(p.Thresh1),
		"thresh2":  float64(p.Thresh2),
		"thresh3":  float64(p.Thresh3),
		"pha_1to2": p.Pha1to2,
		"pha_2to3": p.Pha2to3,
		"width1":   p.Width1,
		"width2":   p.Width2,
	}
}
