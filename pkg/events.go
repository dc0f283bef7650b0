package evt0

// Column names of the EVENTS extension used by the correction tools.
const (
	ColPHA     = "PHA"
	ColAmpSF   = "AMP_SF"
	ColAU1     = "AU1"
	ColAU2     = "AU2"
	ColAU3     = "AU3"
	ColAV1     = "AV1"
	ColAV2     = "AV2"
	ColAV3     = "AV3"
	ColVetoStt = "VETOSTT"
)

// ADC ceiling of the amplitude taps (12 bits)
const AmpMax = 4095

// Readout axis of the detector
type Axis int

const (
	AxisU Axis = iota
	AxisV
)

func (a Axis) String() string {
	switch a {
	case AxisU:
		return "U"
	case AxisV:
		return "V"
	default:
		return "Unknown"
	}
}

// Tap positions along one axis. Tap3 is the far tap affected by ringing.
const (
	Tap1 = iota
	Tap2
	Tap3
)

// Width-exceeded bits of VETOSTT, one per axis
const (
	VetoWidthU uint8 = 0x10
	VetoWidthV uint8 = 0x20
)

var ampColumns = [2][3]string{
	{ColAU1, ColAU2, ColAU3},
	{ColAV1, ColAV2, ColAV3},
}

// AmpColumn returns the column name of the given axis tap.
func AmpColumn(axis Axis, tap int) string {
	return ampColumns[axis][tap]
}

func (a Axis) vetoBit() uint8 {
	if a == AxisV {
		return VetoWidthV
	}
	return VetoWidthU
}

// Amplitudes holds the six raw tap samples of one event, indexed [axis][tap].
type Amplitudes [2][3]int16

// Sum of the six taps
func (a Amplitudes) Sum() int {
	sum := 0
	for _, axis := range a {
		for _, tap := range axis {
			sum += int(tap)
		}
	}
	return sum
}

// Event is one row of the EVENTS table, as seen by the correctors.
type Event struct {
	PHA     uint8
	AmpSF   uint8
	Amps    Amplitudes
	VetoStt uint8
}
