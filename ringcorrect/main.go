package main

import (
	"flag"
	"os"
	"strconv"

	evt0 "github.com/hrc-cal/evt0_go/pkg"
)

var tool = evt0.Tool{
	Name:         "ringcorrect",
	Usage:        "Removes the ringing distortion from the far taps (AU3, AV3) of scale factor 3 events.",
	BindFlags:    bindFlags,
	NewCorrector: newCorrector,
}

func bindAxis(fs *flag.FlagSet, prefix string, coef *evt0.AxisCoefficients) {
	fs.Float64Var(&coef.A, prefix+"a", coef.A, prefix+"-axis sinusoid amplitude divisor")
	fs.Float64Var(&coef.B, prefix+"b", coef.B, prefix+"-axis sinusoid amplitude offset")
	fs.Float64Var(&coef.C, prefix+"c", coef.C, prefix+"-axis period slope")
	fs.Float64Var(&coef.D, prefix+"d", coef.D, prefix+"-axis period offset")
	fs.Float64Var(&coef.E, prefix+"e", coef.E, prefix+"-axis eligibility slope")
	fs.Float64Var(&coef.F, prefix+"f", coef.F, prefix+"-axis phase scale")
	fs.Float64Var(&coef.G, prefix+"g", coef.G, prefix+"-axis phase exponent")
	fs.Float64Var(&coef.O, prefix+"o", coef.O, prefix+"-axis eligibility offset")
}

func bindFlags(fs *flag.FlagSet, config *evt0.Configuration) {
	ringing := &config.Ringing
	fs.BoolFunc("w", "Select events with the width-exceeded bits of VETOSTT", func(value string) error {
		useWidth, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		ringing.Mode = evt0.ModeDefault
		if useWidth {
			ringing.Mode = evt0.ModeWidth
		}
		return nil
	})
	bindAxis(fs, "u", &ringing.U)
	bindAxis(fs, "v", &ringing.V)
}

func newCorrector(config evt0.Configuration) evt0.Corrector {
	return evt0.RingingCorrector{Params: config.Ringing}
}

func main() {
	os.Exit(evt0.Main(tool, os.Args[1:], os.Stdout, os.Stderr))
}
