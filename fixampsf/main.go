package main

import (
	"flag"
	"os"

	evt0 "github.com/hrc-cal/evt0_go/pkg"
)

var tool = evt0.Tool{
	Name:         "fixampsf",
	Usage:        "Recomputes the amplitude scale factor (AMP_SF) of every event from PHA and the six taps.",
	BindFlags:    bindFlags,
	NewCorrector: newCorrector,
}

func bindFlags(fs *flag.FlagSet, config *evt0.Configuration) {
	sf := &config.ScaleFactor
	fs.Float64Var(&sf.Gain, "gain", sf.Gain, "Gain between summed taps and PHA")
	fs.IntVar(&sf.Thresh1, "thresh1", sf.Thresh1, "Max PHA difference accepted for scale 1")
	fs.IntVar(&sf.Thresh2, "thresh2", sf.Thresh2, "Max PHA difference accepted for scale 2")
	fs.IntVar(&sf.Thresh3, "thresh3", sf.Thresh3, "Max PHA difference accepted for scale 3")
	fs.Float64Var(&sf.Pha1to2, "pha12", sf.Pha1to2, "PHA where scale 1 switches to 2")
	fs.Float64Var(&sf.Pha2to3, "pha23", sf.Pha2to3, "PHA where scale 2 switches to 3")
	fs.Float64Var(&sf.Width1, "width1", sf.Width1, "Half width of the ambiguous band around pha12")
	fs.Float64Var(&sf.Width2, "width2", sf.Width2, "Half width of the ambiguous band around pha23")
}

func newCorrector(config evt0.Configuration) evt0.Corrector {
	return evt0.ScaleFactorCorrector{Params: config.ScaleFactor}
}

func main() {
	os.Exit(evt0.Main(tool, os.Args[1:], os.Stdout, os.Stderr))
}
