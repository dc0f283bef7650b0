package evt0

import (
	"bytes"
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTool = Tool{
	Name:  "fixampsf",
	Usage: "test tool",
	BindFlags: func(fs *flag.FlagSet, config *Configuration) {
		fs.Float64Var(&config.ScaleFactor.Gain, "gain", config.ScaleFactor.Gain, "gain")
		fs.IntVar(&config.ScaleFactor.Thresh1, "thresh1", config.ScaleFactor.Thresh1, "thresh1")
	},
	NewCorrector: func(config Configuration) Corrector {
		return ScaleFactorCorrector{Params: config.ScaleFactor}
	},
}

func TestParseConfigurationFlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	content := `{"file_in": "a.fits", "file_out": "b.fits", "scale_factor": {"gain": 80, "thresh1": 5}}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	var stderr bytes.Buffer
	config, configFile, err := testTool.ParseConfiguration([]string{"-config", path, "-gain", "70", "in.fits", "out.fits"}, &stderr)
	require.NoError(t, err)
	assert.Equal(t, path, configFile)
	assert.Equal(t, 70.0, config.ScaleFactor.Gain)
	// not given on the command line, the file value stays
	assert.Equal(t, 5, config.ScaleFactor.Thresh1)
	assert.Equal(t, "in.fits", config.FileIn)
	assert.Equal(t, "out.fits", config.FileOut)
}

func TestParseConfigurationErrors(t *testing.T) {
	var stderr bytes.Buffer
	_, _, err := testTool.ParseConfiguration([]string{"-gain", "many"}, &stderr)
	assert.Error(t, err)

	_, _, err = testTool.ParseConfiguration([]string{"only-one.fits"}, &stderr)
	assert.Error(t, err)

	_, _, err = testTool.ParseConfiguration([]string{"-config", "/nonexistent/config.json", "a", "b"}, &stderr)
	assert.Error(t, err)

	_, _, err = testTool.ParseConfiguration([]string{"-h"}, &stderr)
	assert.ErrorIs(t, err, flag.ErrHelp)
	assert.Contains(t, stderr.String(), "Usage: fixampsf")
}

func TestMainExitCodes(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "evt1.fits")
	out := filepath.Join(dir, "evt1_fixed.fits")
	writeFixture(t, in, fixtureEvents(), fixtureOptions{})
	defer SetLogger(nil)

	var stdout, stderr bytes.Buffer
	assert.Equal(t, ExitUsage, Main(testTool, []string{"-gain", "0", in, out}, &stdout, &stderr))
	_, err := os.Stat(out)
	assert.ErrorIs(t, err, os.ErrNotExist, "configuration errors stop before any I/O")
	assert.Contains(t, stderr.String(), "scale_factor.gain")

	stderr.Reset()
	missing := filepath.Join(dir, "missing.fits")
	assert.Equal(t, ExitFailure, Main(testTool, []string{missing, out}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "missing.fits")

	stderr.Reset()
	assert.Equal(t, ExitOK, Main(testTool, []string{"-v", "1", "-window", "2", in, out}, &stdout, &stderr))
	assert.Empty(t, stderr.String())
	assert.Contains(t, stdout.String(), "rows changed")

	rows := readFixture(t, out)
	require.Len(t, rows, 5)
	assert.Equal(t, uint8(1), rows[0].AmpSF)
	assert.Equal(t, uint8(3), rows[1].AmpSF)
}
