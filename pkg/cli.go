package evt0

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
)

const (
	ExitOK      = 0
	ExitFailure = 1
	ExitUsage   = 2
)

// Tool describes one correction command.
type Tool struct {
	Name  string
	Usage string
	// BindFlags registers the tool parameters. Flag defaults must be the
	// current config values so that only flags given on the command line
	// change anything.
	BindFlags    func(fs *flag.FlagSet, config *Configuration)
	NewCorrector func(config Configuration) Corrector
}

// newFlagSet binds the common and tool flags onto config.
func (t Tool) newFlagSet(config *Configuration, configFile *string, output io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(t.Name, flag.ContinueOnError)
	fs.SetOutput(output)
	fs.Usage = func() {
		fmt.Fprintf(output, "Usage: %s [flags] <infile> <outfile>\n%s\n", t.Name, t.Usage)
		fs.PrintDefaults()
	}

	fs.StringVar(configFile, "config", *configFile, "Configuration file path")
	fs.IntVar(&config.Verbosity, "v", config.Verbosity, "Verbosity level (0-3)")
	fs.Int64Var(&config.WindowRows, "window", config.WindowRows, "Rows per window, 0 uses the file preference")
	fs.StringVar(&config.ReportOut, "report", config.ReportOut, "HDF5 correction report path")
	fs.BoolVar(&config.Database.NoDB, "no-db", config.Database.NoDB, "Do not read calibration from the database")
	fs.IntVar(&config.Database.ObsID, "obsid", config.Database.ObsID, "Observation id for calibration lookup, 0 reads OBS_ID")
	fs.BoolVar(&config.StampChecksum, "stamp", config.StampChecksum, "Update DATE and checksums of the EVENTS header")
	if t.BindFlags != nil {
		t.BindFlags(fs, config)
	}
	return fs
}

// applyArgs parses args onto config. Positional arguments set the input and
// output paths.
func (t Tool) applyArgs(args []string, config *Configuration, configFile *string, output io.Writer) error {
	fs := t.newFlagSet(config, configFile, output)
	if err := fs.Parse(args); err != nil {
		return err
	}
	switch fs.NArg() {
	case 0:
	case 2:
		config.FileIn = fs.Arg(0)
		config.FileOut = fs.Arg(1)
	default:
		return fmt.Errorf("expected <infile> <outfile>, got %d arguments", fs.NArg())
	}
	return nil
}

// ParseConfiguration builds the effective configuration: defaults, then the
// JSON file given by -config, then the flags and positional arguments.
func (t Tool) ParseConfiguration(args []string, output io.Writer) (Configuration, string, error) {
	configFile := ""
	scratch := DefaultConfiguration()
	if err := t.applyArgs(args, &scratch, &configFile, output); err != nil {
		return scratch, configFile, err
	}

	config, err := LoadConfiguration(configFile)
	if err != nil {
		return config, configFile, fmt.Errorf("error reading configuration file: %w", err)
	}
	if err := t.applyArgs(args, &config, &configFile, io.Discard); err != nil {
		return config, configFile, err
	}
	return config, configFile, nil
}

// Main runs the tool and returns the process exit status.
func Main(t Tool, args []string, stdout io.Writer, stderr io.Writer) int {
	log := NewSlogLogger(stdout, stderr)
	SetLogger(log)

	config, configFile, err := t.ParseConfiguration(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return ExitOK
	}
	if err != nil {
		log.Error(err.Error())
		return ExitUsage
	}
	if err := ApplyEnvironment(&config); err != nil {
		log.Error(err.Error())
		return ExitUsage
	}
	if err := config.Validate(); err != nil {
		log.Error(err.Error())
		return ExitUsage
	}

	if config.Verbosity > 0 {
		if configFile != "" {
			log.Info(fmt.Sprintf("Reading configuration file: %s", configFile), "main")
		}
		PrintConfiguration(config, log)
	}

	if err := t.run(config, args); err != nil {
		log.Error(err.Error())
		return ExitFailure
	}
	return ExitOK
}

func (t Tool) run(config Configuration, args []string) (err error) {
	store, err := OpenFitsStore(config.FileIn, config.FileOut, StoreOptions{
		StampChecksum: config.StampChecksum,
		Verbosity:     config.Verbosity,
	})
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, store.Close())
	}()

	if !config.Database.NoDB {
		config, err = t.calibrate(config, args, store)
		if err != nil {
			return err
		}
	}

	corrector := t.NewCorrector(config)
	opts := RunOptions{
		WindowRows: config.WindowRows,
		Verbosity:  config.Verbosity,
	}

	var report *ReportWriter
	if config.ReportOut != "" {
		report, err = NewReportWriter(config.ReportOut, config.ReportCompression, config.Verbosity)
		if err != nil {
			return err
		}
		defer func() {
			err = errors.Join(err, report.Close())
		}()
		if err := report.WriteParameters(corrector.Parameters()); err != nil {
			return err
		}
		opts.Observers = append(opts.Observers, report)
	}

	summary, err := Run(store, corrector, opts)
	if err != nil {
		return err
	}
	if err := store.Finish(); err != nil {
		return err
	}
	if report != nil {
		if err := report.WriteRun(summary, config.FileIn, config.FileOut); err != nil {
			return err
		}
	}
	if config.Verbosity > 0 {
		message := fmt.Sprintf("%s run %s: %d rows, %d windows, %d rows changed",
			summary.Tool, summary.RunID, summary.Rows, summary.Windows, summary.Changed)
		logger.Info(message, "main")
	}
	return nil
}

// calibrate reads the observation parameters from the database and lays the
// command-line flags over them again.
func (t Tool) calibrate(config Configuration, args []string, store *FitsStore) (Configuration, error) {
	obsID := config.Database.ObsID
	if obsID == 0 {
		var err error
		obsID, err = store.ObsID()
		if err != nil {
			return config, err
		}
	}
	if config.Verbosity > 0 {
		logger.Info("Observation id: "+strconv.Itoa(obsID), "database")
	}

	dbConn, err := ConnectToDatabase(config.Database.User, config.Database.Passwd, config.Database.Host, config.Database.DBName)
	if err != nil {
		return config, fmt.Errorf("error connecting to database: %w", err)
	}
	defer dbConn.Close()

	if err := LoadCalibration(dbConn, obsID, &config); err != nil {
		return config, err
	}
	configFile := ""
	if err := t.applyArgs(args, &config, &configFile, io.Discard); err != nil {
		return config, err
	}
	if err := config.Validate(); err != nil {
		return config, fmt.Errorf("calibration for observation %d: %w", obsID, err)
	}
	if config.Verbosity > 1 {
		PrintConfiguration(config, logger)
	}
	return config, nil
}
