package evt0

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
)

// ScaleFactorParams configures the AMP_SF re-derivation.
type ScaleFactorParams struct {
	Gain    float64 `json:"gain" validate:"gt=0"`
	Thresh1 int     `json:"thresh1" validate:"gte=0"`
	Thresh2 int     `json:"thresh2" validate:"gte=0"`
	Thresh3 int     `json:"thresh3" validate:"gte=0"`
	Pha1to2 float64 `json:"pha_1to2" validate:"ltfield=Pha2to3"`
	Pha2to3 float64 `json:"pha_2to3"`
	Width1  float64 `json:"width1" validate:"gte=0"`
	Width2  float64 `json:"width2" validate:"gte=0"`
}

// AxisCoefficients configures the ringing model of one axis.
//
// A and B scale the sinusoid amplitude, C and D its period, E and O the
// outer/middle limit used by the default eligibility mode, F and G the phase
// shift.
type AxisCoefficients struct {
	A float64 `json:"a" validate:"ne=0"`
	B float64 `json:"b"`
	C float64 `json:"c"`
	D float64 `json:"d"`
	E float64 `json:"e"`
	F float64 `json:"f"`
	G float64 `json:"g"`
	O float64 `json:"o"`
}

// RingingParams configures the ringing correction of both axes.
type RingingParams struct {
	Mode EligibilityMode  `json:"mode" validate:"gte=0,lte=1"`
	U    AxisCoefficients `json:"uaxis"`
	V    AxisCoefficients `json:"vaxis"`
}

// Axis returns the coefficients of an axis.
func (r RingingParams) Axis(axis Axis) AxisCoefficients {
	if axis == AxisV {
		return r.V
	}
	return r.U
}

type DatabaseConfig struct {
	NoDB   bool   `json:"no_db"`
	Host   string `json:"host" envconfig:"DB_HOST"`
	User   string `json:"user" envconfig:"DB_USER"`
	Passwd string `json:"pass" envconfig:"DB_PASS"`
	DBName string `json:"dbname" envconfig:"DB_NAME"`
	// 0 means read OBS_ID from the input file
	ObsID int `json:"obs_id" validate:"gte=0"`
}

type Configuration struct {
	FileIn            string            `json:"file_in" validate:"required"`
	FileOut           string            `json:"file_out" validate:"required,nefield=FileIn"`
	Verbosity         int               `json:"verbosity" validate:"gte=0,lte=3"`
	WindowRows        int64             `json:"window_rows" validate:"gte=0"`
	StampChecksum     bool              `json:"stamp_checksum"`
	ReportOut         string            `json:"report_out"`
	ReportCompression int               `json:"report_compression" validate:"gte=0,lte=9"`
	ScaleFactor       ScaleFactorParams `json:"scale_factor"`
	Ringing           RingingParams     `json:"ringing"`
	Database          DatabaseConfig    `json:"database"`
}

func DefaultScaleFactorParams() ScaleFactorParams {
	return ScaleFactorParams{
		Gain:    74.0,
		Thresh1: 8,
		Thresh2: 16,
		Thresh3: 32,
		Pha1to2: 50.5,
		Pha2to3: 99.5,
		Width1:  2.0,
		Width2:  2.0,
	}
}

func DefaultRingingParams() RingingParams {
	return RingingParams{
		Mode: ModeDefault,
		U: AxisCoefficients{
			A: 20.0, B: -740.0, C: 0.241, D: 979.0,
			E: 0.245, F: 12.0, G: 2.0, O: -110.0,
		},
		V: AxisCoefficients{
			A: -35.3, B: -728.0, C: 0.278, D: 638.0,
			E: 0.0, F: 50.0, G: 0.7, O: 0.0,
		},
	}
}

func DefaultConfiguration() Configuration {
	var config Configuration

	config.Verbosity = 0
	config.WindowRows = 0
	config.StampChecksum = true
	config.ReportCompression = 4
	config.ScaleFactor = DefaultScaleFactorParams()
	config.Ringing = DefaultRingingParams()
	config.Database = DatabaseConfig{
		NoDB:   true,
		Host:   "localhost",
		User:   "hrcreader",
		Passwd: "",
		DBName: "HRC_CAL",
	}
	return config
}

// LoadConfiguration returns the defaults overridden by the JSON file, if any.
func LoadConfiguration(filename string) (Configuration, error) {
	config := DefaultConfiguration()
	if filename == "" {
		return config, nil
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return config, err
	}
	err = json.Unmarshal(data, &config)
	if err != nil {
		return config, fmt.Errorf("error parsing %s: %w", filename, err)
	}
	return config, nil
}

// ApplyEnvironment overrides database credentials from EVT0_DB_* variables.
func ApplyEnvironment(config *Configuration) error {
	if err := envconfig.Process("evt0", &config.Database); err != nil {
		return fmt.Errorf("error reading environment: %w", err)
	}
	return nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks every field; all failures are reported at once.
func (c Configuration) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
	}
	messages := make([]string, 0, len(fieldErrors))
	for _, fe := range fieldErrors {
		messages = append(messages, formatFieldError(fe))
	}
	return fmt.Errorf("%w: %s", ErrInvalidConfiguration, strings.Join(messages, "; "))
}

func formatFieldError(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "Configuration.")
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "gt":
		return fmt.Sprintf("%s must be greater than %s (got %v)", field, fe.Param(), fe.Value())
	case "gte":
		return fmt.Sprintf("%s must be at least %s (got %v)", field, fe.Param(), fe.Value())
	case "lte":
		return fmt.Sprintf("%s must be at most %s (got %v)", field, fe.Param(), fe.Value())
	case "ne":
		return fmt.Sprintf("%s must not be %s", field, fe.Param())
	case "ltfield":
		return fmt.Sprintf("%s must be lower than %s (got %v)", field, fe.Param(), fe.Value())
	case "nefield":
		return fmt.Sprintf("%s must differ from %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}

func PrintConfiguration(config Configuration, logger Logger) {
	logger.Info(fmt.Sprintf("File in: %s", config.FileIn), "config")
	logger.Info(fmt.Sprintf("File out: %s", config.FileOut), "config")
	logger.Info(fmt.Sprintf("Verbosity: %d", config.Verbosity), "config")
	logger.Info(fmt.Sprintf("Window rows: %d", config.WindowRows), "config")
	logger.Info(fmt.Sprintf("Stamp checksum: %t", config.StampChecksum), "config")
	logger.Info(fmt.Sprintf("Report out: %s", config.ReportOut), "config")
	logger.Info(fmt.Sprintf("No DB: %t", config.Database.NoDB), "config")
	logger.Info(fmt.Sprintf("Host: %s", config.Database.Host), "config")
	logger.Info(fmt.Sprintf("DB name: %s", config.Database.DBName), "config")

	sf := config.ScaleFactor
	logger.Info(fmt.Sprintf("Gain: %.3f", sf.Gain), "config")
	logger.Info(fmt.Sprintf("Thresholds: %d %d %d", sf.Thresh1, sf.Thresh2, sf.Thresh3), "config")
	logger.Info(fmt.Sprintf("PHA switch 1 to 2: %.2f +/- %.2f", sf.Pha1to2, sf.Width1), "config")
	logger.Info(fmt.Sprintf("PHA switch 2 to 3: %.2f +/- %.2f", sf.Pha2to3, sf.Width2), "config")

	logger.Info(fmt.Sprintf("Eligibility mode: %v", config.Ringing.Mode), "config")
	for _, axis := range []Axis{AxisU, AxisV} {
		c := config.Ringing.Axis(axis)
		logger.Info(fmt.Sprintf("%v-axis a=%.3f b=%.3f c=%.3f d=%.3f e=%.3f f=%.3f g=%.3f o=%.3f",
			axis, c.A, c.B, c.C, c.D, c.E, c.F, c.G, c.O), "config")
	}
}
