package evt0

import (
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	sqlx "github.com/jmoiron/sqlx" //make alias name the package to sqlx
)

func ConnectToDatabase(user string, pass string, host string, dbname string) (*sqlx.DB, error) {
	port := "3306"
	dbURI := fmt.Sprintf("%s:%s@(%s:%s)/%s?parseTime=true", user, pass, host, port, dbname)
	db, err := sqlx.Connect("mysql", dbURI)
	return db, err
}

type RingingCoefficientsEntry struct {
	Axis string  `db:"Axis"`
	A    float64 `db:"A"`
	B    float64 `db:"B"`
	C    float64 `db:"C"`
	D    float64 `db:"D"`
	E    float64 `db:"E"`
	F    float64 `db:"F"`
	G    float64 `db:"G"`
	O    float64 `db:"O"`
}

type ScaleFactorEntry struct {
	Gain    float64 `db:"Gain"`
	Thresh1 int     `db:"Thresh1"`
	Thresh2 int     `db:"Thresh2"`
	Thresh3 int     `db:"Thresh3"`
	Pha1to2 float64 `db:"Pha1to2"`
	Pha2to3 float64 `db:"Pha2to3"`
	Width1  float64 `db:"Width1"`
	Width2  float64 `db:"Width2"`
}

// LoadCalibration overrides the correction parameters of config with the
// calibration rows valid for the observation. Missing rows keep the
// current values.
func LoadCalibration(db *sqlx.DB, obsID int, config *Configuration) error {
	ringing, err := getRingingFromDB(db, obsID, config.Verbosity)
	if err != nil {
		errMessage := fmt.Errorf("error getting ringing coefficients from database: %w", err)
		logger.Error(errMessage.Error())
		return errMessage
	}
	if err := applyRinging(&config.Ringing, ringing); err != nil {
		return err
	}

	scaleFactor, err := getScaleFactorFromDB(db, obsID, config.Verbosity)
	if err != nil {
		errMessage := fmt.Errorf("error getting scale factor parameters from database: %w", err)
		logger.Error(errMessage.Error())
		return errMessage
	}
	if scaleFactor != nil {
		applyScaleFactor(&config.ScaleFactor, *scaleFactor)
	}
	return nil
}

func getRingingFromDB(db *sqlx.DB, obsID int, verbosity int) ([]RingingCoefficientsEntry, error) {
	query := "SELECT Axis, A, B, C, D, E, F, G, O FROM RingingCoefficients WHERE MinObsID <= %d and MaxObsID >= %d"
	query = fmt.Sprintf(query, obsID, obsID)
	if verbosity > 0 {
		logger.Info("Reading ringing coefficients from database", "database")
	}
	if verbosity > 2 {
		message := fmt.Sprintf("Query: %s", query)
		logger.Info(message, "database")
	}

	rows, err := db.Queryx(query)
	if err != nil {
		errMessage := fmt.Errorf("error querying database: %w", err)
		return nil, errMessage
	}
	defer rows.Close()

	var entries []RingingCoefficientsEntry
	for rows.Next() {
		result := RingingCoefficientsEntry{}
		err := rows.StructScan(&result)
		if err != nil {
			errMessage := fmt.Errorf("error scanning DB row: %w", err)
			return nil, errMessage
		}
		entries = append(entries, result)
	}
	return entries, rows.Err()
}

// getScaleFactorFromDB returns nil when no row covers the observation.
func getScaleFactorFromDB(db *sqlx.DB, obsID int, verbosity int) (*ScaleFactorEntry, error) {
	query := "SELECT Gain, Thresh1, Thresh2, Thresh3, Pha1to2, Pha2to3, Width1, Width2 FROM ScaleFactorParams WHERE MinObsID <= %d and MaxObsID >= %d"
	query = fmt.Sprintf(query, obsID, obsID)
	if verbosity > 0 {
		logger.Info("Reading scale factor parameters from database", "database")
	}
	if verbosity > 2 {
		message := fmt.Sprintf("Query: %s", query)
		logger.Info(message, "database")
	}

	rows, err := db.Queryx(query)
	if err != nil {
		errMessage := fmt.Errorf("error querying database: %w", err)
		return nil, errMessage
	}
	defer rows.Close()

	var entry *ScaleFactorEntry
	for rows.Next() {
		result := ScaleFactorEntry{}
		err := rows.StructScan(&result)
		if err != nil {
			errMessage := fmt.Errorf("error scanning DB row: %w", err)
			return nil, errMessage
		}
		// the last matching row wins
		entry = &result
	}
	return entry, rows.Err()
}

func applyRinging(params *RingingParams, entries []RingingCoefficientsEntry) error {
	for _, entry := range entries {
		coefficients := AxisCoefficients{
			A: entry.A, B: entry.B, C: entry.C, D: entry.D,
			E: entry.E, F: entry.F, G: entry.G, O: entry.O,
		}
		switch strings.ToUpper(strings.TrimSpace(entry.Axis)) {
		case "U":
			params.U = coefficients
		case "V":
			params.V = coefficients
		default:
			return fmt.Errorf("unknown axis %q in ringing coefficients", entry.Axis)
		}
	}
	return nil
}

func applyScaleFactor(params *ScaleFactorParams, entry ScaleFactorEntry) {
	params.Gain = entry.Gain
	params.Thresh1 = entry.Thresh1
	params.Thresh2 = entry.Thresh2
	params.Thresh3 = entry.Thresh3
	params.Pha1to2 = entry.Pha1to2
	params.Pha2to3 = entry.Pha2to3
	params.Width1 = entry.Width1
	params.Width2 = entry.Width2
}
