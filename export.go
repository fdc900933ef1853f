package ascent

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/soniakeys/meeus/v3/julian"
)

// ExportConfig configures the exporting of a sequence of reports.
type ExportConfig struct {
	Filename  string
	OutputDir string
	AsCSV     bool
	Timestamp bool // appends the creation time to the file name
}

// IsUseless returns whether this config doesn't actually do anything.
func (c ExportConfig) IsUseless() bool {
	return !c.AsCSV || c.Filename == ""
}

// CreateExportFile returns the CSV file for the configuration, which the caller must close.
func CreateExportFile(conf ExportConfig) (*os.File, error) {
	filename := conf.Filename
	if conf.Timestamp {
		t := time.Now()
		filename = fmt.Sprintf("%s-%d-%02d-%02dT%02d.%02d.%02d", filename, t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second())
	}
	f, err := os.Create(filepath.Join(conf.OutputDir, "ascent-"+filename+".csv"))
	if err != nil {
		return nil, fmt.Errorf("creating export: %w", err)
	}
	return f, nil
}

// StreamReports writes every report received on the channel as a CSV record, until the
// channel is closed. The first error stops the writing, but the channel is still drained.
func StreamReports(w io.Writer, reports <-chan AscentReport) (err error) {
	var first, prev *AscentReport
	write := func(format string, args ...interface{}) {
		if err == nil {
			_, err = fmt.Fprintf(w, format, args...)
		}
	}
	for report := range reports {
		if first == nil {
			first = &report
			write(`# Creation date (UTC): %s
# Records are the ascent report of each sample. Altitudes in m, speeds in m/s, angles in degrees.
#   Replay start (UTC): %s
time,jd,altitude,apA,peA,speed,fpa,speedForAp,dvToAp,speedAtAp,desiredSpeedAtAp,dvToRaisePe,totalDv,elapsed`,
				time.Now().UTC(), report.Snapshot.Epoch.UTC())
		}
		prev = &report
		s := report.Snapshot
		write("\n%s,%.6f,%.3f,%.3f,%.3f,%.3f,%.3f,%.3f,%.3f,%.3f,%.3f,%.3f,%.3f,%.3f",
			s.Epoch.UTC().Format("2006-01-02 15:04:05"), julian.TimeToJD(s.Epoch), s.Altitude, s.ApA, s.PeA, s.Speed,
			s.FlightPathAngle()/deg2rad, report.SpeedForAp, report.ΔvToAp, report.SpeedAtDesiredApA,
			report.DesiredSpeedAtDesiredApA, report.ΔvToRaisePe, report.TotalΔv, s.Epoch.Sub(first.Snapshot.Epoch).Seconds())
	}
	if prev != nil {
		write("\n# Replay end (UTC): %s\n", prev.Snapshot.Epoch.UTC())
	}
	return err
}
