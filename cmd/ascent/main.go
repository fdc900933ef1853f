package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/ascentgui/ascent"
	"github.com/go-kit/kit/log/level"
	"github.com/spf13/viper"
)

// Prints the ascent report of a scenario snapshot, or of every sample of a replay.

const defaultScenario = "~~unset~~"

var (
	scenario string
	replay   string
	export   string
	outDir   string
	stamped  bool
	target   float64
	verbose  bool
)

func init() {
	flag.StringVar(&scenario, "scenario", defaultScenario, "scenario TOML file (general, bodies and snapshot sections)")
	flag.StringVar(&replay, "replay", "", "replay CSV file, one report per sample")
	flag.StringVar(&export, "export", "", "name of the CSV export of the replay reports")
	flag.StringVar(&outDir, "outdir", ".", "directory of the CSV export")
	flag.BoolVar(&stamped, "stamped", false, "timestamp the CSV export file name")
	flag.Float64Var(&target, "target", 0, "target apsides altitude in meters (defaults to the body's)")
	flag.BoolVar(&verbose, "verbose", false, "log the configuration")
}

func main() {
	flag.Parse()
	if scenario == defaultScenario {
		log.Fatal("no scenario provided")
	}
	v := viper.New()
	v.SetConfigFile(scenario)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		log.Fatalf("%s: Error %s", scenario, err)
	}
	conf, err := ascent.ConfigFromViper(v)
	if err != nil {
		log.Fatalf("%s: %s", scenario, err)
	}
	logLevel := conf.LogLevel
	if verbose {
		logLevel = "debug"
	}
	logger, err := ascent.NewLogger(os.Stderr, logLevel)
	if err != nil {
		log.Fatalf("%s: %s", scenario, err)
	}
	if target <= 0 {
		target = conf.Target()
	}
	level.Debug(logger).Log("subsys", "conf", "body", conf.Body, "target", target)

	if replay != "" {
		src, err := ascent.OpenReplaySource(replay, conf.Body)
		if err != nil {
			log.Fatal(err)
		}
		exportConf := ascent.ExportConfig{Filename: export, OutputDir: outDir, AsCSV: export != "", Timestamp: stamped}
		var reports chan ascent.AscentReport
		var exported chan error
		if !exportConf.IsUseless() {
			f, err := ascent.CreateExportFile(exportConf)
			if err != nil {
				log.Fatal(err)
			}
			defer f.Close()
			reports = make(chan ascent.AscentReport, 10)
			exported = make(chan error)
			go func() {
				exported <- ascent.StreamReports(f, reports)
			}()
			level.Info(logger).Log("subsys", "export", "file", f.Name())
		}
		for !src.Done() {
			s, err := src.Next(context.Background())
			if err != nil {
				log.Fatal(err)
			}
			r := ascent.NewTargetedAscentReport(s, target)
			if !r.Finite() {
				level.Warn(logger).Log("epoch", s.Epoch, "report", "not finite")
			}
			fmt.Printf("%s\t%s\n", s.Epoch.Format("2006-01-02 15:04:05"), r)
			if reports != nil {
				reports <- r
			}
		}
		if reports != nil {
			close(reports)
			if err := <-exported; err != nil {
				log.Fatalf("export: %s", err)
			}
		}
		return
	}

	if !conf.HasSnapshot {
		log.Fatalf("%s: no snapshot section", scenario)
	}
	r := ascent.NewTargetedAscentReport(conf.Snapshot, target)
	level.Info(logger).Log("snapshot", conf.Snapshot, "epoch", conf.Snapshot.Epoch)
	for _, line := range r.Lines() {
		fmt.Println(line)
	}
}
