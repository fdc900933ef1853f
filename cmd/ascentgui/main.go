package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/ascentgui/ascent"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-kit/kit/log/level"
)

// Terminal overlay: reads the telemetry on every redraw and shows what Δv is left
// to reach orbit. Configured with conf.toml, see ascent.LoadConfig.

const defaultLogPath = "ascentgui.log"

var visible bool

func init() {
	flag.BoolVar(&visible, "visible", false, "show the overlay on start")
}

func main() {
	flag.Parse()
	conf, err := ascent.LoadConfig()
	if err != nil {
		log.Fatalf("configuration: %s", err)
	}
	// The terminal belongs to the overlay.
	if conf.LogPath == "" {
		conf.LogPath = defaultLogPath
	}
	logger, closer, err := ascent.NewLoggerFromConfig(conf)
	if err != nil {
		log.Fatalf("logger: %s", err)
	}
	defer closer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var metrics *ascent.Metrics
	if conf.Metrics != "" {
		metrics = ascent.NewMetrics()
		go func() {
			if err := metrics.Serve(ctx, conf.Metrics, logger); err != nil {
				level.Error(logger).Log("subsys", "metrics", "err", err)
			}
		}()
	}

	source, err := ascent.NewTelemetrySource(ctx, conf, logger)
	if err != nil {
		log.Fatalf("telemetry: %s", err)
	}
	defer source.Close()
	level.Info(logger).Log("subsys", "overlay", "body", conf.Body, "target", conf.Target(), "toggle", conf.Display.Toggle())

	m := newModel(ctx, conf, source, metrics, logger)
	m.visible = visible
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
