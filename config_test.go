package ascent

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gonum/floats"
	"github.com/spf13/viper"
)

func viperFromTOML(t *testing.T, conf string) *viper.Viper {
	t.Helper()
	v := viper.New()
	v.SetConfigType("toml")
	if err := v.ReadConfig(strings.NewReader(conf)); err != nil {
		t.Fatalf("invalid test configuration: %s", err)
	}
	return v
}

func TestConfigDefaults(t *testing.T) {
	conf, err := ConfigFromViper(viper.New())
	if err != nil {
		t.Fatal(err)
	}
	if !conf.Body.Equals(Kerbin) {
		t.Fatalf("default body is %s", conf.Body)
	}
	if !floats.EqualWithinAbs(conf.Target(), 77000, 1e-6) {
		t.Fatalf("default target %f", conf.Target())
	}
	if conf.Display.Toggle() != "alt+j" {
		t.Fatalf("default toggle %s", conf.Display.Toggle())
	}
	if conf.Display.Refresh != 250*time.Millisecond {
		t.Fatalf("default refresh %s", conf.Display.Refresh)
	}
	if conf.Telemetry.Source != SourceStatic || conf.Metrics != "" || conf.LogLevel != "info" {
		t.Fatalf("unexpected defaults %+v", conf)
	}
}

func TestConfigCustomBody(t *testing.T) {
	v := viperFromTOML(t, `
[general]
body = "rsskerbin"
target_factor = 1.2

[bodies.rsskerbin]
name = "Kerbin (rescaled)"
radius = 1500000
gm = 2.207e13
atmosphere = 85000

[display]
key = "K"
modifier = ""
refresh = "1s"

[telemetry]
source = "websocket"
url = "ws://localhost:8085/datalink"
rate = 4
`)
	conf, err := ConfigFromViper(v)
	if err != nil {
		t.Fatal(err)
	}
	if conf.Body.Name != "Kerbin (rescaled)" || conf.Body.Radius != 1500000 || conf.Body.GM() != 2.207e13 {
		t.Fatalf("custom body not read: %+v", conf.Body)
	}
	if !floats.EqualWithinAbs(conf.Target(), 102000, 1e-6) {
		t.Fatalf("target %f != 102000", conf.Target())
	}
	if conf.Display.Toggle() != "k" || conf.Display.Refresh != time.Second {
		t.Fatalf("display %+v", conf.Display)
	}
	if conf.Telemetry.Source != SourceWebsocket || conf.Telemetry.Rate != 4 {
		t.Fatalf("telemetry %+v", conf.Telemetry)
	}
}

func TestConfigErrors(t *testing.T) {
	for _, tc := range []struct {
		name, conf string
		target     error
	}{
		{"unknown body", "[general]\nbody = \"earth\"", ErrUnknownBody},
		{"unknown source", "[telemetry]\nsource = \"telepathy\"", ErrUnknownSource},
		{"replay without path", "[telemetry]\nsource = \"replay\"", nil},
		{"websocket without url", "[telemetry]\nsource = \"websocket\"", nil},
		{"bad factor", "[general]\ntarget_factor = -1", nil},
		{"bad body", "[general]\nbody = \"x\"\n[bodies.x]\nradius = 10\ngm = 0", nil},
		{"empty key", "[display]\nkey = \"\"", ErrInvalidToggle},
		{"shift modifier", "[display]\nmodifier = \"shift\"", ErrInvalidToggle},
		{"unknown modifier", "[display]\nmodifier = \"hyper\"", ErrInvalidToggle},
		{"quit key", "[display]\nkey = \"q\"\nmodifier = \"\"", ErrInvalidToggle},
		{"close key", "[display]\nkey = \"X\"\nmodifier = \"\"", ErrInvalidToggle},
		{"interrupt", "[display]\nkey = \"c\"\nmodifier = \"ctrl\"", ErrInvalidToggle},
	} {
		_, err := ConfigFromViper(viperFromTOML(t, tc.conf))
		if err == nil {
			t.Fatalf("%s: expected an error", tc.name)
		}
		if tc.target != nil && !errors.Is(err, tc.target) {
			t.Fatalf("%s: expected %s, got %s", tc.name, tc.target, err)
		}
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	conf := "[general]\nbody = \"duna\"\n[telemetry]\nsource = \"replay\"\npath = \"ascent.csv\"\n"
	if err := os.WriteFile(filepath.Join(dir, "conf.toml"), []byte(conf), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(ConfigEnv, dir)
	t.Setenv("ASCENT_LOG_LEVEL", "debug")
	loaded, err := LoadConfig()
	if err != nil {
		t.Fatal(err)
	}
	if !loaded.Body.Equals(Duna) {
		t.Fatalf("body %s instead of Duna", loaded.Body)
	}
	if loaded.Telemetry.Path != "ascent.csv" {
		t.Fatalf("path %s", loaded.Telemetry.Path)
	}
	if loaded.LogLevel != "debug" {
		t.Fatalf("environment did not override the log level: %s", loaded.LogLevel)
	}

	// Without any file, defaults apply.
	t.Setenv(ConfigEnv, t.TempDir())
	if loaded, err = LoadConfig(); err != nil || !loaded.Body.Equals(Kerbin) {
		t.Fatalf("defaults not applied: %+v %v", loaded, err)
	}
}

func TestConfigSnapshot(t *testing.T) {
	v := viperFromTOML(t, `
[snapshot]
altitude = 70000
speed = 2287.4
flight_path_angle = 0
epoch = 2461332.0
`)
	conf, err := ConfigFromViper(v)
	if err != nil {
		t.Fatal(err)
	}
	if !conf.HasSnapshot {
		t.Fatal("snapshot section ignored")
	}
	s := conf.Snapshot
	if !floats.EqualWithinAbs(s.ApA, 70000, 1e-3) || !floats.EqualWithinAbs(s.PeA, 60196.84893, 1e-3) {
		t.Fatalf("apsides not derived: %s", s)
	}
	if !floats.EqualWithinRel(s.H, 670000*2287.4, 1e-12) {
		t.Fatalf("h=%f", s.H)
	}
	if !s.Epoch.Equal(epoch) {
		t.Fatalf("epoch %s != %s", s.Epoch, epoch)
	}

	// Explicit apsides and a TOML date.
	v = viperFromTOML(t, `
[snapshot]
altitude = 70000
speed = 2287.4
h = 1532558000
apa = 70500
pea = -300000
epoch = 2026-10-18T12:00:00Z
`)
	if conf, err = ConfigFromViper(v); err != nil {
		t.Fatal(err)
	}
	if conf.Snapshot.ApA != 70500 || conf.Snapshot.PeA != -300000 || !conf.Snapshot.Epoch.Equal(epoch) {
		t.Fatalf("snapshot %s at %s", conf.Snapshot, conf.Snapshot.Epoch)
	}

	if _, err = ConfigFromViper(viperFromTOML(t, "[snapshot]\naltitude = 70000\nspeed = 0")); !errors.Is(err, ErrInvalidSnapshot) {
		t.Fatalf("expected an invalid snapshot, got %v", err)
	}
}
