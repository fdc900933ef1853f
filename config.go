package ascent

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/soniakeys/meeus/v3/julian"
	"github.com/spf13/viper"
)

// ConfigEnv is the environment variable holding the directory of conf.toml.
const ConfigEnv = "ASCENT_CONFIG"

// Telemetry source kinds.
const (
	SourceReplay    = "replay"
	SourceWebsocket = "websocket"
	SourceStatic    = "static"
)

// ErrUnknownSource is returned when the telemetry source kind is not supported.
var ErrUnknownSource = errors.New("unknown telemetry source")

// ErrInvalidToggle is returned when the overlay toggle could never be pressed, or collides
// with the close and quit keys.
var ErrInvalidToggle = errors.New("invalid toggle key")

// reservedKeys close the overlay or quit.
var reservedKeys = map[string]bool{"x": true, "q": true, "ctrl+c": true}

// Config is the overlay configuration.
type Config struct {
	Body         CelestialObject
	TargetFactor float64 // target apsides over atmosphere depth
	Display      DisplayConfig
	Telemetry    TelemetryConfig
	Metrics      string // listen address of the metrics endpoint, disabled if empty
	LogLevel     string
	LogPath      string // stdout if empty
	// Snapshot is read from the optional snapshot section, used by the static source.
	Snapshot    Snapshot
	HasSnapshot bool
}

// DisplayConfig defines how the overlay is toggled and refreshed.
type DisplayConfig struct {
	Key      string        // toggles the overlay
	Modifier string        // must be held with Key, may be empty
	Refresh  time.Duration // redraw period
}

// TelemetryConfig defines where the snapshots come from.
type TelemetryConfig struct {
	Source string  // one of replay, websocket or static
	Path   string  // replay CSV file
	URL    string  // websocket endpoint
	Rate   float64 // maximum samples per second, unlimited if zero
}

// Toggle returns the key combination as reported by the terminal, e.g. "alt+j".
func (d DisplayConfig) Toggle() string {
	if d.Modifier == "" {
		return d.Key
	}
	return d.Modifier + "+" + d.Key
}

// validate checks that the terminal can report the toggle. Shifted letters are reported
// as the upper case rune, so shift is not a modifier.
func (d DisplayConfig) validate() error {
	if d.Key == "" {
		return fmt.Errorf("%w: display.key cannot be empty", ErrInvalidToggle)
	}
	switch d.Modifier {
	case "", "alt", "ctrl":
	default:
		return fmt.Errorf("%w: modifier '%s' is not one of alt or ctrl", ErrInvalidToggle, d.Modifier)
	}
	if reservedKeys[d.Toggle()] {
		return fmt.Errorf("%w: %s already closes the overlay or quits", ErrInvalidToggle, d.Toggle())
	}
	return nil
}

// Target returns the altitude targeted for both apsides.
func (c Config) Target() float64 {
	return c.Body.AtmosphereDepth * c.TargetFactor
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("general.body", "kerbin")
	v.SetDefault("general.target_factor", TargetFactor)
	v.SetDefault("display.key", "j")
	v.SetDefault("display.modifier", "alt")
	v.SetDefault("display.refresh", 250*time.Millisecond)
	v.SetDefault("telemetry.source", SourceStatic)
	v.SetDefault("telemetry.rate", 0)
	v.SetDefault("log.level", "info")
}

// LoadConfig reads conf.toml from the directory named by ASCENT_CONFIG (or the working
// directory), after loading a .env file if there is one. ASCENT_* variables override
// the file, e.g. ASCENT_GENERAL_BODY=duna.
func LoadConfig() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("loading .env: %w", err)
	}
	confPath := os.Getenv(ConfigEnv)
	if confPath == "" {
		confPath = "."
	}
	v := viper.New()
	v.SetConfigName("conf")
	v.SetConfigType("toml")
	v.AddConfigPath(confPath)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("%s/conf.toml: %w", confPath, err)
		}
		// Defaults and environment only.
	}
	return ConfigFromViper(v)
}

// ConfigFromViper builds the configuration from an already loaded viper instance.
func ConfigFromViper(v *viper.Viper) (Config, error) {
	setDefaults(v)
	v.SetEnvPrefix("ascent")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	body, err := bodyFromViper(v, v.GetString("general.body"))
	if err != nil {
		return Config{}, err
	}
	conf := Config{
		Body:         body,
		TargetFactor: v.GetFloat64("general.target_factor"),
		Display: DisplayConfig{
			Key:      strings.ToLower(v.GetString("display.key")),
			Modifier: strings.ToLower(v.GetString("display.modifier")),
			Refresh:  v.GetDuration("display.refresh"),
		},
		Telemetry: TelemetryConfig{
			Source: strings.ToLower(v.GetString("telemetry.source")),
			Path:   v.GetString("telemetry.path"),
			URL:    v.GetString("telemetry.url"),
			Rate:   v.GetFloat64("telemetry.rate"),
		},
		Metrics:  v.GetString("metrics.address"),
		LogLevel: v.GetString("log.level"),
		LogPath:  v.GetString("log.path"),
	}
	if conf.Snapshot, conf.HasSnapshot, err = snapshotFromViper(v, body); err != nil {
		return Config{}, err
	}
	if conf.TargetFactor <= 0 {
		return Config{}, fmt.Errorf("general.target_factor must be positive, got %f", conf.TargetFactor)
	}
	if err := conf.Display.validate(); err != nil {
		return Config{}, err
	}
	if conf.Display.Refresh <= 0 {
		return Config{}, fmt.Errorf("display.refresh must be positive, got %s", conf.Display.Refresh)
	}
	switch conf.Telemetry.Source {
	case SourceReplay:
		if conf.Telemetry.Path == "" {
			return Config{}, errors.New("telemetry.path is required by the replay source")
		}
	case SourceWebsocket:
		if conf.Telemetry.URL == "" {
			return Config{}, errors.New("telemetry.url is required by the websocket source")
		}
	case SourceStatic:
	default:
		return Config{}, fmt.Errorf("%w: '%s'", ErrUnknownSource, conf.Telemetry.Source)
	}
	return conf, nil
}

// bodyFromViper returns the custom body defined under bodies.<name>, or the catalogue one.
func bodyFromViper(v *viper.Viper, name string) (CelestialObject, error) {
	key := "bodies." + strings.ToLower(name)
	if !v.IsSet(key) {
		return CelestialObjectFromString(name)
	}
	radius := v.GetFloat64(key + ".radius")
	gm := v.GetFloat64(key + ".gm")
	atmosphere := v.GetFloat64(key + ".atmosphere")
	if gm <= 0 || radius < 0 || atmosphere < 0 {
		return CelestialObject{}, fmt.Errorf("%s: invalid constants (radius=%f gm=%f atmosphere=%f)", key, radius, gm, atmosphere)
	}
	displayName := v.GetString(key + ".name")
	if displayName == "" {
		displayName = name
	}
	return NewCelestialObject(displayName, radius, gm, atmosphere), nil
}

// snapshotFromViper reads the snapshot section. The angular momentum may be replaced by
// the flight path angle in degrees, and the apsides are computed if missing.
func snapshotFromViper(v *viper.Viper, body CelestialObject) (Snapshot, bool, error) {
	if !v.IsSet("snapshot") {
		return Snapshot{}, false, nil
	}
	altitude := v.GetFloat64("snapshot.altitude")
	speed := v.GetFloat64("snapshot.speed")
	Φ := v.GetFloat64("snapshot.flight_path_angle") * deg2rad
	cosΦ := math.Cos(Φ)
	h := (altitude + body.Radius) * speed * cosΦ
	verticalSpeed := speed * math.Sin(Φ)
	if v.IsSet("snapshot.h") {
		h = v.GetFloat64("snapshot.h")
		cosΦ = h / (speed * (altitude + body.Radius))
		verticalSpeed = 0
	}
	apA, peA := ApsidesFromState(speed, altitude, cosΦ, body)
	if v.IsSet("snapshot.apa") {
		apA = v.GetFloat64("snapshot.apa")
	}
	if v.IsSet("snapshot.pea") {
		peA = v.GetFloat64("snapshot.pea")
	}
	s := NewSnapshot(altitude, apA, peA, speed, h, body, readJDEorTime(v, "snapshot.epoch"))
	s.VerticalSpeed = verticalSpeed
	if err := s.Validate(); err != nil {
		return Snapshot{}, false, fmt.Errorf("snapshot section: %w", err)
	}
	return s, true, nil
}

// readJDEorTime reads a date either as a Julian date or as a TOML time.
func readJDEorTime(v *viper.Viper, key string) (dt time.Time) {
	jde := v.GetFloat64(key)
	if jde == 0 {
		dt = v.GetTime(key)
	} else {
		dt = julian.JDToTime(jde)
	}
	return dt.UTC()
}
