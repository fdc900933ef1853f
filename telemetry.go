package ascent

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	kitlog "github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/gorilla/websocket"
	"github.com/soniakeys/meeus/v3/julian"
	"golang.org/x/time/rate"
)

// TelemetrySource provides the vehicle snapshots.
type TelemetrySource interface {
	// Next blocks until a new snapshot is available or the context is done.
	Next(ctx context.Context) (Snapshot, error)
	Close() error
}

// NewTelemetrySource returns the source described by the configuration, limited to the
// configured sample rate.
func NewTelemetrySource(ctx context.Context, conf Config, logger kitlog.Logger) (TelemetrySource, error) {
	var src TelemetrySource
	var err error
	switch conf.Telemetry.Source {
	case SourceStatic:
		if !conf.HasSnapshot {
			return nil, errors.New("the static source requires a snapshot section")
		}
		src = NewStaticSource(conf.Snapshot)
	case SourceReplay:
		src, err = OpenReplaySource(conf.Telemetry.Path, conf.Body)
	case SourceWebsocket:
		src, err = DialWebsocketSource(ctx, conf.Telemetry.URL, conf.Body, conf.Display.Refresh, logger)
	default:
		return nil, fmt.Errorf("%w: '%s'", ErrUnknownSource, conf.Telemetry.Source)
	}
	if err != nil {
		return nil, err
	}
	level.Info(logger).Log("subsys", "telemetry", "source", conf.Telemetry.Source, "rate", conf.Telemetry.Rate)
	return NewRateLimitedSource(src, conf.Telemetry.Rate), nil
}

// StaticSource always returns the same snapshot.
type StaticSource struct {
	snapshot Snapshot
}

// NewStaticSource returns a source which always provides s.
func NewStaticSource(s Snapshot) *StaticSource {
	return &StaticSource{s}
}

// Next implements the TelemetrySource interface.
func (s *StaticSource) Next(ctx context.Context) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}
	return s.snapshot, nil
}

// Close implements the TelemetrySource interface.
func (s *StaticSource) Close() error { return nil }

// replayColumns are the columns of a replay file, radius being optional.
var replayColumns = []string{"epoch", "altitude", "apa", "pea", "speed", "h", "radius"}

// ReplaySource plays back a recorded ascent. Once all samples are played, the last one is
// returned forever, like a vehicle which stopped reporting.
type ReplaySource struct {
	snapshots []Snapshot
	cur       int
	done      bool
	mu        sync.Mutex
}

// OpenReplaySource reads the replay CSV file at path.
func OpenReplaySource(path string, body CelestialObject) (*ReplaySource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening replay: %w", err)
	}
	defer f.Close()
	src, err := NewReplaySource(f, body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return src, nil
}

// NewReplaySource reads a replay CSV, whose header must name the columns
// epoch,altitude,apa,pea,speed,h and optionally radius, in any order.
// The epoch is either an RFC3339 time or a Julian date.
func NewReplaySource(r io.Reader, body CelestialObject) (*ReplaySource, error) {
	reader := csv.NewReader(r)
	reader.Comment = '#'
	reader.TrimLeadingSpace = true
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading replay header: %w", err)
	}
	cols := make(map[string]int)
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range replayColumns[:6] {
		if _, found := cols[name]; !found {
			return nil, fmt.Errorf("replay header lacks the %s column", name)
		}
	}

	src := &ReplaySource{}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading replay: %w", err)
		}
		line, _ := reader.FieldPos(0)
		s, err := snapshotFromRecord(record, cols, body)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		src.snapshots = append(src.snapshots, s)
	}
	if len(src.snapshots) == 0 {
		return nil, errors.New("replay has no samples")
	}
	return src, nil
}

func snapshotFromRecord(record []string, cols map[string]int, body CelestialObject) (Snapshot, error) {
	values := make(map[string]float64)
	for _, name := range replayColumns[1:] {
		idx, found := cols[name]
		if !found {
			continue
		}
		val, err := strconv.ParseFloat(strings.TrimSpace(record[idx]), 64)
		if err != nil {
			return Snapshot{}, fmt.Errorf("column %s: %w", name, err)
		}
		values[name] = val
	}
	epoch, err := parseEpoch(record[cols["epoch"]])
	if err != nil {
		return Snapshot{}, err
	}
	s := NewSnapshot(values["altitude"], values["apa"], values["pea"], values["speed"], values["h"], body, epoch)
	if radius, found := values["radius"]; found {
		s.Radius = radius
	}
	if err := s.Validate(); err != nil {
		return Snapshot{}, err
	}
	return s, nil
}

// parseEpoch parses either an RFC3339 time or a Julian date.
func parseEpoch(epoch string) (time.Time, error) {
	epoch = strings.TrimSpace(epoch)
	if jd, err := strconv.ParseFloat(epoch, 64); err == nil {
		return julian.JDToTime(jd).UTC(), nil
	}
	dt, err := time.Parse(time.RFC3339, epoch)
	if err != nil {
		return time.Time{}, fmt.Errorf("epoch '%s' is neither a Julian date nor RFC3339", epoch)
	}
	return dt.UTC(), nil
}

// Next implements the TelemetrySource interface.
func (s *ReplaySource) Next(ctx context.Context) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.snapshots[s.cur]
	if s.cur < len(s.snapshots)-1 {
		s.cur++
	} else {
		s.done = true
	}
	return snapshot, nil
}

// Done returns whether the last sample has been played.
func (s *ReplaySource) Done() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// Len returns the number of samples in the replay.
func (s *ReplaySource) Len() int {
	return len(s.snapshots)
}

// Close implements the TelemetrySource interface.
func (s *ReplaySource) Close() error { return nil }

// Keys of the telemetry streamed by the host websocket.
var websocketKeys = []string{"v.altitude", "o.ApA", "o.PeA", "v.orbitalVelocity", "o.h", "o.radius", "o.r", "o.v"}

// websocketFrame is one message of the host stream. The scalar fields may be missing if
// the state vectors are provided.
type websocketFrame struct {
	Altitude *float64  `json:"v.altitude"`
	ApA      *float64  `json:"o.ApA"`
	PeA      *float64  `json:"o.PeA"`
	Speed    *float64  `json:"v.orbitalVelocity"`
	H        *float64  `json:"o.h"`
	Radius   *float64  `json:"o.radius"`
	R        []float64 `json:"o.r"`
	V        []float64 `json:"o.v"`
}

func (f websocketFrame) snapshot(body CelestialObject, epoch time.Time) (Snapshot, error) {
	if len(f.R) == 3 && len(f.V) == 3 {
		return NewSnapshotFromRV(f.R, f.V, body, epoch), nil
	}
	for name, ptr := range map[string]*float64{"v.altitude": f.Altitude, "o.ApA": f.ApA, "o.PeA": f.PeA, "v.orbitalVelocity": f.Speed, "o.h": f.H} {
		if ptr == nil {
			return Snapshot{}, fmt.Errorf("%w: missing %s", ErrInvalidSnapshot, name)
		}
	}
	s := NewSnapshot(*f.Altitude, *f.ApA, *f.PeA, *f.Speed, *f.H, body, epoch)
	if f.Radius != nil {
		s.Radius = *f.Radius
	}
	return s, nil
}

// WebsocketSource reads the snapshots streamed by the host over a websocket.
type WebsocketSource struct {
	conn   *websocket.Conn
	body   CelestialObject
	logger kitlog.Logger
	wmu    sync.Mutex
}

// DialWebsocketSource connects to the host at url and subscribes to the telemetry,
// requesting a message every period.
func DialWebsocketSource(ctx context.Context, url string, body CelestialObject, period time.Duration, logger kitlog.Logger) (*WebsocketSource, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", url, err)
	}
	src := &WebsocketSource{conn: conn, body: body, logger: kitlog.With(logger, "subsys", "websocket", "url", url)}
	subscription := map[string]interface{}{"+": websocketKeys, "rate": period.Milliseconds()}
	if err := conn.WriteJSON(subscription); err != nil {
		conn.Close()
		return nil, fmt.Errorf("subscribing: %w", err)
	}
	level.Debug(src.logger).Log("status", "subscribed", "period", period)
	return src, nil
}

// Next implements the TelemetrySource interface. Invalid frames are returned as errors
// wrapping ErrInvalidSnapshot, the stream stays usable.
func (s *WebsocketSource) Next(ctx context.Context) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}
	// Unblock the read when the context is done.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			s.conn.SetReadDeadline(time.Now())
		case <-done:
		}
	}()

	var frame websocketFrame
	if err := s.conn.ReadJSON(&frame); err != nil {
		if ctx.Err() != nil {
			return Snapshot{}, ctx.Err()
		}
		return Snapshot{}, fmt.Errorf("reading telemetry: %w", err)
	}
	snapshot, err := frame.snapshot(s.body, time.Now().UTC())
	if err != nil {
		level.Warn(s.logger).Log("frame", "dropped", "err", err)
		return Snapshot{}, err
	}
	if err := snapshot.Validate(); err != nil {
		level.Warn(s.logger).Log("frame", "dropped", "err", err)
		return Snapshot{}, err
	}
	return snapshot, nil
}

// Close sends a close frame and closes the connection.
func (s *WebsocketSource) Close() error {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	if err := s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second)); err != nil {
		level.Debug(s.logger).Log("close", "failed", "err", err)
	}
	return s.conn.Close()
}

// rateLimitedSource waits on its limiter before reading the wrapped source.
type rateLimitedSource struct {
	TelemetrySource
	limiter *rate.Limiter
}

// NewRateLimitedSource returns a source reading src at most perSecond times per second.
// src is returned as is if perSecond is not positive.
func NewRateLimitedSource(src TelemetrySource, perSecond float64) TelemetrySource {
	if perSecond <= 0 {
		return src
	}
	return &rateLimitedSource{src, rate.NewLimiter(rate.Limit(perSecond), 1)}
}

// Next implements the TelemetrySource interface.
func (s *rateLimitedSource) Next(ctx context.Context) (Snapshot, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return Snapshot{}, err
	}
	return s.TelemetrySource.Next(ctx)
}
