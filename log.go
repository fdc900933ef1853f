package ascent

import (
	"fmt"
	"io"
	"os"
	"strings"

	kitlog "github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
)

// NewLogger returns a logfmt logger writing to w, filtered at the provided level
// (debug, info, warn, error or none).
func NewLogger(w io.Writer, lvl string) (kitlog.Logger, error) {
	var opt level.Option
	switch strings.ToLower(lvl) {
	case "debug":
		opt = level.AllowDebug()
	case "", "info":
		opt = level.AllowInfo()
	case "warn", "warning":
		opt = level.AllowWarn()
	case "error":
		opt = level.AllowError()
	case "none":
		opt = level.AllowNone()
	default:
		return nil, fmt.Errorf("unknown log level '%s'", lvl)
	}
	klog := kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(w))
	klog = kitlog.With(klog, "ts", kitlog.DefaultTimestampUTC)
	return level.NewFilter(klog, opt), nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// NewLoggerFromConfig returns the logger described by the configuration, and the file it
// writes to if any, which the caller must close.
func NewLoggerFromConfig(conf Config) (kitlog.Logger, io.Closer, error) {
	if conf.LogPath == "" {
		logger, err := NewLogger(os.Stdout, conf.LogLevel)
		return logger, nopCloser{}, err
	}
	f, err := os.OpenFile(conf.LogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}
	logger, err := NewLogger(f, conf.LogLevel)
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	return logger, f, nil
}
