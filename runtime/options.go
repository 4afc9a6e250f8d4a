package runtime

import (
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/time/rate"

	"github.com/wippyai/typeart-runtime/errors"
)

const (
	// DefaultTypeFile is loaded from the working directory when no type file
	// is configured.
	DefaultTypeFile = "types.yaml"

	// EnvTypeFile names the type file to load.
	EnvTypeFile = "TYPEART_TYPE_FILE"
	// EnvTypeFileDeprecated is read when EnvTypeFile is unset.
	EnvTypeFileDeprecated = "TA_TYPE_FILE"
)

// Options configures a Runtime.
type Options struct {
	// Logger receives runtime diagnostics. Nil means no logging.
	Logger *zap.Logger
	// TypeFile is the catalog loaded by LoadDefault. The environment
	// overrides it.
	TypeFile string
	// WarnRate limits misuse warnings per second. Counters are updated
	// regardless of the limit.
	WarnRate rate.Limit
	// WarnBurst is the number of warnings allowed before WarnRate applies.
	WarnBurst int
	// TraceEvents logs every table event at debug level.
	TraceEvents bool
	// Stats enables the diagnostic counters.
	Stats bool
}

// DefaultOptions returns options with statistics on and at most ten
// misuse warnings per minute after an initial burst of ten.
func DefaultOptions() Options {
	return Options{
		WarnRate:  rate.Every(6 * time.Second),
		WarnBurst: 10,
		Stats:     true,
	}
}

// Config is the on-disk runtime configuration.
//
//	type_file = "build/types.yaml"
//	log_level = "debug"
//	trace_events = false
//	stats = true
//
//	[warn]
//	per_minute = 10
//	burst = 10
type Config struct {
	TypeFile    string     `toml:"type_file"`
	LogLevel    string     `toml:"log_level"`
	Stats       *bool      `toml:"stats"`
	Warn        WarnConfig `toml:"warn"`
	TraceEvents bool       `toml:"trace_events"`
}

// WarnConfig limits misuse warnings. Zero values keep the defaults; a
// negative PerMinute disables the limit.
type WarnConfig struct {
	PerMinute float64 `toml:"per_minute"`
	Burst     int     `toml:"burst"`
}

// LoadConfig decodes a TOML configuration file. Unknown keys are rejected.
func LoadConfig(path string) (Config, error) {
	var c Config
	md, err := toml.DecodeFile(path, &c)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, errors.New(errors.PhaseConfig, errors.KindMissing).
				Path(path).
				Cause(err).
				Detail("config file not found").
				Build()
		}
		return Config{}, errors.Wrap(errors.PhaseConfig, errors.KindMalformed, err, "decode "+path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Config{}, errors.New(errors.PhaseConfig, errors.KindMalformed).
			Path(path).
			Value(undecoded[0].String()).
			Detail("unknown key %q", undecoded[0].String()).
			Build()
	}
	if c.LogLevel != "" {
		if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
			return Config{}, errors.Wrap(errors.PhaseConfig, errors.KindMalformed, err, "log_level")
		}
	}
	return c, nil
}

// Apply overlays the configuration onto o.
func (c Config) Apply(o *Options) {
	if c.TypeFile != "" {
		o.TypeFile = c.TypeFile
	}
	if c.Stats != nil {
		o.Stats = *c.Stats
	}
	if c.TraceEvents {
		o.TraceEvents = true
	}
	switch {
	case c.Warn.PerMinute < 0:
		o.WarnRate = rate.Inf
	case c.Warn.PerMinute > 0:
		o.WarnRate = rate.Limit(c.Warn.PerMinute / 60)
	}
	if c.Warn.Burst > 0 {
		o.WarnBurst = c.Warn.Burst
	}
}

// Level returns the configured log level, defaulting to info.
func (c Config) Level() zapcore.Level {
	lvl, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil || c.LogLevel == "" {
		return zapcore.InfoLevel
	}
	return lvl
}

// typeFile resolves the catalog path and reports whether it was set
// explicitly rather than defaulted.
func (o Options) typeFile(log *zap.Logger) (string, bool) {
	if path := os.Getenv(EnvTypeFile); path != "" {
		return path, true
	}
	if path := os.Getenv(EnvTypeFileDeprecated); path != "" {
		log.Warn("deprecated environment variable", zap.String("name", EnvTypeFileDeprecated), zap.String("use", EnvTypeFile))
		return path, true
	}
	if o.TypeFile != "" {
		return o.TypeFile, true
	}
	return DefaultTypeFile, false
}
