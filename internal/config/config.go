// Package config handles application configuration and session validation.
// Precedence: CLI flags > environment > config file > defaults.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/snapdeck/snapdeck/internal/compare"
	"github.com/snapdeck/snapdeck/internal/errors"
	"github.com/snapdeck/snapdeck/internal/frame"
)

//go:embed sample_config.toml
var sampleConfig string

// Capture configures the sampling loop.
type Capture struct {
	Region      string  `toml:"region"` // "x1,y1,x2,y2"; empty = full monitor
	Interval    float64 `toml:"interval_seconds"`
	Threshold   float64 `toml:"threshold"` // 0 = method default
	Method      string  `toml:"method"`
	Sensitivity string  `toml:"sensitivity"` // low|medium|high, overrides threshold
	Monitor     int     `toml:"monitor"`
	StopKey     string  `toml:"stop_key"`
}

// Output configures export destinations.
type Output struct {
	Path    string   `toml:"path"`
	Formats []string `toml:"formats"`
}

// Embed configures the embedding sidecar used by the embed method.
type Embed struct {
	Addr string `toml:"addr"`
}

// Server configures the optional live status server.
type Server struct {
	Listen string `toml:"listen"` // empty = disabled
}

// Config is the full application configuration.
type Config struct {
	Capture Capture `toml:"capture"`
	Output  Output  `toml:"output"`
	Embed   Embed   `toml:"embed"`
	Server  Server  `toml:"server"`
	Verbose bool    `toml:"verbose"`
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		Capture: Capture{
			Interval: 5.0,
			Method:   string(compare.MethodMSE),
			StopKey:  "q",
		},
		Output: Output{
			Path:    "./presentation",
			Formats: []string{"images"},
		},
		Embed: Embed{Addr: "localhost:8793"},
	}
}

// Load builds the configuration from defaults, an optional TOML file, and
// environment overrides. A missing file at the default location is fine; an
// explicitly given path must exist.
func Load(path string, explicit bool) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := toml.Unmarshal(data, &cfg); err != nil {
				return Config{}, errors.Wrapf(err, errors.CodeConfigInvalid, "parse config file %s", path)
			}
		case os.IsNotExist(err) && !explicit:
			// fall through to defaults
		default:
			return Config{}, errors.Wrapf(err, errors.CodeConfigInvalid, "read config file %s", path)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// DefaultPath returns the conventional config file location.
func DefaultPath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return dir + "/snapdeck/config.toml"
	}
	return ""
}

// WriteSample writes the annotated sample config to path.
func WriteSample(path string) error {
	if err := os.MkdirAll(dirOf(path), 0o755); err != nil {
		return errors.Wrap(err, errors.CodeConfigInvalid, "create config directory")
	}
	return os.WriteFile(path, []byte(sampleConfig), 0o644)
}

func dirOf(path string) string {
	if i := strings.LastIndexByte(path, '/'); i > 0 {
		return path[:i]
	}
	return "."
}

func (c *Config) applyEnv() {
	c.Capture.Region = getEnv("SNAPDECK_REGION", c.Capture.Region)
	c.Capture.Interval = getEnvFloat("SNAPDECK_INTERVAL", c.Capture.Interval)
	c.Capture.Threshold = getEnvFloat("SNAPDECK_THRESHOLD", c.Capture.Threshold)
	c.Capture.Method = getEnv("SNAPDECK_METHOD", c.Capture.Method)
	c.Capture.Monitor = getEnvInt("SNAPDECK_MONITOR", c.Capture.Monitor)
	c.Capture.StopKey = getEnv("SNAPDECK_STOP_KEY", c.Capture.StopKey)
	c.Output.Path = getEnv("SNAPDECK_OUTPUT", c.Output.Path)
	c.Embed.Addr = getEnv("SNAPDECK_EMBED_ADDR", c.Embed.Addr)
	c.Server.Listen = getEnv("SNAPDECK_LISTEN", c.Server.Listen)
	c.Verbose = getEnvBool("SNAPDECK_VERBOSE", c.Verbose)
}

// Session is the immutable, validated per-session configuration.
type Session struct {
	Region    frame.Region
	Interval  time.Duration
	Threshold float64
	Method    compare.Method
	Monitor   int
	StopKey   string
	EmbedAddr string
}

// sensitivityFactors scale a method's default threshold. "low" only reacts
// to major changes, "high" catches subtle ones.
var sensitivityFactors = map[string]float64{
	"low":    2.0,
	"medium": 1.0,
	"high":   0.2,
}

// Session resolves and validates the capture settings into an immutable
// session config. All invariants are checked here, before any capture.
func (c Config) Session() (Session, error) {
	method := compare.Method(strings.ToLower(c.Capture.Method))
	if !method.Valid() {
		return Session{}, errors.Newf(errors.CodeConfigInvalid,
			"unknown method %q (use one of %v)", c.Capture.Method, compare.Methods())
	}

	threshold := c.Capture.Threshold
	if c.Capture.Sensitivity != "" {
		factor, ok := sensitivityFactors[strings.ToLower(c.Capture.Sensitivity)]
		if !ok {
			return Session{}, errors.Newf(errors.CodeConfigInvalid,
				"unknown sensitivity %q (use low, medium, or high)", c.Capture.Sensitivity)
		}
		threshold = compare.DefaultThresholds[method] * factor
	}
	if threshold == 0 {
		threshold = compare.DefaultThresholds[method]
	}
	if threshold <= 0 || threshold > 1 {
		return Session{}, errors.Newf(errors.CodeConfigInvalid,
			"threshold %v out of range (0,1]", threshold)
	}

	if c.Capture.Interval <= 0 {
		return Session{}, errors.Newf(errors.CodeConfigInvalid,
			"interval %v must be positive", c.Capture.Interval)
	}

	if c.Capture.Monitor < 0 {
		return Session{}, errors.Newf(errors.CodeConfigInvalid,
			"monitor index %d must be non-negative", c.Capture.Monitor)
	}

	var region frame.Region
	if c.Capture.Region != "" {
		var err error
		region, err = frame.ParseRegion(c.Capture.Region)
		if err != nil {
			return Session{}, err
		}
	}

	stopKey := c.Capture.StopKey
	if len(stopKey) != 1 {
		return Session{}, errors.Newf(errors.CodeConfigInvalid,
			"stop key %q must be a single character", stopKey)
	}

	return Session{
		Region:    region,
		Interval:  time.Duration(c.Capture.Interval * float64(time.Second)),
		Threshold: threshold,
		Method:    method,
		Monitor:   c.Capture.Monitor,
		StopKey:   stopKey,
		EmbedAddr: c.Embed.Addr,
	}, nil
}

// Validate checks the resolved session invariants. Used by callers that
// build a Session directly instead of going through Config.
func (s Session) Validate() error {
	// The zero region means the full monitor and skips bounds checks.
	if s.Region != (frame.Region{}) {
		if err := s.Region.Validate(); err != nil {
			return err
		}
	}
	if s.Interval <= 0 {
		return errors.Newf(errors.CodeConfigInvalid, "interval %v must be positive", s.Interval)
	}
	if s.Threshold <= 0 || s.Threshold > 1 {
		return errors.Newf(errors.CodeConfigInvalid, "threshold %v out of range (0,1]", s.Threshold)
	}
	if !s.Method.Valid() {
		return errors.Newf(errors.CodeConfigInvalid, "unknown method %q", s.Method)
	}
	if s.Monitor < 0 {
		return errors.Newf(errors.CodeConfigInvalid, "monitor index %d must be non-negative", s.Monitor)
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		return v == "true" || v == "1"
	}
	return def
}

// String renders the effective capture settings for logging.
func (s Session) String() string {
	return fmt.Sprintf("region=%s interval=%s threshold=%v method=%s monitor=%d",
		s.Region, s.Interval, s.Threshold, s.Method, s.Monitor)
}
