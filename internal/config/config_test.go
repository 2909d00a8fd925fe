package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/snapdeck/snapdeck/internal/compare"
	"github.com/snapdeck/snapdeck/internal/errors"
	"github.com/snapdeck/snapdeck/internal/frame"
)

func TestDefaultSession(t *testing.T) {
	cfg := Default()
	cfg.Capture.Region = "0,0,100,100"

	s, err := cfg.Session()
	if err != nil {
		t.Fatalf("Session: %v", err)
	}
	if s.Interval != 5*time.Second {
		t.Errorf("interval = %v, want 5s", s.Interval)
	}
	if s.Method != compare.MethodMSE {
		t.Errorf("method = %v, want mse", s.Method)
	}
	if s.Threshold != compare.DefaultThresholds[compare.MethodMSE] {
		t.Errorf("threshold = %v, want method default", s.Threshold)
	}
	if s.Region != (frame.Region{X1: 0, Y1: 0, X2: 100, Y2: 100}) {
		t.Errorf("region = %v", s.Region)
	}
}

func TestSessionValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad method", func(c *Config) { c.Capture.Method = "histogram" }},
		{"zero interval", func(c *Config) { c.Capture.Interval = 0 }},
		{"negative interval", func(c *Config) { c.Capture.Interval = -1 }},
		{"threshold too high", func(c *Config) { c.Capture.Threshold = 1.5 }},
		{"negative threshold", func(c *Config) { c.Capture.Threshold = -0.1 }},
		{"negative monitor", func(c *Config) { c.Capture.Monitor = -1 }},
		{"bad region", func(c *Config) { c.Capture.Region = "100,0,10,50" }},
		{"garbage region", func(c *Config) { c.Capture.Region = "a,b,c,d" }},
		{"bad sensitivity", func(c *Config) { c.Capture.Sensitivity = "extreme" }},
		{"multi-char stop key", func(c *Config) { c.Capture.StopKey = "esc" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Capture.Region = "0,0,100,100"
			tt.mutate(&cfg)

			_, err := cfg.Session()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !errors.IsCode(err, errors.CodeConfigInvalid) {
				t.Errorf("expected CONFIG_INVALID, got %v", err)
			}
		})
	}
}

func TestSensitivityPresets(t *testing.T) {
	base := compare.DefaultThresholds[compare.MethodMSE]
	tests := []struct {
		preset string
		want   float64
	}{
		{"low", base * 2.0},
		{"medium", base},
		{"high", base * 0.2},
	}
	for _, tt := range tests {
		cfg := Default()
		cfg.Capture.Sensitivity = tt.preset
		cfg.Capture.Threshold = 0.9 // preset must win

		s, err := cfg.Session()
		if err != nil {
			t.Fatalf("Session(%s): %v", tt.preset, err)
		}
		if s.Threshold != tt.want {
			t.Errorf("preset %s: threshold = %v, want %v", tt.preset, s.Threshold, tt.want)
		}
	}
}

func TestPerMethodDefaultThreshold(t *testing.T) {
	for _, method := range []compare.Method{compare.MethodSSIM, compare.MethodPHash, compare.MethodEmbed} {
		cfg := Default()
		cfg.Capture.Method = string(method)

		s, err := cfg.Session()
		if err != nil {
			t.Fatalf("Session(%s): %v", method, err)
		}
		if s.Threshold != compare.DefaultThresholds[method] {
			t.Errorf("%s: threshold = %v, want %v", method, s.Threshold, compare.DefaultThresholds[method])
		}
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[capture]
interval_seconds = 2.5
method = "ssim"
stop_key = "x"

[output]
path = "/tmp/deck"
formats = ["images", "manifest"]
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path, true)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Capture.Interval != 2.5 {
		t.Errorf("interval = %v, want 2.5", cfg.Capture.Interval)
	}
	if cfg.Capture.Method != "ssim" {
		t.Errorf("method = %q, want ssim", cfg.Capture.Method)
	}
	if cfg.Output.Path != "/tmp/deck" {
		t.Errorf("output path = %q", cfg.Output.Path)
	}
	if len(cfg.Output.Formats) != 2 {
		t.Errorf("formats = %v", cfg.Output.Formats)
	}
	// Untouched values keep defaults.
	if cfg.Embed.Addr != "localhost:8793" {
		t.Errorf("embed addr = %q", cfg.Embed.Addr)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.toml"), true); err == nil {
		t.Error("explicit missing file should fail")
	}
	if _, err := Load(filepath.Join(t.TempDir(), "nope.toml"), false); err != nil {
		t.Errorf("implicit missing file should use defaults, got %v", err)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SNAPDECK_METHOD", "phash")
	t.Setenv("SNAPDECK_INTERVAL", "1.5")
	t.Setenv("SNAPDECK_VERBOSE", "true")

	cfg, err := Load("", false)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Capture.Method != "phash" {
		t.Errorf("method = %q, want phash", cfg.Capture.Method)
	}
	if cfg.Capture.Interval != 1.5 {
		t.Errorf("interval = %v, want 1.5", cfg.Capture.Interval)
	}
	if !cfg.Verbose {
		t.Error("verbose should be true")
	}
}

func TestWriteSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.toml")
	if err := WriteSample(path); err != nil {
		t.Fatalf("WriteSample: %v", err)
	}

	cfg, err := Load(path, true)
	if err != nil {
		t.Fatalf("sample config should parse: %v", err)
	}
	if _, err := cfg.Session(); err != nil {
		t.Errorf("sample config should validate: %v", err)
	}
}
