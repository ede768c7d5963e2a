// Package config holds the run configuration of mockupreel: defaults, CLI
// flags and environment overrides.
package config

import (
	"errors"
	"fmt"
	"image/color"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	DefaultPreset     = "showcase"
	DefaultLayout     = "iphone"
	DefaultQuality    = Quality1080p
	DefaultBackground = "#161717"
	DefaultOutputDir  = "output"
	DefaultLogLevel   = "info"
	DefaultListen     = "127.0.0.1:8790"
	DefaultFPS        = 60
	DefaultDPI        = 150

	EnvLogLevel  = "MOCKUPREEL_LOG_LEVEL"
	EnvOutputDir = "MOCKUPREEL_OUTPUT_DIR"
	EnvListen    = "MOCKUPREEL_LISTEN"

	DotEnvFile = ".env"
)

// Quality is an export tier.
type Quality string

const (
	Quality720p  Quality = "720p"
	Quality1080p Quality = "1080p"
	Quality4K    Quality = "4k"
)

func ParseQuality(s string) (Quality, error) {
	switch q := Quality(strings.ToLower(strings.TrimSpace(s))); q {
	case Quality720p, Quality1080p, Quality4K:
		return q, nil
	}
	return "", fmt.Errorf("unknown quality %q (want 720p, 1080p or 4k)", s)
}

// Bitrate returns the target video bitrate in bits per second. Unknown tiers
// get the 720p rate.
func (q Quality) Bitrate() int {
	switch q {
	case Quality4K:
		return 20_000_000
	case Quality1080p:
		return 8_000_000
	default:
		return 4_000_000
	}
}

// Dimensions returns the capture surface size for the tier.
func (q Quality) Dimensions() (int, int) {
	switch q {
	case Quality4K:
		return 3840, 2160
	case Quality1080p:
		return 1920, 1080
	default:
		return 1280, 720
	}
}

type Config struct {
	Inputs      []string
	ProjectPath string
	OutputDir   string
	Preset      string
	Layout      string
	Quality     Quality
	Background  string
	Gradient    bool
	FPS         int
	DPI         int
	Workers     int
	Transcode   bool
	Listen      string
	Serve       bool
	ShowStats   bool
	LogLevel    string
	QRText      string

	BuildVersion string
}

func Default() *Config {
	return &Config{
		OutputDir:  DefaultOutputDir,
		Preset:     DefaultPreset,
		Layout:     DefaultLayout,
		Quality:    DefaultQuality,
		Background: DefaultBackground,
		FPS:        DefaultFPS,
		DPI:        DefaultDPI,
		Workers:    4,
		Transcode:  true,
		Listen:     DefaultListen,
		LogLevel:   DefaultLogLevel,
	}
}

// ApplyEnv overrides fields from MOCKUPREEL_* environment variables.
func (c *Config) ApplyEnv() error {
	return c.applyEnv(os.Getenv)
}

// ApplyEnvFile is ApplyEnv with a dotenv file as fallback: variables set in
// the process environment win over the file. A missing file is ignored.
func (c *Config) ApplyEnvFile(path string) error {
	vals, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return c.ApplyEnv()
		}
		return fmt.Errorf("read %s: %w", path, err)
	}
	return c.applyEnv(lookupWithFallback(os.LookupEnv, vals))
}

func lookupWithFallback(lookup func(string) (string, bool), file map[string]string) func(string) string {
	return func(key string) string {
		if v, ok := lookup(key); ok {
			return v
		}
		return file[key]
	}
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if ll := getenv(EnvLogLevel); ll != "" {
		c.LogLevel = ll
	}
	if dir := getenv(EnvOutputDir); dir != "" {
		c.OutputDir = dir
	}
	if addr := getenv(EnvListen); addr != "" {
		if !strings.Contains(addr, ":") {
			port, err := strconv.Atoi(addr)
			if err != nil || port < 1 || port > 65535 {
				return fmt.Errorf("invalid %s: %q", EnvListen, addr)
			}
			addr = fmt.Sprintf("127.0.0.1:%d", port)
		}
		c.Listen = addr
	}
	return nil
}

// Validate checks the fields the CLI cannot recover from.
func (c *Config) Validate() error {
	if c.FPS <= 0 || c.FPS > 240 {
		return fmt.Errorf("fps must be in 1..240, got %d", c.FPS)
	}
	if _, err := ParseQuality(string(c.Quality)); err != nil {
		return err
	}
	if _, err := ParseHexColor(c.Background); err != nil {
		return fmt.Errorf("background: %w", err)
	}
	if !c.Serve && c.ProjectPath == "" && len(c.Inputs) == 0 {
		return fmt.Errorf("nothing to export: pass -project or -input")
	}
	return nil
}

// ParseHexColor parses #rrggbb or #rgb.
func ParseHexColor(s string) (color.RGBA, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return color.RGBA{}, fmt.Errorf("invalid colour %q", s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid colour %q: %w", s, err)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}
