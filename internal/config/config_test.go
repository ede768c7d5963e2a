package config

import (
	"image/color"
	"os"
	"path/filepath"
	"testing"
)

func TestQualityBitrate(t *testing.T) {
	tests := []struct {
		q    Quality
		want int
	}{
		{Quality720p, 4_000_000},
		{Quality1080p, 8_000_000},
		{Quality4K, 20_000_000},
		{"", 4_000_000},
	}
	for _, tc := range tests {
		if got := tc.q.Bitrate(); got != tc.want {
			t.Errorf("Quality(%q).Bitrate() = %d, want %d", tc.q, got, tc.want)
		}
	}
}

func TestParseQuality(t *testing.T) {
	if q, err := ParseQuality(" 4K "); err != nil || q != Quality4K {
		t.Errorf("ParseQuality(4K) = %q, %v", q, err)
	}
	if _, err := ParseQuality("8k"); err == nil {
		t.Error("ParseQuality(8k) returned no error")
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvLogLevel:  "debug",
		EnvOutputDir: "/tmp/renders",
		EnvListen:    "9000",
	}
	cfg := Default()
	if err := cfg.applyEnv(func(k string) string { return env[k] }); err != nil {
		t.Fatalf("applyEnv() error = %v", err)
	}
	if cfg.LogLevel != "debug" || cfg.OutputDir != "/tmp/renders" || cfg.Listen != "127.0.0.1:9000" {
		t.Errorf("cfg = %+v", cfg)
	}

	env[EnvListen] = "nope"
	if err := Default().applyEnv(func(k string) string { return env[k] }); err == nil {
		t.Error("applyEnv() accepted an invalid listen port")
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() without inputs returned no error")
	}
	cfg.Inputs = []string{"a.png"}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
	cfg.Background = "#zzz"
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() accepted a bad background colour")
	}
}

func TestParseHexColor(t *testing.T) {
	c, err := ParseHexColor("#161717")
	if err != nil || c != (color.RGBA{0x16, 0x17, 0x17, 0xff}) {
		t.Errorf("ParseHexColor(#161717) = %v, %v", c, err)
	}
	c, err = ParseHexColor("fa0")
	if err != nil || c != (color.RGBA{0xff, 0xaa, 0x00, 0xff}) {
		t.Errorf("ParseHexColor(fa0) = %v, %v", c, err)
	}
}

func TestApplyEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	data := "MOCKUPREEL_OUTPUT_DIR=/srv/reels\nMOCKUPREEL_LOG_LEVEL=warn\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvLogLevel, "debug")

	cfg := Default()
	if err := cfg.ApplyEnvFile(path); err != nil {
		t.Fatalf("ApplyEnvFile() error = %v", err)
	}
	if cfg.OutputDir != "/srv/reels" {
		t.Errorf("OutputDir = %q, want value from file", cfg.OutputDir)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, process environment should win", cfg.LogLevel)
	}

	if err := Default().ApplyEnvFile(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Errorf("missing file: %v", err)
	}
}
