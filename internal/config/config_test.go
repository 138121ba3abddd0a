package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("audioprobe", pflag.ContinueOnError)
	RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		t.Fatalf("Parse(%v) failed: %v", args, err)
	}
	return fs
}

func envOf(vars map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

func discard() *slog.Logger { return slog.New(slog.DiscardHandler) }

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audioprobe.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestDefaults(t *testing.T) {
	cfg, err := Load(newFlags(t), envOf(nil), discard())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg != Default() {
		t.Errorf("Load() = %+v, want %+v", cfg, Default())
	}
	if cfg.Log || cfg.FormatTest || cfg.LoopbackTest {
		t.Error("phases should be disabled by default")
	}
	if cfg.Duration != 5*time.Second || cfg.BlockFrames != 4000 || cfg.SliceLen != 30 {
		t.Errorf("unexpected loopback defaults %+v", cfg)
	}
}

func TestEnvFlagsAreIndependent(t *testing.T) {
	tests := []struct {
		env                           string
		log, formatTest, loopbackTest bool
	}{
		{EnvLog, true, false, false},
		{EnvFormatTest, false, true, false},
		{EnvLoopbackTest, false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			// Presence enables the flag whatever the value.
			cfg, err := Load(newFlags(t), envOf(map[string]string{tt.env: ""}), discard())
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if cfg.Log != tt.log || cfg.FormatTest != tt.formatTest || cfg.LoopbackTest != tt.loopbackTest {
				t.Errorf("%s set: log=%v format=%v loopback=%v", tt.env, cfg.Log, cfg.FormatTest, cfg.LoopbackTest)
			}
		})
	}
}

func TestPrecedence(t *testing.T) {
	path := writeConfig(t, `
backend = "malgo"
log = false

[loopback]
duration = "2s"
block_frames = 800
format = "System"
`)

	flags := newFlags(t, "--config", path, "--duration", "3s", "--format-test=false")
	env := envOf(map[string]string{EnvLog: "1", EnvFormatTest: "1"})

	cfg, err := Load(flags, env, discard())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Backend != BackendMalgo {
		t.Errorf("Backend = %q, want file value %q", cfg.Backend, BackendMalgo)
	}
	if cfg.BlockFrames != 800 {
		t.Errorf("BlockFrames = %d, want file value 800", cfg.BlockFrames)
	}
	if !cfg.Log {
		t.Error("environment should override the file")
	}
	if cfg.Duration != 3*time.Second {
		t.Errorf("Duration = %v, want flag value 3s", cfg.Duration)
	}
	if cfg.FormatTest {
		t.Error("explicit flag should override the environment")
	}
	if cfg.LoopbackFormat != "system" || cfg.LoopbackPreset().SampleSizeBits != 16 {
		t.Errorf("LoopbackFormat = %q", cfg.LoopbackFormat)
	}
	if cfg.SliceLen != 30 {
		t.Errorf("SliceLen = %d, want default 30", cfg.SliceLen)
	}
}

func TestBadConfigFileIsIgnored(t *testing.T) {
	tests := []struct {
		name    string
		content string
		warn    bool
	}{
		{"malformed", "backend = [", true},
		{"bad duration", "[loopback]\nduration = \"soon\"", true},
		{"missing", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "missing.toml")
			if tt.content != "" {
				path = writeConfig(t, tt.content)
			}

			var buf bytes.Buffer
			log := slog.New(slog.NewTextHandler(&buf, nil))
			cfg, err := Load(newFlags(t, "--config", path), envOf(nil), log)
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if cfg != Default() {
				t.Errorf("config should fall back to defaults, got %+v", cfg)
			}
			if got := strings.Contains(buf.String(), "ignoring config file"); got != tt.warn {
				t.Errorf("warning logged = %v, want %v: %s", got, tt.warn, buf.String())
			}
		})
	}
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"zero duration", []string{"--duration", "0s"}, "Duration"},
		{"negative poll", []string{"--poll-interval=-1s"}, "PollInterval"},
		{"unknown backend", []string{"--backend", "alsa"}, "Backend"},
		{"unknown log format", []string{"--log-format", "xml"}, "LogFormat"},
		{"unknown preset", []string{"--loopback-format", "cd"}, "LoopbackFormat"},
		{"preset names listed", []string{"--loopback-format", "cd"}, "system medium telephony"},
		{"zero block", []string{"--block-frames", "0"}, "BlockFrames"},
		{"negative slice", []string{"--slice-len=-3"}, "SliceLen"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(newFlags(t, tt.args...), envOf(nil), discard())
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not name %s", err, tt.want)
			}
		})
	}
}
