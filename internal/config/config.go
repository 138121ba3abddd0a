// Package config builds the immutable run configuration from defaults, an
// optional TOML file, ZVA_* environment variables and CLI flags.
//
// Precedence: CLI flags explicitly set > environment > config file > defaults.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/pflag"

	"github.com/drgolem/go-audioprobe/format"
	"github.com/drgolem/go-audioprobe/loopback"
)

// Environment variables whose presence, with any value, enables a setting.
const (
	EnvLog          = "ZVA_LOG"
	EnvLoopbackTest = "ZVA_LOOPBACK_TEST"
	EnvFormatTest   = "ZVA_FORMAT_TEST"
)

const (
	BackendPortAudio = "portaudio"
	BackendMalgo     = "malgo"
)

// Config is the run configuration. It is built once by Load and passed by
// value.
type Config struct {
	Log          bool
	FormatTest   bool
	LoopbackTest bool
	Backend      string `validate:"oneof=portaudio malgo"`
	LogFormat    string `validate:"oneof=text json"`

	Duration       time.Duration `validate:"gt=0"`
	LoopbackFormat string        `validate:"preset"`
	BlockFrames    int           `validate:"gt=0"`
	SliceLen       int           `validate:"gt=0"`
	PollInterval   time.Duration `validate:"gte=0"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Backend:        BackendPortAudio,
		LogFormat:      "text",
		Duration:       loopback.DefaultDuration,
		LoopbackFormat: format.PresetTelephony,
		BlockFrames:    loopback.DefaultBlockFrames,
		SliceLen:       loopback.DefaultSliceLen,
	}
}

// LoopbackPreset returns the format the loopback test runs with.
func (c Config) LoopbackPreset() format.Format {
	f, err := format.Preset(c.LoopbackFormat)
	if err != nil {
		return format.Telephony()
	}
	return f
}

// LookupFunc reads an environment variable, like os.LookupEnv.
type LookupFunc func(key string) (string, bool)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// preset accepts the names format.Preset resolves.
	if err := v.RegisterValidation("preset", func(fl validator.FieldLevel) bool {
		return format.IsPreset(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return v
}

// RegisterFlags adds the configuration flags to flags.
func RegisterFlags(flags *pflag.FlagSet) {
	d := Default()
	flags.StringP("config", "c", "", "Path to TOML configuration file")
	flags.Bool("log", false, "Verbose diagnostic logging (env "+EnvLog+")")
	flags.Bool("format-test", false, "Probe every format on every mixer (env "+EnvFormatTest+")")
	flags.Bool("loopback-test", false, "Pipe captured audio back to playback on every mixer (env "+EnvLoopbackTest+")")
	flags.String("backend", d.Backend, "Audio backend (portaudio, malgo)")
	flags.String("log-format", d.LogFormat, "Logging format (text, json)")
	flags.Duration("duration", d.Duration, "Loopback test duration per mixer")
	flags.String("loopback-format", d.LoopbackFormat, "Loopback format preset (system, medium, telephony)")
	flags.Int("block-frames", d.BlockFrames, "Frames per loopback read")
	flags.Int("slice-len", d.SliceLen, "Leading bytes of each transferred block to print")
	flags.Duration("poll-interval", d.PollInterval, "Sleep after an empty capture read; 0 polls continuously")
}

// Load builds the configuration. A missing config file is ignored and an
// unreadable or malformed one is logged and ignored; the returned error is
// non-nil only when the merged configuration fails validation.
func Load(flags *pflag.FlagSet, env LookupFunc, log *slog.Logger) (Config, error) {
	if env == nil {
		env = os.LookupEnv
	}
	cfg := Default()

	if path, _ := flags.GetString("config"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				log.Debug("config file not found", "path", path)
			} else {
				log.Warn("ignoring config file", "path", path, "error", err)
			}
		}
	}

	applyEnv(env, &cfg)
	if err := applyFlags(flags, &cfg); err != nil {
		return Config{}, err
	}

	cfg.LoopbackFormat = strings.ToLower(cfg.LoopbackFormat)
	if err := validate.Struct(cfg); err != nil {
		return Config{}, validationError(err)
	}
	return cfg, nil
}

// fileConfig mirrors the TOML layout.
type fileConfig struct {
	Log          bool   `toml:"log"`
	FormatTest   bool   `toml:"format_test"`
	LoopbackTest bool   `toml:"loopback_test"`
	Backend      string `toml:"backend"`
	LogFormat    string `toml:"log_format"`
	Loopback     struct {
		Duration     string `toml:"duration"`
		Format       string `toml:"format"`
		BlockFrames  int    `toml:"block_frames"`
		SliceLen     int    `toml:"slice_len"`
		PollInterval string `toml:"poll_interval"`
	} `toml:"loopback"`
}

// loadFile overlays the keys present in the file at path onto cfg. cfg is
// left untouched on error.
func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	fc := fileConfig{
		Log:          cfg.Log,
		FormatTest:   cfg.FormatTest,
		LoopbackTest: cfg.LoopbackTest,
		Backend:      cfg.Backend,
		LogFormat:    cfg.LogFormat,
	}
	fc.Loopback.Duration = cfg.Duration.String()
	fc.Loopback.Format = cfg.LoopbackFormat
	fc.Loopback.BlockFrames = cfg.BlockFrames
	fc.Loopback.SliceLen = cfg.SliceLen
	fc.Loopback.PollInterval = cfg.PollInterval.String()

	if err := toml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse TOML: %w", err)
	}

	duration, err := time.ParseDuration(fc.Loopback.Duration)
	if err != nil {
		return fmt.Errorf("loopback.duration: %w", err)
	}
	poll, err := time.ParseDuration(fc.Loopback.PollInterval)
	if err != nil {
		return fmt.Errorf("loopback.poll_interval: %w", err)
	}

	cfg.Log = fc.Log
	cfg.FormatTest = fc.FormatTest
	cfg.LoopbackTest = fc.LoopbackTest
	cfg.Backend = fc.Backend
	cfg.LogFormat = fc.LogFormat
	cfg.Duration = duration
	cfg.LoopbackFormat = fc.Loopback.Format
	cfg.BlockFrames = fc.Loopback.BlockFrames
	cfg.SliceLen = fc.Loopback.SliceLen
	cfg.PollInterval = poll
	return nil
}

func applyEnv(env LookupFunc, cfg *Config) {
	if _, ok := env(EnvLog); ok {
		cfg.Log = true
	}
	if _, ok := env(EnvLoopbackTest); ok {
		cfg.LoopbackTest = true
	}
	if _, ok := env(EnvFormatTest); ok {
		cfg.FormatTest = true
	}
}

// applyFlags copies the flags set on the command line into cfg.
func applyFlags(flags *pflag.FlagSet, cfg *Config) error {
	var errs []error
	flags.Visit(func(f *pflag.Flag) {
		var err error
		switch f.Name {
		case "log":
			cfg.Log, err = flags.GetBool(f.Name)
		case "format-test":
			cfg.FormatTest, err = flags.GetBool(f.Name)
		case "loopback-test":
			cfg.LoopbackTest, err = flags.GetBool(f.Name)
		case "backend":
			cfg.Backend, err = flags.GetString(f.Name)
		case "log-format":
			cfg.LogFormat, err = flags.GetString(f.Name)
		case "duration":
			cfg.Duration, err = flags.GetDuration(f.Name)
		case "loopback-format":
			cfg.LoopbackFormat, err = flags.GetString(f.Name)
		case "block-frames":
			cfg.BlockFrames, err = flags.GetInt(f.Name)
		case "slice-len":
			cfg.SliceLen, err = flags.GetInt(f.Name)
		case "poll-interval":
			cfg.PollInterval, err = flags.GetDuration(f.Name)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("flag --%s: %w", f.Name, err))
		}
	})
	return errors.Join(errs...)
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s %s", e.Field(), formatValidationMessage(e)))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

func formatValidationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "gt":
		return fmt.Sprintf("must be greater than %s", e.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", e.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s (got %v)", e.Param(), e.Value())
	case "preset":
		return fmt.Sprintf("must be one of: %s (got %v)", strings.Join(format.PresetNames, " "), e.Value())
	default:
		return fmt.Sprintf("failed validation '%s'", e.Tag())
	}
}
