package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/Fepozopo/convolve/pkg/stdimg"
)

// Environment keys read by LoadConfig.
const (
	envOutput         = "CONVOLVE_OUTPUT"
	envNarrowing      = "CONVOLVE_NARROWING"
	envRemainder      = "CONVOLVE_REMAINDER"
	envTimeout        = "CONVOLVE_TIMEOUT"
	envLogLevel       = "CONVOLVE_LOG_LEVEL"
	envPreview        = "CONVOLVE_PREVIEW"
	envPreviewBackend = "PREVIEW_BACKEND"
)

// Config carries settings that may come from a dotenv file or the
// environment. Command-line flags are applied on top by Run.
type Config struct {
	Output         string
	Narrowing      stdimg.Narrowing
	Remainder      stdimg.RemainderPolicy
	Timeout        time.Duration
	LogLevel       slog.Level
	Preview        bool
	PreviewBackend string
}

// DefaultConfig writes output.png in the working directory, wraps
// out-of-range sums, assigns leftover rows to the last worker and only logs
// warnings.
func DefaultConfig() Config {
	return Config{
		Output:    "output.png",
		Narrowing: stdimg.Wrap,
		Remainder: stdimg.RemainderLast,
		LogLevel:  slog.LevelWarn,
	}
}

// LoadConfig reads envFile (a missing file is fine) and overlays non-empty
// values from the process environment, which take precedence. The process environment is
// not modified.
func LoadConfig(envFile string) (Config, error) {
	fileVals := map[string]string{}
	if envFile != "" {
		vals, err := godotenv.Read(envFile)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("failed to read %s: %w", envFile, err)
		}
		if vals != nil {
			fileVals = vals
		}
	}
	// An empty environment value counts as unset.
	lookup := func(key string) string {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
		return strings.TrimSpace(fileVals[key])
	}

	cfg := DefaultConfig()
	if v := lookup(envOutput); v != "" {
		cfg.Output = v
	}
	if v := lookup(envNarrowing); v != "" {
		n, err := stdimg.ParseNarrowing(strings.ToLower(v))
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", envNarrowing, err)
		}
		cfg.Narrowing = n
	}
	if v := lookup(envRemainder); v != "" {
		p, err := stdimg.ParseRemainderPolicy(strings.ToLower(v))
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", envRemainder, err)
		}
		cfg.Remainder = p
	}
	if v := lookup(envTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", envTimeout, err)
		}
		if d < 0 {
			return Config{}, fmt.Errorf("%s: negative timeout %s", envTimeout, d)
		}
		cfg.Timeout = d
	}
	if v := lookup(envLogLevel); v != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(v)); err != nil {
			return Config{}, fmt.Errorf("%s: %w", envLogLevel, err)
		}
	}
	if v := lookup(envPreview); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", envPreview, err)
		}
		cfg.Preview = b
	}
	cfg.PreviewBackend = strings.ToLower(lookup(envPreviewBackend))
	return cfg, nil
}
