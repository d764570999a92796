package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/Fepozopo/convolve/pkg/kernel"
	"github.com/Fepozopo/convolve/pkg/stdimg"
)

// Exit codes returned by Run.
const (
	ExitOK      = 0
	ExitFailure = 1
	// ExitUsage covers bad arguments and unreadable input.
	ExitUsage = -1
)

func usage(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprintln(w, "Usage: convolve [flags] <filename> <type> <workers>")
	fmt.Fprintln(w, "  where type is one of:")
	for _, s := range kernel.Specs() {
		fmt.Fprintf(w, "    %-9s %s\n", s.Name, s.Description)
	}
	fmt.Fprintln(w, "  unknown types fall back to identity; workers must be at least 1")
	fmt.Fprintf(w, "  and at most %d\n", stdimg.MaxWorkers)
	fmt.Fprintln(w, "Flags:")
	fs.PrintDefaults()
}

// Run executes the command line tool with args (without the program name)
// and returns the process exit code.
func Run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("convolve", flag.ContinueOnError)
	fs.SetOutput(stderr)
	output := fs.String("o", "", "output PNG `path` (default $CONVOLVE_OUTPUT or output.png)")
	saturate := fs.Bool("saturate", false, "clamp out-of-range sums to [0,255] instead of wrapping")
	dropRemainder := fs.Bool("drop-remainder", false, "leave height%workers trailing rows unwritten")
	timeout := fs.Duration("timeout", 0, "abort the convolution after this long (0 disables)")
	preview := fs.Bool("preview", false, "show the result inline in kitty/iTerm2-compatible terminals")
	envFile := fs.String("env", ".env", "dotenv `file` with CONVOLVE_* settings")
	verbose := fs.Bool("v", false, "debug logging")
	showVersion := fs.Bool("version", false, "print the version and exit")
	update := fs.Bool("update", false, "update to the latest release and exit")
	fs.Usage = func() { usage(stderr, fs) }

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ExitOK
		}
		return ExitUsage
	}

	cfg, err := LoadConfig(*envFile)
	if err != nil {
		fmt.Fprintf(stderr, "configuration error: %v\n", err)
		return ExitUsage
	}
	if *output != "" {
		cfg.Output = *output
	}
	if *saturate {
		cfg.Narrowing = stdimg.Saturate
	}
	if *dropRemainder {
		cfg.Remainder = stdimg.RemainderDrop
	}
	if *timeout > 0 {
		cfg.Timeout = *timeout
	}
	if *preview {
		cfg.Preview = true
	}
	if *verbose {
		cfg.LogLevel = slog.LevelDebug
	}

	log := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	stdimg.SetLogger(log)

	if *showVersion {
		fmt.Fprintln(stdout, Version)
		return ExitOK
	}
	if *update {
		if err := CheckForUpdates(stdout); err != nil {
			fmt.Fprintf(stderr, "update check error: %v\n", err)
			return ExitFailure
		}
		return ExitOK
	}

	if fs.NArg() != 3 {
		usage(stderr, fs)
		return ExitUsage
	}
	inputPath, filterName, workerArg := fs.Arg(0), fs.Arg(1), fs.Arg(2)

	// The engine rejects non-positive counts too; checking here keeps the
	// exit code in the usage class.
	workers, err := strconv.Atoi(workerArg)
	if err != nil || workers <= 0 || workers > stdimg.MaxWorkers {
		fmt.Fprintf(stderr, "invalid worker count %q: must be an integer in 1..%d\n", workerArg, stdimg.MaxWorkers)
		usage(stderr, fs)
		return ExitUsage
	}

	start := time.Now()

	src, format, err := LoadImage(inputPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error loading file %s: %v\n", inputPath, err)
		return ExitUsage
	}
	log.Debug("loaded image", "path", inputPath, "format", format,
		"width", src.Width, "height", src.Height, "channels", src.Channels)

	k, known := kernel.Resolve(filterName)
	if !known {
		log.Debug("unrecognized filter, using identity", "filter", filterName)
	}

	ctx := context.Background()
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	dst, err := stdimg.ConvolveContext(ctx, src, k, stdimg.Options{
		Workers:   workers,
		Narrowing: cfg.Narrowing,
		Remainder: cfg.Remainder,
	})
	if err != nil {
		fmt.Fprintf(stderr, "convolution failed: %v\n", err)
		return ExitFailure
	}

	if err := SaveImage(cfg.Output, dst); err != nil {
		fmt.Fprintf(stderr, "failed to write image %s: %v\n", cfg.Output, err)
		return ExitFailure
	}

	if cfg.Preview {
		if err := PreviewImage(stdout, dst.ToImage(), cfg.PreviewBackend); err != nil {
			log.Warn("preview unavailable", "err", err)
		}
	}

	fmt.Fprintf(stdout, "Took %.3f seconds\n", time.Since(start).Seconds())
	return ExitOK
}
