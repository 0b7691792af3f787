// Command spscbench drives producer/consumer pairs through a channel backend
// and records how fast values are handed across.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/OCAP2/spsc/internal/bench"
	"github.com/OCAP2/spsc/internal/channel"
	"github.com/OCAP2/spsc/internal/config"
	"github.com/OCAP2/spsc/internal/logging"
	intOtel "github.com/OCAP2/spsc/internal/otel"
	"github.com/OCAP2/spsc/internal/storage"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
)

// Version and BuildDate can be set at build time via ldflags
var (
	Version   string = "0.0.1"
	BuildDate string = "unknown"
)

const (
	programName = "spscbench"
	meterName   = "github.com/OCAP2/spsc/cmd/spscbench"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	fs := pflag.NewFlagSet(programName, pflag.ContinueOnError)
	config.Flags(fs)
	history := fs.Int("history", 0, "print the N most recent stored runs and exit")
	version := fs.Bool("version", false, "print version and exit")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *version {
		fmt.Fprintf(out, "%s %s (built %s)\n", programName, Version, BuildDate)
		return nil
	}

	configDir, _ := fs.GetString("config")
	if err := config.Load(configDir); err != nil {
		return err
	}
	if err := config.BindFlags(fs); err != nil {
		return err
	}

	sessionStart := time.Now()
	app, err := setup(sessionStart)
	if err != nil {
		return err
	}
	defer app.shutdown()

	if *history > 0 {
		recent, err := app.store.Recent(*history)
		if err != nil {
			return err
		}
		printSummary(out, recent)
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	results, err := app.runAll(ctx, config.GetBenchConfig())
	printSummary(out, results)
	return err
}

// app holds everything set up for one invocation.
type app struct {
	slog     *logging.SlogManager
	zlog     zerolog.Logger
	otel     *intOtel.Provider
	store    storage.Backend
	exporter *influxExporter
	closers  []io.Closer
}

func setup(sessionStart time.Time) (*app, error) {
	a := &app{}
	level := config.GetString("logLevel")

	logsDir := config.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return nil, fmt.Errorf("error creating logs dir: %w", err)
	}
	logFile, err := os.OpenFile(logging.LogFilePath(logsDir, programName, sessionStart),
		os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("error opening log file: %w", err)
	}
	a.closers = append(a.closers, logFile)

	a.otel, err = newOTelProvider(logsDir, sessionStart, a)
	if err != nil {
		a.closeAll()
		return nil, err
	}

	var sinks []io.Writer
	if config.GetBool("graylog.enabled") {
		gelfWriter, err := logging.NewGelfWriter(config.GetString("graylog.address"))
		if err != nil {
			// not fatal, the log file still has everything
			fmt.Fprintf(os.Stderr, "graylog disabled: %v\n", err)
		} else {
			sinks = append(sinks, gelfWriter)
		}
	}

	a.slog = logging.NewSlogManager()
	a.slog.Setup(logFile, level, a.otel.LoggerProvider(), sinks...)
	a.zlog = logging.NewZerolog(logFile, level)

	a.slog.Logger().Info("Starting up", "version", Version, "buildDate", BuildDate)

	a.store, err = initStorage(config.GetStorageConfig(), a.zlog)
	if err != nil {
		a.slog.Logger().Error("Failed to initialize storage backend", "error", err)
		a.shutdown()
		return nil, err
	}

	a.exporter = initInflux(logsDir, sessionStart, a.zlog)
	return a, nil
}

func newOTelProvider(logsDir string, sessionStart time.Time, a *app) (*intOtel.Provider, error) {
	cfg := config.GetOTelConfig()
	if !cfg.Enabled {
		return intOtel.New(intOtel.Config{})
	}

	stamp := sessionStart.Format("20060102_150405")
	logOut, err := os.OpenFile(filepath.Join(logsDir, fmt.Sprintf("%s.%s.otel.jsonl", programName, stamp)),
		os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("error opening otel log file: %w", err)
	}
	a.closers = append(a.closers, logOut)

	metricOut, err := os.OpenFile(filepath.Join(logsDir, fmt.Sprintf("%s.%s.metrics.jsonl", programName, stamp)),
		os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("error opening otel metric file: %w", err)
	}
	a.closers = append(a.closers, metricOut)

	return intOtel.New(intOtel.Config{
		Enabled:        true,
		ServiceName:    cfg.ServiceName,
		BatchTimeout:   cfg.BatchTimeout,
		MetricInterval: cfg.MetricInterval,
		LogWriter:      logOut,
		MetricWriter:   metricOut,
		Endpoint:       cfg.Endpoint,
		Insecure:       cfg.Insecure,
	})
}

// runAll executes the configured number of runs, storing each result.
func (a *app) runAll(ctx context.Context, bc config.BenchConfig) ([]bench.Result, error) {
	backend, err := channel.ParseBackend(bc.Backend)
	if err != nil {
		return nil, err
	}
	mode, err := bench.ParseMode(bc.Mode)
	if err != nil {
		return nil, err
	}

	results := make([]bench.Result, 0, bc.Runs)
	for i := 1; i <= bc.Runs; i++ {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		n := i
		logger := a.slog.With(func() []slog.Attr {
			return []slog.Attr{slog.Int("run", n), slog.Int("runs", bc.Runs)}
		}).Logger()

		cfg := bench.Config{
			Backend:       backend,
			Mode:          mode,
			Capacity:      bc.Capacity,
			Messages:      bc.Messages,
			ChannelLogger: logging.NewChannelLogger(a.zlog),

			SampleInterval: bc.SampleInterval,
		}
		if a.otel.Enabled() {
			cfg.Meter = a.otel.Meter(meterName)
			cfg.Flush = a.otel.Flush
		}

		res, err := a.runOne(ctx, cfg, bc.Timeout, logger)
		if err != nil {
			return results, fmt.Errorf("run %d: %w", i, err)
		}
		results = append(results, res)

		if err := a.store.Save(res); err != nil {
			logger.Error("Failed to save run", "runId", res.RunID, "error", err)
		}
		if err := a.exporter.write(res); err != nil {
			logger.Error("Failed to export run", "runId", res.RunID, "error", err)
		}
	}
	return results, nil
}

func (a *app) runOne(ctx context.Context, cfg bench.Config, timeout time.Duration, logger *slog.Logger) (bench.Result, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return bench.Run(ctx, cfg, logger)
}

// shutdown flushes telemetry and releases storage, exporters and files.
func (a *app) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var errs []error
	if a.exporter != nil {
		errs = append(errs, a.exporter.close())
	}
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	if a.slog != nil {
		errs = append(errs, a.slog.Flush(ctx))
	}
	if a.otel != nil {
		errs = append(errs, a.otel.Shutdown(ctx))
	}
	if err := errors.Join(errs...); err != nil {
		fmt.Fprintf(os.Stderr, "shutdown: %v\n", err)
	}
	a.closeAll()
}

func (a *app) closeAll() {
	for _, c := range a.closers {
		_ = c.Close()
	}
	a.closers = nil
}
