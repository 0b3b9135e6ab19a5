package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/blackwell-systems/apptracker/internal/config"
	"github.com/blackwell-systems/apptracker/internal/metrics"
	"github.com/blackwell-systems/apptracker/internal/summary"
	"github.com/blackwell-systems/apptracker/internal/watcher"
)

var (
	watchDaemon      bool
	watchDaemonChild bool
	watchPIDFile     string
	watchLogFile     string
	watchStop        bool
	watchStdin       bool
	watchMetricsAddr string

	watchCmd = &cobra.Command{
		Use:   "watch",
		Short: "Follow the device log and count app launches",
		Long: `Follow the Android activity log and count user app launches.

The log command defaults to:
  ` + config.DefaultLogCommand + `
and can be replaced with APPTRACKER_LOG_COMMAND. When the stream ends or
cannot be started it is restarted after APPTRACKER_RESTART_DELAY.

Every launch candidate refreshes the summary file (APPTRACKER_SUMMARY_FILE).
Touching the wake file, or running 'apptracker wake', refreshes it too.

Watch modes:
  • Foreground (default): Run in current terminal with Ctrl+C to stop
  • Daemon: Run as background process
  • Stdin: Count launches in a log read from standard input, then exit
  • Stop: Stop a running daemon`,
		Example: `  # Run in foreground (Ctrl+C to stop)
  apptracker watch

  # Run as background daemon
  apptracker watch --daemon

  # Stop running daemon
  apptracker watch --stop

  # Count launches in a saved log
  apptracker watch --stdin < logcat.txt

  # Expose Prometheus metrics
  apptracker watch --metrics-addr :9464`,
		RunE: runWatch,
	}
)

func init() {
	watchCmd.Flags().BoolVar(&watchDaemon, "daemon", false, "run as background daemon")
	watchCmd.Flags().BoolVar(&watchDaemonChild, "daemon-child", false, "internal flag for daemon child process")
	watchCmd.Flags().StringVar(&watchPIDFile, "pid-file", "", "PID file path (default: ~/.apptracker/watch.pid)")
	watchCmd.Flags().StringVar(&watchLogFile, "log-file", "", "log file path (default: ~/.apptracker/watch.log)")
	watchCmd.Flags().BoolVar(&watchStop, "stop", false, "stop running daemon")
	watchCmd.Flags().BoolVar(&watchStdin, "stdin", false, "read the log from standard input instead of running the log command")
	watchCmd.Flags().StringVar(&watchMetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")

	// Hide the internal daemon-child flag from help
	watchCmd.Flags().MarkHidden("daemon-child")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if watchPIDFile == "" {
		watchPIDFile = cfg.PIDFile()
	}
	if watchLogFile == "" {
		watchLogFile = cfg.LogFile()
	}

	if watchStop {
		return stopWatchDaemon()
	}
	if watchStdin && (watchDaemon || watchDaemonChild) {
		return fmt.Errorf("--stdin cannot be combined with --daemon")
	}
	if watchDaemon {
		return startWatchDaemon(cfg)
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	if err := st.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	run, err := buildWatch(cfg)
	if err != nil {
		return err
	}

	if watchDaemonChild {
		// Stdout and stderr are the daemon log file here.
		return watcher.RunDaemon(watchPIDFile, run)
	}

	return runWatchForeground(run)
}

// buildWatch wires the log source, pipeline, summary sink, wake listener and
// metrics into a single run function.
func buildWatch(cfg *config.Config) (func(ctx context.Context) error, error) {
	var src watcher.Source
	if watchStdin {
		src = watcher.NewReaderSource(os.Stdin)
	} else {
		cs, err := watcher.NewCommandSource(cfg.LogCommand)
		if err != nil {
			return nil, err
		}
		src = cs
	}

	open := watcher.OpenStore(cfg.DBPath)
	sink := summary.New(cfg.SummaryFile, cfg.SummaryLimit)

	reg := prometheus.NewRegistry()
	m := metrics.New(reg, open)

	p := watcher.NewPipeline(src, open, sink, watcher.WithObserver(m))

	var w *watcher.Watcher
	if !watchStdin {
		wake := watcher.NewWakeListener(cfg.WakeFile, open, sink)
		wake.SetObserver(m)

		var err error
		w, err = watcher.New(p, wake)
		if err != nil {
			return nil, fmt.Errorf("failed to create watcher: %w", err)
		}
		w.SetRestartDelay(cfg.RestartDelay)
	}

	return func(ctx context.Context) error {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		g, ctx := errgroup.WithContext(ctx)
		if watchMetricsAddr != "" {
			g.Go(func() error {
				return metrics.Serve(ctx, watchMetricsAddr, reg)
			})
		}
		g.Go(func() error {
			if w != nil {
				return w.Run(ctx)
			}
			// A stdin run ends with its input.
			defer cancel()
			if err := p.Start(ctx); err != nil {
				return err
			}
			return p.Wait()
		})
		return g.Wait()
	}, nil
}

func stopWatchDaemon() error {
	running, err := watcher.IsDaemonRunning(watchPIDFile)
	if err != nil {
		return fmt.Errorf("failed to check daemon status: %w", err)
	}

	if !running {
		fmt.Println("Daemon is not running")
		return nil
	}

	if err := watcher.StopDaemon(watchPIDFile); err != nil {
		return fmt.Errorf("failed to stop daemon: %w", err)
	}
	fmt.Println("✓ Daemon stopped")

	return nil
}

func startWatchDaemon(cfg *config.Config) error {
	extra := []string{"--db", cfg.DBPath}
	if watchMetricsAddr != "" {
		extra = append(extra, "--metrics-addr", watchMetricsAddr)
	}

	if err := watcher.StartDaemon(watchPIDFile, watchLogFile, extra...); err != nil {
		return fmt.Errorf("failed to start daemon: %w", err)
	}
	fmt.Println("✓ Daemon started")

	fmt.Printf("\nLaunch tracking daemon started\n")
	fmt.Printf("  PID file: %s\n", watchPIDFile)
	fmt.Printf("  Log file: %s\n", watchLogFile)
	fmt.Printf("\nTo stop: apptracker watch --stop\n")

	return nil
}

func runWatchForeground(run func(ctx context.Context) error) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if !watchStdin {
		fmt.Println("Counting app launches (press Ctrl+C to stop)...")
		fmt.Println()
	}

	if err := run(ctx); err != nil {
		return err
	}

	if ctx.Err() != nil {
		fmt.Println("\nLaunch tracking stopped")
	}
	return nil
}
