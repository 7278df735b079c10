package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"followscan/internal/runner"
	"followscan/pkg/activity"
	"followscan/pkg/checkpoint"
	"followscan/pkg/config"
	"followscan/pkg/errors"
	"followscan/pkg/logger"
	"followscan/pkg/messages"
	"followscan/pkg/models"
	"followscan/pkg/scan"
	"followscan/pkg/session"
	"followscan/pkg/ui"
	"followscan/pkg/ui/tui"

	"github.com/spf13/cobra"
)

var (
	// Scan command flags
	scanPlatform string
	scanAll      bool
	scanLocation string
	scanStart    int
	scanLimit    int
	scanMode     string
	scanResume   bool
	useTUI       bool
	scanLocale   string
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan one batch of your following list",
	Long: `Scan one batch of the accounts you follow and store the ones that are
inactive (no post for more than 365 days) or do not follow you back.

The batch covers --limit accounts starting at --start. Fast mode only
checks follow-back; full mode also looks up each account's last post.
Press Ctrl+C once to stop cooperatively and keep partial results, twice
to abort.

The page to scan comes from --location, the platform's configured
location, or the profile of the stored account (see 'followscan auth login').`,
	Example: `  # Scan the first 100 accounts you follow on Instagram
  followscan scan --platform instagram --location https://www.instagram.com/me/

  # Full scan of the next batch of 50 on X
  followscan scan -p x --start 50 --limit 50 --mode full

  # Continue where the previous batch stopped
  followscan scan -p threads --resume

  # Scan every platform at once in the live dashboard
  followscan scan --all --tui`,
	Args: cobra.NoArgs,
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().StringVarP(&scanPlatform, "platform", "p", "", "platform to scan (instagram, twitter, threads; comma separated)")
	scanCmd.Flags().BoolVar(&scanAll, "all", false, "scan every platform concurrently")
	scanCmd.Flags().StringVarP(&scanLocation, "location", "l", "", "page to scan, e.g. https://x.com/me/following")
	scanCmd.Flags().IntVar(&scanStart, "start", 0, "index of the first account of the batch")
	scanCmd.Flags().IntVar(&scanLimit, "limit", 0, "number of accounts in the batch (default from config, 100)")
	scanCmd.Flags().StringVarP(&scanMode, "mode", "m", "", "scan mode: fast or full")
	scanCmd.Flags().BoolVar(&scanResume, "resume", false, "start after the last recorded batch")
	scanCmd.Flags().BoolVar(&useTUI, "tui", false, "show the interactive dashboard")
	scanCmd.Flags().StringVar(&scanLocale, "locale", "", "date language: en or ja")
}

func runScan(cmd *cobra.Command, args []string) error {
	platforms, err := parsePlatforms(scanPlatform, scanAll)
	if err != nil {
		return err
	}
	if scanLocation != "" && len(platforms) > 1 {
		return fmt.Errorf("--location applies to a single platform")
	}

	cfg, err := loadConfig(scanFlags(cmd))
	if err != nil {
		return err
	}
	locale := activity.ParseLocale(cfg.Output.Locale)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// the dashboard is created first so every component logs into it
	var (
		orch      *scan.Orchestrator
		sink      messages.Publisher
		dashboard *tui.TUI
		display   *ui.ScanDisplay
	)
	stopAll := func() {
		if orch == nil {
			return
		}
		for _, p := range platforms {
			orch.Stop(p)
		}
	}
	if cfg.Output.TUI {
		dashboard = tui.New(platforms, func(p models.Platform) {
			if orch != nil {
				orch.Stop(p)
			}
		}, locale, tui.WithQuitWhenDone())
		logger.SetLogger(newDashboardLogger(dashboard, cfg.Logging.Level))
		sink = dashboard
	} else {
		display = ui.NewScanDisplay(os.Stdout, verbose, locale)
		sink = display
	}

	creds := openCredentials()
	a, err := newApp(ctx, cfg, creds)
	if err != nil {
		return err
	}
	defer a.Close()

	reqs, checkpoints, err := buildRequests(cfg.Scan, platforms, creds, a)
	if err != nil {
		return err
	}

	orch = a.hub.Orchestrator()
	defer handleInterrupts(stopAll, cancel)()

	events, unsubscribe := a.hub.Subscribe(256)
	forwarded := make(chan struct{})
	go func() {
		defer close(forwarded)
		for msg := range events {
			if !quiet {
				sink.Publish(msg)
			}
		}
	}()

	for _, req := range reqs {
		logger.LogScanStart(a.log, string(req.Platform), req.Options.StartIndex, req.Options.Limit, string(req.Options.Mode))
	}

	var results []runner.Result
	if dashboard != nil {
		done := make(chan struct{})
		go func() {
			defer close(done)
			results = runner.RunAll(ctx, len(reqs), orch, reqs, a.log)
		}()
		if err := dashboard.Run(); err != nil {
			a.log.WithError(err).Error("Dashboard failed")
		}
		// leaving the dashboard stops whatever is still running
		stopAll()
		<-done
	} else {
		results = runner.RunAll(ctx, len(reqs), orch, reqs, a.log)
	}

	unsubscribe()
	<-forwarded

	if display != nil && !quiet {
		display.Summary()
	}
	return reportResults(results, checkpoints, ui.NewNotifier(cfg.Notifications))
}

// buildRequests resolves the location and batch window of every platform
func buildRequests(sc config.ScanConfig, platforms []models.Platform, creds credentialSource, a *app) ([]scan.Request, map[models.Platform]*checkpoint.Manager, error) {
	mode, err := models.ParseScanMode(sc.Mode)
	if err != nil {
		return nil, nil, err
	}
	base := models.ScanOptions{StartIndex: sc.StartIndex, Limit: sc.Limit, Mode: mode}.Normalize()

	reqs := make([]scan.Request, 0, len(platforms))
	checkpoints := make(map[models.Platform]*checkpoint.Manager, len(platforms))
	for _, p := range platforms {
		opts := base

		cm, err := checkpoint.NewManager(p)
		if err != nil {
			a.log.WithError(err).WithField("platform", p).Warn("Checkpoints unavailable")
		} else {
			checkpoints[p] = cm
		}
		if scanResume {
			if cm == nil {
				return nil, nil, fmt.Errorf("cannot resume %s: checkpoints unavailable", p)
			}
			resumed, ok, err := cm.ResumeOptions(opts)
			if err != nil {
				return nil, nil, fmt.Errorf("cannot resume %s: %w", p, err)
			}
			if ok {
				opts = resumed
				if !quiet && !a.cfg.Output.TUI {
					ui.PrintInfo("Resuming "+string(p), fmt.Sprintf("from #%d", opts.StartIndex+1))
				}
			} else if !quiet && !a.cfg.Output.TUI {
				ui.PrintInfo(string(p), "nothing to resume, starting a new batch")
			}
		}

		location := scanLocation
		if location == "" {
			location = defaultLocation(a.cfg, p, creds)
		}
		reqs = append(reqs, scan.Request{Platform: p, Location: location, Options: opts})
	}
	return reqs, checkpoints, nil
}

// reportResults records checkpoints and sends notifications. It fails when
// any platform failed.
func reportResults(results []runner.Result, checkpoints map[models.Platform]*checkpoint.Manager, notifier *ui.Notifier) error {
	var failed []string
	for _, res := range results {
		p := res.Job.Request.Platform
		if res.Err != nil || res.Session == nil {
			failed = append(failed, string(p))
			notifier.ScanError(p, errors.UserMessage(res.Err))
			continue
		}

		if cm := checkpoints[p]; cm != nil {
			if _, err := cm.Record(res.Session); err != nil {
				logger.WithError(err).WithField("platform", p).Warn("Failed to record checkpoint")
			}
		}

		final := res.Session.Result()
		switch final.Outcome {
		case session.OutcomeFailed:
			failed = append(failed, string(p))
			notifier.ScanError(p, errors.UserMessage(final.Err))
		default:
			notifier.ScanComplete(p, len(final.Accounts), final.Outcome == session.OutcomeStopped)
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("scan failed: %s", strings.Join(failed, ", "))
	}
	return nil
}

// handleInterrupts stops scans cooperatively on the first interrupt and
// cancels everything on the second. The returned func releases the handler.
func handleInterrupts(stop func(), cancel context.CancelFunc) func() {
	sigs := make(chan os.Signal, 2)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	quit := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		interrupts := 0
		for {
			select {
			case <-sigs:
				interrupts++
				if interrupts == 1 {
					logger.Warn("Stopping scans, press Ctrl+C again to abort")
					stop()
					continue
				}
				cancel()
				return
			case <-quit:
				return
			}
		}
	}()

	return func() {
		signal.Stop(sigs)
		close(quit)
		wg.Wait()
	}
}

// scanFlags collects the scan flags that override the config. The start index
// is passed only when given, so an explicit --start 0 still wins over the file.
func scanFlags(cmd *cobra.Command) map[string]interface{} {
	flags := map[string]interface{}{
		"limit":  scanLimit,
		"mode":   scanMode,
		"locale": scanLocale,
		"tui":    useTUI,
	}
	if cmd.Flags().Changed("start") {
		flags["start"] = scanStart
	}
	return flags
}

// dashboardWriter feeds JSON log lines into the dashboard's log panel
type dashboardWriter struct {
	dashboard *tui.TUI
}

func (w dashboardWriter) Write(p []byte) (int, error) {
	var entry struct {
		Level   string `json:"level"`
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	line := strings.TrimSpace(string(p))
	if err := json.Unmarshal(p, &entry); err == nil && entry.Message != "" {
		line = entry.Message
		if entry.Error != "" {
			line += ": " + entry.Error
		}
	}
	w.dashboard.Log(entry.Level, "%s", line)
	return len(p), nil
}

// newDashboardLogger routes logging into the dashboard so it does not tear the screen
func newDashboardLogger(t *tui.TUI, level string) logger.Logger {
	l, err := logger.NewWithWriter(dashboardWriter{dashboard: t}, level)
	if err != nil {
		return logger.NewNopLogger()
	}
	return l
}
