package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"followscan/pkg/logger"
	"followscan/pkg/server"
	"followscan/pkg/service"
	"followscan/pkg/ui"

	"github.com/spf13/cobra"
)

var (
	listenAddr   string
	stopPlatform string
	serverURL    string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Run followscan as a local HTTP service.

Endpoints:
  POST   /api/messages               message envelope {"type": ..., "data": ...}
  GET    /api/events                 server-sent events of every outgoing message
  GET    /api/accounts               stored accounts (?platform=, ?filter=)
  DELETE /api/accounts               clear stored accounts (?platform=)
  POST   /api/scans/{platform}       start a scan
  GET    /api/scans/{platform}       scan status
  POST   /api/scans/{platform}/stop  stop a scan
  GET    /metrics                    Prometheus metrics
  GET    /healthz                    liveness`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop a scan running in 'followscan serve'",
	Long: `Ask a running server to stop the scan of a platform. The scan stops before
its next account and keeps what it found so far.

A scan started with 'followscan scan' is stopped with Ctrl+C instead.`,
	Example: `  followscan stop --platform instagram
  followscan stop -p x --server http://127.0.0.1:9000`,
	Args: cobra.NoArgs,
	RunE: runStop,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(stopCmd)

	serveCmd.Flags().StringVar(&listenAddr, "listen", "", "listen address (default from config, 127.0.0.1:8787)")
	stopCmd.Flags().StringVarP(&stopPlatform, "platform", "p", "", "platform whose scan to stop")
	stopCmd.Flags().StringVar(&serverURL, "server", "", "server URL (default from config)")
	_ = stopCmd.MarkFlagRequired("platform")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(map[string]interface{}{"listen": listenAddr})
	if err != nil {
		return err
	}

	metrics, err := service.NewMetrics()
	if err != nil {
		return fmt.Errorf("failed to create metrics: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := newApp(ctx, cfg, openCredentials(), service.WithMetrics(metrics))
	if err != nil {
		return err
	}
	defer a.Close()

	srv := server.New(a.hub, metrics, a.log)
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(cfg.Server.Addr)
	}()
	if !quiet {
		ui.PrintInfo("Listening on", "http://"+cfg.Server.Addr)
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigs)

	select {
	case err := <-errCh:
		return err
	case <-sigs:
	}

	a.log.Info("Shutting down")
	// running scans stop and save their partial results before the store closes
	for _, p := range a.drivers.Platforms() {
		if sess := a.hub.Orchestrator().Active(p); sess != nil {
			sess.Stop()
			select {
			case <-sess.Done():
			case <-time.After(10 * time.Second):
				a.log.WithField("platform", p).Warn("Scan did not stop in time")
			}
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	return srv.Shutdown(shutdownCtx)
}

func runStop(cmd *cobra.Command, args []string) error {
	p, err := optionalPlatform(stopPlatform)
	if err != nil {
		return err
	}

	base := serverURL
	if base == "" {
		cfg, err := loadConfig(nil)
		if err != nil {
			return err
		}
		base = "http://" + cfg.Server.Addr
	}
	url := strings.TrimRight(base, "/") + "/api/scans/" + string(p) + "/stop"

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Post(url, "application/json", nil)
	if err != nil {
		return fmt.Errorf("server not reachable at %s: %w", base, err)
	}
	defer resp.Body.Close()

	var body struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("unexpected response from server: %w", err)
	}
	if !body.Success {
		if body.Error == "" {
			body.Error = resp.Status
		}
		return fmt.Errorf("stop failed: %s", body.Error)
	}

	logger.WithField("platform", p).Debug("Stop sent")
	ui.PrintSuccess(fmt.Sprintf("Stop requested for %s", p))
	return nil
}
