package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/marcelsud/sumit-gateway/config"
	"github.com/marcelsud/sumit-gateway/internal/app"
	"github.com/marcelsud/sumit-gateway/webhook"
)

/* sweep - one-shot webhook sweep for an external scheduler (cron)
 * Usage: sweep [-include-failed]
 * Exit codes: 0 = swept, 1 = setup failed or some items errored
 */

func main() {
	includeFailed := flag.Bool("include-failed", false, "also re-attempt failed events (bulk manual retry)")
	flag.Parse()

	cfg, err := config.GetConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	report, err := a.NewSweeper(cfg.SweepInterval(), webhook.SweepOptions{IncludeFailed: *includeFailed}).RunOnce(ctx)

	ctxTimeout, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if cerr := a.Close(ctxTimeout); cerr != nil {
		fmt.Fprintln(os.Stderr, cerr)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	out := map[string]any{
		"claimed":     report.Claimed,
		"sent":        report.Sent,
		"retrying":    report.Retrying,
		"failed":      report.Failed,
		"skipped":     report.Skipped,
		"errors":      len(report.Errors),
		"duration_ms": report.Duration.Milliseconds(),
	}
	_ = json.NewEncoder(os.Stdout).Encode(out)
	if len(report.Errors) > 0 {
		os.Exit(1)
	}
}
