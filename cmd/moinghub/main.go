package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"moinghub/internal/cache"
	"moinghub/internal/config"
	"moinghub/internal/live"
	appLog "moinghub/internal/log"
	"moinghub/internal/schedule"
	"moinghub/internal/video"
	"moinghub/internal/web"
)

// flagConfig holds CLI flag values.
type flagConfig struct {
	configPath string
	listen     string
	once       bool
}

func main() {
	appLog.Info("moinghub starting", "version", "0.1.0")

	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}

	// CLI --listen overrides config file listen if provided.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}

	appLog.Info("effective config",
		"listen", conf.Listen,
		"refresh", conf.RefreshCron,
		"revalidate_seconds", conf.Schedule.RevalidateSeconds,
		"csv_url_configured", conf.Schedule.CSVURL != "",
		"youtube_configured", conf.YouTube.APIKey != "",
		"once", flags.once,
	)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	store := cache.New()
	fetcher := schedule.NewFetcher(store)

	if flags.once {
		runOnce(ctx, conf, fetcher)
		return
	}

	liveClient := live.NewClient(conf.Chzzk.ChannelID, store)
	videoClient := video.NewClient(conf.YouTube.APIKey, conf.YouTube.MaxResults, store)

	// Background refresh keeps the CSV cache warm so HTTP reads rarely pay
	// the upstream round trip.
	scheduler := cron.New()
	_, err = scheduler.AddFunc(conf.RefreshCron, func() {
		warmCtx, warmCancel := context.WithTimeout(ctx, 30*time.Second)
		defer warmCancel()
		if werr := fetcher.WarmCache(warmCtx, conf.Schedule.CSVURL, conf.Schedule.RevalidateSeconds); werr != nil {
			appLog.Error("schedule cache warm failed", werr)
		}
	})
	if err != nil {
		appLog.Error("invalid refresh schedule", err, "refresh", conf.RefreshCron)
		os.Exit(1)
	}
	scheduler.Start()
	defer scheduler.Stop()

	server := web.NewServer(conf, fetcher, liveClient, videoClient)
	httpServer := &http.Server{
		Addr:              conf.Listen,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+conf.Listen)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.Error("HTTP server failed", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			appLog.Error("HTTP server shutdown failed", err)
		}
	}

	appLog.Info("moinghub exiting")
}

// runOnce fetches the schedule a single time and prints a short summary.
// 배포 전에 파이프라인이 시트와 맞는지 확인하는 용도.
func runOnce(ctx context.Context, conf *config.Config, fetcher *schedule.Fetcher) {
	feed, err := fetcher.Fetch(ctx, conf.Schedule.CSVURL, schedule.FetchOptions{NoCache: true})
	if err != nil {
		appLog.Error("schedule fetch failed", err)
		os.Exit(1)
	}
	appLog.Info("schedule fetched",
		"csv_url", feed.CSVURL,
		"rows", len(feed.Rows),
		"events", len(feed.Events),
	)
	for _, ev := range feed.Events {
		appLog.Info("event", "id", ev.ID, "start", ev.Start, "title", ev.Title, "platform", ev.Platform)
	}
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/moinghub/config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Fetch the schedule once, print a summary, and exit")

	flag.Parse()

	return cfg
}
