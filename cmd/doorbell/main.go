package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bytedance/sonic"
	"github.com/robalyx/doorbell/internal/bot"
	"github.com/robalyx/doorbell/internal/notify"
	"github.com/robalyx/doorbell/internal/platform"
	"github.com/robalyx/doorbell/internal/platform/rate"
	"github.com/robalyx/doorbell/internal/setup"
	"github.com/robalyx/doorbell/internal/watch"
	"github.com/robalyx/doorbell/internal/worker/maintenance"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// MainLogDir specifies where doorbell log files are stored.
const MainLogDir = "logs/doorbell"

func main() {
	if err := run(); err != nil {
		log.Printf("Error: %v", err)
		os.Exit(1)
	}
}

func run() error {
	app := &cli.Command{
		Name:  "doorbell",
		Usage: "Watch communities for new member arrivals",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Start the arrival monitoring service",
				Action: func(ctx context.Context, _ *cli.Command) error {
					runService(ctx)
					return nil
				},
			},
			{
				Name:  "stats",
				Usage: "Print persisted monitoring statistics",
				Action: func(ctx context.Context, _ *cli.Command) error {
					return printStats(ctx)
				},
			},
		},
	}

	return app.Run(context.Background(), os.Args)
}

// runService wires the full pipeline and supervises its workers until an
// interrupt arrives.
func runService(ctx context.Context) {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := setup.InitializeApp(ctx, MainLogDir)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}
	defer app.Cleanup()

	cfg := app.Config
	logger := app.Logger
	gate := app.DB.Service().Gate()

	// Ordinary-credential client, paced and jittered.
	limiter := rate.New(
		time.Duration(cfg.Monitoring.RequestSpacing)*time.Millisecond,
		time.Duration(cfg.Monitoring.RequestJitter)*time.Millisecond,
	)
	client := platform.NewREST(cfg.Discord.UserToken, limiter, logger)

	// Capability probe happens once at startup; collectors never re-check.
	if _, ok := platform.AsMemberBrowser(client); ok {
		logger.Info("Platform client supports member browsing")
	} else {
		logger.Info("Platform client lacks member browsing, counter enrichment uses messages only")
	}

	// Privileged event feed and the operator notifier share one gateway
	// client, so the feed is built before the queue it feeds.
	feed, err := bot.NewFeed(cfg.Discord.BotToken, app.DB, gate, &cfg.Monitoring, logger)
	if err != nil {
		logger.Fatal("Failed to create event feed", zap.Error(err))
	}

	notifier := bot.NewDMNotifier(feed.Client(), cfg.Discord.OperatorID, logger)

	queue := notify.NewQueue(
		cfg.Filters.QueueSize,
		time.Duration(cfg.Filters.NotifySpacing)*time.Millisecond,
		time.Duration(cfg.Monitoring.DedupWindowHours)*time.Hour,
		notify.NewPlausibilityFilter(&cfg.Filters, logger),
		notify.TextFormatter{},
		notifier,
		gate,
		logger,
	)
	feed.SetQueue(queue)

	discovery := watch.NewGuildDiscovery(client, app.DB, logger)

	aggregator := watch.NewAggregator([]watch.Collector{
		watch.NewActivityCollector(client, logger),
		watch.NewPatternCollector(client, logger),
		watch.NewDeepScanCollector(client, logger),
		watch.NewMemberCountCollector(client, logger),
		watch.NewPresenceCollector(client, logger),
		watch.NewHeartbeatCollector(cfg.Monitoring.Watchlist, logger),
	}, time.Duration(cfg.Monitoring.CollectorTimeout)*time.Second, logger)

	pollWorker := watch.NewWorker(client, aggregator, gate, queue, &cfg.Monitoring, logger)
	maintenanceWorker := maintenance.New(app.DB, discovery, &cfg.Monitoring, logger)

	if err := feed.Start(ctx); err != nil {
		logger.Fatal("Failed to open gateway", zap.Error(err))
	}
	defer feed.Close(context.Background())

	// Seed the registry before announcing startup so the count is real.
	// Operational messages ride the queue so they never bypass pacing.
	count, err := discovery.Refresh(ctx)
	if err != nil {
		logger.Error("Initial registry refresh failed", zap.Error(err))
		queue.EnqueueNotice(bot.ErrorNotice("registry refresh", err))
	} else {
		queue.EnqueueNotice(bot.StartupNotice(count))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { superviseWorker(gctx, "notify_queue", logger, queue, func() { queue.Start(gctx) }); return nil })
	g.Go(func() error { superviseWorker(gctx, "poll_worker", logger, queue, func() { pollWorker.Start(gctx) }); return nil })
	g.Go(func() error {
		superviseWorker(gctx, "maintenance", logger, queue, func() { maintenanceWorker.Start(gctx) })
		return nil
	})

	logger.Info("Arrival monitoring started", zap.Int("communities", count))

	<-ctx.Done()
	logger.Info("Shutting down...")

	_ = g.Wait()
}

// superviseWorker runs a worker loop, recovering from panics and restarting
// it until the context is cancelled. Panics are reported to the operator
// through the queue.
func superviseWorker(ctx context.Context, name string, logger *zap.Logger, queue *notify.Queue, start func()) {
	for {
		select {
		case <-ctx.Done():
			logger.Info("Context cancelled, stopping worker", zap.String("worker", name))
			return
		default:
			func() {
				defer func() {
					if r := recover(); r != nil {
						logger.Error("Worker panicked, restarting",
							zap.String("worker", name),
							zap.Any("panic", r))
						queue.EnqueueNotice(bot.ErrorNotice(name, fmt.Errorf("worker panicked: %v", r)))
						time.Sleep(5 * time.Second)
					}
				}()
				start()
			}()

			if ctx.Err() != nil {
				continue
			}

			logger.Warn("Worker stopped unexpectedly", zap.String("worker", name))
			time.Sleep(5 * time.Second)
		}
	}
}

// printStats connects to the store and prints the aggregate counters.
func printStats(ctx context.Context) error {
	app, err := setup.InitializeApp(ctx, MainLogDir)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer app.Cleanup()

	stats, err := app.DB.Service().Stats().Get(ctx)
	if err != nil {
		return fmt.Errorf("failed to collect statistics: %w", err)
	}

	out, err := sonic.MarshalIndent(stats, "", "  ")
	if err != nil {
		return err
	}

	fmt.Println(string(out))

	return nil
}
