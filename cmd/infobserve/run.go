package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/praetorian-inc/infobserve/pkg/config"
	"github.com/praetorian-inc/infobserve/pkg/feeder"
	"github.com/praetorian-inc/infobserve/pkg/logging"
	"github.com/praetorian-inc/infobserve/pkg/matcher"
	"github.com/praetorian-inc/infobserve/pkg/pipeline"
	"github.com/praetorian-inc/infobserve/pkg/store"
	"github.com/praetorian-inc/infobserve/pkg/types"
)

const eventsQueueKey = "events"

func runRoot(cmd *cobra.Command, args []string) error {
	logger := logging.NewStderrLogger("infobserve")

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.New(ctx, store.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		Database: cfg.Database.DBName,
		User:     cfg.Database.User,
		Passwd:   cfg.Database.Passwd,
	})
	if err != nil {
		return fmt.Errorf("connecting to store: %w", err)
	}
	defer st.Close()

	newMatcher := func() (matcher.Matcher, error) {
		return matcher.NewFromDir(cfg.YaraRuleDir, matcher.Config{
			ScanTimeout: cfg.ScanTimeout,
			Logger:      logger,
		})
	}

	feedQueue := make(chan types.Event, cfg.Workers.Feeders*4)
	loadQueue := make(chan types.ProcessedEvent, cfg.Workers.Processors*4)

	feeders := make([]*feeder.Worker, cfg.Workers.Feeders)
	for i := 0; i < cfg.Workers.Feeders; i++ {
		client := redis.NewClient(&redis.Options{
			Addr: fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		})
		feeders[i] = feeder.NewWorker(i, feeder.NewRedisQueue(client), eventsQueueKey, feedQueue, logger)
	}

	summary, runErr := pipeline.Run(ctx, pipeline.Config{
		Feeders:       feeders,
		FeedQueue:     feedQueue,
		NumProcessors: cfg.Workers.Processors,
		NewMatcher:    newMatcher,
		NumLoaders:    cfg.Workers.Loaders,
		LoadQueue:     loadQueue,
		Store:         st,
		Logger:        logger,
	})

	printSummary(cmd, summary)

	return runErr
}

func printSummary(cmd *cobra.Command, summary pipeline.Summary) {
	out := cmd.OutOrStdout()
	heading := color.New(color.Bold)
	warn := color.New(color.FgYellow)

	fmt.Fprintf(out, "%s\n", heading.Sprint("pipeline shutdown summary"))
	fmt.Fprintf(out, "  %s %d\n", heading.Sprint("events processed:"), summary.Total.EventsProcessed)
	fmt.Fprintf(out, "  %s %d\n", heading.Sprint("events matched:"), summary.Total.EventsMatched)
	fmt.Fprintf(out, "  %s %s\n", heading.Sprint("avg per event:"), summary.Total.Average())

	sendFailures := fmt.Sprintf("%d", summary.Total.SendFailures)
	if summary.Total.SendFailures > 0 {
		sendFailures = warn.Sprint(sendFailures)
	}
	fmt.Fprintf(out, "  %s %s\n", heading.Sprint("send failures:"), sendFailures)

	for i, s := range summary.PerWorker {
		fmt.Fprintf(out, "  processor[%d]: processed=%d matched=%d send_failures=%d avg=%s\n",
			i, s.EventsProcessed, s.EventsMatched, s.SendFailures, s.Average())
	}
}
