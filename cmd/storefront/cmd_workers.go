package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/naturelovers/storefront/config"
	"github.com/naturelovers/storefront/internal/kernel"
)

var queueWorkersFlag int

// bootApp boots the kernel for a worker command; the returned stop cancels
// on SIGINT/SIGTERM and closes the App.
func bootApp() (context.Context, *kernel.App, func(), error) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	app, err := kernel.Boot(ctx)
	if err != nil {
		stop()
		return nil, nil, nil, err
	}
	return ctx, app, func() {
		stop()
		_ = app.Close(context.Background())
	}, nil
}

// storefront queue:work
var queueWorkCmd = &cobra.Command{
	Use:   "queue:work",
	Short: "Start the queue worker",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, app, stop, err := bootApp()
		if err != nil {
			return err
		}
		defer stop()

		workers := queueWorkersFlag
		if workers < 1 {
			workers = config.QueueWorkers()
		}
		if config.QueueDriver() != "redis" {
			fmt.Println("⚠️  QUEUE_DRIVER is memory: this worker only sees jobs queued by itself.")
		}

		fmt.Printf("🚀 Queue worker started (%d workers). Press Ctrl+C to stop.\n", workers)
		app.Queue.Work(ctx, workers)
		fmt.Println("\n⚡ Queue worker stopped.")
		return nil
	},
}

// storefront schedule:run
var scheduleRunCmd = &cobra.Command{
	Use:   "schedule:run",
	Short: "Start the task scheduler",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, app, stop, err := bootApp()
		if err != nil {
			return err
		}
		defer stop()

		fmt.Println("Registered scheduled tasks:")
		for _, t := range app.Scheduler.List() {
			fmt.Println("  •", t)
		}

		// relayed order.created events dispatch jobs, so work them here too
		go app.Queue.Work(ctx, config.QueueWorkers())
		go app.Hub.Run(ctx)

		fmt.Println("🕐 Scheduler started. Press Ctrl+C to stop.")
		app.Scheduler.Start(ctx)
		fmt.Println("\n⚡ Scheduler stopped.")
		return nil
	},
}

// storefront outbox:relay: one pass, then drain the in-memory jobs it queued.
var outboxRelayCmd = &cobra.Command{
	Use:   "outbox:relay",
	Short: "Publish pending outbox events once",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, app, stop, err := bootApp()
		if err != nil {
			return err
		}
		defer stop()

		n, err := app.Relay.RunOnce(ctx)
		if err != nil {
			return err
		}
		jobs := app.Queue.Drain(ctx)
		fmt.Printf("✅ Relayed %d event(s), ran %d job(s).\n", n, jobs)
		return nil
	},
}

func init() {
	queueWorkCmd.Flags().IntVarP(&queueWorkersFlag, "workers", "w", 0, "Number of concurrent workers (default QUEUE_WORKERS)")
}
