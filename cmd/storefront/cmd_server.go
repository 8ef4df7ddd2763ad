package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/naturelovers/storefront/app/repositories/sqlstore"
	"github.com/naturelovers/storefront/internal/kernel"
	"github.com/naturelovers/storefront/internal/server"
	"github.com/naturelovers/storefront/pkg/database"
)

var (
	serveWorkersFlag int
	serveNoGRPCFlag  bool
)

// storefront serve: HTTP, gRPC health, queue workers and scheduler.
var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"run"},
	Short:   "Start the HTTP server with workers and scheduler",
	RunE: func(cmd *cobra.Command, args []string) error {
		return server.Start(server.Options{Workers: serveWorkersFlag, NoGRPC: serveNoGRPCFlag})
	},
}

// storefront route:list: print all registered routes.
var routeListCmd = &cobra.Command{
	Use:   "route:list",
	Short: "List all registered named routes",
	RunE: func(cmd *cobra.Command, args []string) error {
		// routes only need a store to bind to; nothing is queried
		db, err := database.Open("sqlite", "file::memory:")
		if err != nil {
			return err
		}
		store := sqlstore.New(db)
		defer store.Close(context.Background())

		infos := kernel.New(kernel.Deps{Store: store}).Router.Routes()
		if len(infos) == 0 {
			fmt.Println("No named routes registered.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "METHOD\tPATH\tNAME")
		fmt.Fprintln(w, "------\t----\t----")
		for _, ri := range infos {
			fmt.Fprintf(w, "%s\t%s\t%s\n", ri.Method, ri.Path, ri.Name)
		}
		return w.Flush()
	},
}

func init() {
	serveCmd.Flags().IntVarP(&serveWorkersFlag, "workers", "w", 0, "Queue workers (default QUEUE_WORKERS)")
	serveCmd.Flags().BoolVar(&serveNoGRPCFlag, "no-grpc", false, "Do not start the gRPC health listener")
}
